package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/pkg/protocol"
)

// printEvents writes chat events to stdout.
func printEvents(hub *chat.Hub) {
	hub.Listen(chat.EventSession, func(payload any) {
		if user, ok := payload.(protocol.Participant); ok {
			fmt.Printf("*** signed in as %s ***\n", user.DisplayName())
		}
	})
	hub.Listen(chat.EventConnectedUsers, func(payload any) {
		if roster, ok := payload.(protocol.Roster); ok {
			fmt.Printf("*** online: %s ***\n", formatRoster(roster))
		}
	})
	hub.Listen(chat.EventMessage, func(payload any) {
		if msg, ok := payload.(protocol.ChatMessage); ok {
			// Messages carry no timestamp; stamp them on receipt.
			fmt.Printf("%s [%s]: %s\n", time.Now().Format(time.Kitchen), msg.Author, msg.Content)
		}
	})
	hub.Listen(chat.EventDisconnected, func(payload any) {
		fmt.Printf("*** disconnected: %v ***\n", payload)
	})
}

func formatRoster(roster protocol.Roster) string {
	if len(roster) == 0 {
		return "nobody"
	}
	names := lo.MapToSlice(roster, func(_ string, p protocol.Participant) string {
		return p.DisplayName()
	})
	sort.Strings(names)
	return strings.Join(names, ", ")
}
