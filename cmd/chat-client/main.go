package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cli/browser"
	"github.com/mama165/sdk-go/logs"

	"github.com/omochice/chat-session/internal/api"
	"github.com/omochice/chat-session/internal/app"
	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/internal/config"
	"github.com/omochice/chat-session/internal/session"
	"github.com/omochice/chat-session/internal/transport/ws"
	"github.com/omochice/chat-session/pkg/protocol"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	token := flag.String("token", "", "Access token (overrides CHAT_TOKEN)")
	forceLogin := flag.Bool("login", false, "Log in through the browser even if a token is set")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *token != "" {
		cfg.Token = *token
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	hub := chat.NewHub()
	manager := session.New(session.Config{
		ChatURL:      cfg.ChatURL,
		LoginURL:     cfg.LoginURL,
		WriteTimeout: cfg.WriteTimeout,
	}, ws.NewDialer(cfg.DialTimeout), hub, log)
	cmds := app.New(manager, api.New(cfg.APIBaseURL, cfg.IdentityURL, cfg.HTTPTimeout), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restored := cfg.Token != "" && !*forceLogin
	if !restored {
		cfg.Token, err = login(ctx, hub, cmds, log)
		if err != nil {
			return err
		}
	}

	if !cmds.CheckTokenValid(ctx, cfg.Token) {
		return errors.New("token rejected by identity provider, run with -login")
	}

	if restored {
		s, err := restoreSession(ctx, cmds, cfg.Token)
		if err != nil {
			log.Warn("Could not restore session", "error", err)
		} else {
			fmt.Printf("Signed in as %s\n", s.User.DisplayName())
		}
	}

	printEvents(hub)

	if !cmds.Connect(ctx, cfg.Token) {
		return fmt.Errorf("failed to connect to %s", cfg.ChatURL)
	}
	defer cmds.Shutdown(context.Background())

	log.Info("Connected", "url", cfg.ChatURL)
	fmt.Println("Type your messages (or 'quit' to exit):")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Error("Error reading input", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "quit" || text == "exit" {
				if cmds.Disconnect(ctx) {
					fmt.Println("Disconnected from server")
				}
				return nil
			}
			if !cmds.Send(ctx, text) && !manager.IsConnected() {
				return errors.New("connection lost")
			}
		}
	}
}

// restoreSession looks up the session stored for a saved token.
func restoreSession(ctx context.Context, cmds *app.Commands, token string) (protocol.LoginSession, error) {
	doc, err := cmds.FetchSession(ctx, token)
	if err != nil {
		return protocol.LoginSession{}, err
	}
	return protocol.ParseLoginSession(doc)
}

// login runs the browser login and returns the access token it yields.
func login(ctx context.Context, hub *chat.Hub, cmds *app.Commands, log *slog.Logger) (string, error) {
	unlistenURL := hub.Listen(chat.EventOpenLoginURL, func(payload any) {
		url, _ := payload.(string)
		fmt.Printf("Opening %s in your browser. Come back once you're signed in.\n", url)
		if err := browser.OpenURL(url); err != nil {
			log.Warn("Could not open browser", "error", err)
		}
	})
	defer unlistenURL()

	unlistenFailure := hub.Listen(chat.EventLoginDisconnect, func(payload any) {
		fmt.Printf("Login interrupted: %v\n", payload)
	})
	defer unlistenFailure()

	docs := make(chan string, 1)
	unlistenSession := hub.Listen(chat.EventSession, func(payload any) {
		if doc, ok := payload.(string); ok {
			select {
			case docs <- doc:
			default:
			}
		}
	})
	defer unlistenSession()

	if !cmds.Login(ctx) {
		return "", errors.New("login failed")
	}

	s, err := protocol.ParseLoginSession(<-docs)
	if err != nil {
		return "", fmt.Errorf("invalid login session: %w", err)
	}
	fmt.Printf("Signed in as %s\n", s.User.DisplayName())
	return s.AccessToken, nil
}
