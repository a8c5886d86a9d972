package protocol

import "fmt"

const avatarCDN = "https://cdn.discordapp.com/avatars"

// Participant is the identity record of a connected user as reported by the
// identity provider. Only ID and Username are required; unknown fields are
// ignored so newer servers can extend the record.
type Participant struct {
	ID            string  `json:"id" validate:"required"`
	Username      string  `json:"username" validate:"required"`
	Discriminator string  `json:"discriminator,omitempty"`
	GlobalName    *string `json:"global_name,omitempty"`
	Avatar        *string `json:"avatar,omitempty"`
	Banner        *string `json:"banner,omitempty"`
	AccentColor   *int    `json:"accent_color,omitempty"`
	Bot           *bool   `json:"bot,omitempty"`
	System        *bool   `json:"system,omitempty"`
	MFAEnabled    *bool   `json:"mfa_enabled,omitempty"`
	Locale        *string `json:"locale,omitempty"`
	Verified      *bool   `json:"verified,omitempty"`
	Email         *string `json:"email,omitempty"`
	Flags         *int64  `json:"flags,omitempty"`
	PremiumType   *int    `json:"premium_type,omitempty"`
	PublicFlags   *int64  `json:"public_flags,omitempty"`
}

// DisplayName prefers the global display name over the username.
func (p Participant) DisplayName() string {
	if p.GlobalName != nil && *p.GlobalName != "" {
		return *p.GlobalName
	}
	return p.Username
}

// AvatarURL returns the CDN URL of the avatar, or "" when none is set.
func (p Participant) AvatarURL() string {
	if p.Avatar == nil || *p.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", avatarCDN, p.ID, *p.Avatar)
}
