package transport

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the target message or channel no longer
// exists. Workflows that delete stale messages treat it as a best-effort
// miss, not a failure.
var ErrNotFound = errors.New("transport: not found")

// Embed is the rich block a note is rendered into.
type Embed struct {
	Title       string
	Description string
	Color       int
	AuthorName  string
	FooterText  string
	Fields      []EmbedField
	Timestamp   time.Time
}

// EmbedField is a named section appended below the embed body.
type EmbedField struct {
	Name  string
	Value string
}

// Button is a persistent clickable control attached to a message. Clicks come
// back as interaction.Button events carrying the token.
type Button struct {
	Token string
	Label string
}

// OutgoingMessage is what the bot posts into a channel.
type OutgoingMessage struct {
	Embed   *Embed
	Buttons []Button
}

// ChannelInfo is the slice of channel metadata the workflows care about.
type ChannelInfo struct {
	ID   string
	Name string
	Text bool
}

// Messenger is the platform's message surface. The gateway delivers events;
// everything the bot sends back out goes through here.
type Messenger interface {
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID string, msg OutgoingMessage) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	Channel(ctx context.Context, channelID string) (ChannelInfo, error)
}

// RoleManager is the platform's role surface, used by the configuration
// commands that create management roles and move members in and out of them.
type RoleManager interface {
	CreateRole(ctx context.Context, guildID, name string) (roleID string, err error)
	AllowRoleInChannel(ctx context.Context, channelID, roleID string) error
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error
}
