package interaction

import (
	"context"

	"notes-bot/internal/permission"
)

// Event is an inbound interaction, classified once at the transport boundary
// into exactly one variant. Handlers type-switch over the variants instead of
// inspecting raw payload fields.
type Event interface {
	isEvent()
	Guild() string
	User() permission.Actor
}

type common struct {
	GuildID string
	Actor   permission.Actor
}

func (c common) Guild() string          { return c.GuildID }
func (c common) User() permission.Actor { return c.Actor }

// Command is a fresh slash-command invocation.
type Command struct {
	common
	Name       string
	Subcommand string
	// Options holds the flat name -> value option map; channel, user and
	// role options arrive as their IDs.
	Options map[string]string
}

// Autocomplete is a typeahead request for one option of a command.
type Autocomplete struct {
	common
	Command string
	Option  string
	Partial string
}

// ModalSubmit is a completed data-entry form, correlated by its token.
type ModalSubmit struct {
	common
	Token  string
	Fields map[string]string
}

// Button is a click on a persistent message component, correlated by its token.
type Button struct {
	common
	Token string
}

func (Command) isEvent()      {}
func (Autocomplete) isEvent() {}
func (ModalSubmit) isEvent()  {}
func (Button) isEvent()       {}

// NewCommand builds a Command event. Exposed for the transport and for tests.
func NewCommand(guildID string, actor permission.Actor, name, sub string, options map[string]string) *Command {
	return &Command{common: common{GuildID: guildID, Actor: actor}, Name: name, Subcommand: sub, Options: options}
}

// NewAutocomplete builds an Autocomplete event.
func NewAutocomplete(guildID string, actor permission.Actor, command, option, partial string) *Autocomplete {
	return &Autocomplete{common: common{GuildID: guildID, Actor: actor}, Command: command, Option: option, Partial: partial}
}

// NewModalSubmit builds a ModalSubmit event.
func NewModalSubmit(guildID string, actor permission.Actor, token string, fields map[string]string) *ModalSubmit {
	return &ModalSubmit{common: common{GuildID: guildID, Actor: actor}, Token: token, Fields: fields}
}

// NewButton builds a Button event.
func NewButton(guildID string, actor permission.Actor, token string) *Button {
	return &Button{common: common{GuildID: guildID, Actor: actor}, Token: token}
}

// Modal describes a data-entry prompt. The token round-trips back on the
// matching ModalSubmit.
type Modal struct {
	Token  string
	Title  string
	Inputs []ModalInput
}

// ModalInput is one text field of a modal.
type ModalInput struct {
	ID        string
	Label     string
	Value     string
	Paragraph bool
	Required  bool
}

// Choice is one autocomplete suggestion.
type Choice struct {
	Name  string
	Value string
}

// Responder delivers the visible outcome of handling one event. Reply with
// private=true is only shown to the invoking actor.
type Responder interface {
	Reply(ctx context.Context, content string, private bool) error
	ShowModal(ctx context.Context, modal Modal) error
	Choices(ctx context.Context, choices []Choice) error
}
