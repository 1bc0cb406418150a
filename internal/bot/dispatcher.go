package bot

import (
	"context"
	"log"
	"strconv"

	"notes-bot/internal/interaction"
	"notes-bot/internal/metrics"
	"notes-bot/internal/notes"
	"notes-bot/internal/permission"
	"notes-bot/internal/store"
	"notes-bot/internal/transport"
)

const (
	genericErrorReply  = "There was an error while executing this command!"
	invalidTokenReply  = "This request is invalid or has expired."
	unknownCommandText = "Unknown command."
)

// Dispatcher routes classified inbound events to the right workflow. Many
// interactions are in flight at once on separate goroutines; nothing that
// happens while handling one of them may take the router down, so every
// failure ends in a logged, user-visible generic reply.
type Dispatcher struct {
	orch     *notes.Orchestrator
	store    *store.Store
	resolver *permission.Resolver
	roles    transport.RoleManager

	commands map[string]commandHandler
}

type commandHandler func(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error

func NewDispatcher(orch *notes.Orchestrator, s *store.Store, resolver *permission.Resolver, roles transport.RoleManager) *Dispatcher {
	d := &Dispatcher{orch: orch, store: s, resolver: resolver, roles: roles}

	// Every note command registers under its long and short name.
	d.commands = map[string]commandHandler{
		"snote-create":     handleCreate,
		"sn-create":        handleCreate,
		"snote-edit":       handleEdit,
		"sn-edit":          handleEdit,
		"snote-delete":     handleDelete,
		"sn-delete":        handleDelete,
		"snote-list":       handleList,
		"sn-list":          handleList,
		"snote-config":     handleConfig,
		"sn-config":        handleConfig,
		"config-grant":     handleGrant,
		"list-permissions": handleListGrants,
		"snote-help":       handleHelp,
		"sn-help":          handleHelp,
	}
	return d
}

// Handle processes one inbound event. It never panics outward and never
// returns: terminal failures are converted into a generic reply here.
func (d *Dispatcher) Handle(ctx context.Context, ev interaction.Event, r interaction.Responder) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.CountError()
			log.Printf("Panic while handling interaction: %v", rec)
			d.replyGeneric(ctx, r)
		}
	}()

	var err error
	switch e := ev.(type) {
	case *interaction.Command:
		metrics.CountCommand()
		err = d.handleCommand(ctx, r, e)
	case *interaction.Autocomplete:
		metrics.CountAutocomplete()
		err = d.handleAutocomplete(ctx, r, e)
	case *interaction.ModalSubmit:
		metrics.CountModal()
		err = d.handleModal(ctx, r, e)
	case *interaction.Button:
		metrics.CountButton()
		err = d.handleButton(ctx, r, e)
	default:
		log.Printf("Unhandled interaction event type %T", ev)
		return
	}

	if err != nil {
		metrics.CountError()
		log.Printf("Error handling %T: %v", ev, err)
		d.replyGeneric(ctx, r)
	}
}

func (d *Dispatcher) replyGeneric(ctx context.Context, r interaction.Responder) {
	if err := r.Reply(ctx, genericErrorReply, true); err != nil {
		log.Printf("Failed to send error reply: %v", err)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, r interaction.Responder, ev *interaction.Command) error {
	handler, ok := d.commands[ev.Name]
	if !ok {
		log.Printf("No command matching %q was found", ev.Name)
		return r.Reply(ctx, unknownCommandText, true)
	}
	return handler(ctx, d, r, ev)
}

func (d *Dispatcher) handleAutocomplete(ctx context.Context, r interaction.Responder, ev *interaction.Autocomplete) error {
	if ev.Option != "id" {
		return r.Choices(ctx, nil)
	}
	choices, err := d.orch.SuggestNotes(ctx, ev.GuildID, ev.Partial)
	if err != nil {
		// Suggestions are best-effort; an empty list beats an error banner.
		log.Printf("Autocomplete query failed for guild %s: %v", ev.GuildID, err)
		return r.Choices(ctx, nil)
	}
	return r.Choices(ctx, choices)
}

func (d *Dispatcher) handleModal(ctx context.Context, r interaction.Responder, ev *interaction.ModalSubmit) error {
	tok, err := interaction.Decode(ev.Token)
	if err != nil {
		log.Printf("Rejected modal submission: %v", err)
		return r.Reply(ctx, invalidTokenReply, true)
	}

	switch tok.Kind {
	case interaction.TokenCreate:
		return d.orch.SubmitCreate(ctx, r, ev.Actor, ev.GuildID, tok, ev.Fields)
	case interaction.TokenNote:
		return d.orch.SubmitEdit(ctx, r, ev.Actor, ev.GuildID, tok.NoteID, ev.Fields)
	default:
		return r.Reply(ctx, invalidTokenReply, true)
	}
}

func (d *Dispatcher) handleButton(ctx context.Context, r interaction.Responder, ev *interaction.Button) error {
	tok, err := interaction.Decode(ev.Token)
	if err != nil {
		log.Printf("Rejected button activation: %v", err)
		return r.Reply(ctx, invalidTokenReply, true)
	}

	if tok.Kind != interaction.TokenNote {
		return r.Reply(ctx, invalidTokenReply, true)
	}
	return d.orch.BeginEditFromButton(ctx, r, ev.Actor, ev.GuildID, tok.NoteID)
}

// parseNoteID turns the "id" option of edit/delete commands into a note ID.
func parseNoteID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func handleCreate(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	return d.orch.BeginCreate(ctx, r, ev.Actor, ev.GuildID, ev.Options["channel"])
}

func handleEdit(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	id, ok := parseNoteID(ev.Options["id"])
	if !ok {
		return r.Reply(ctx, "Invalid note ID.", true)
	}
	return d.orch.BeginEdit(ctx, r, ev.Actor, ev.GuildID, id)
}

func handleDelete(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	id, ok := parseNoteID(ev.Options["id"])
	if !ok {
		return r.Reply(ctx, "Invalid note ID.", true)
	}
	return d.orch.Delete(ctx, r, ev.Actor, ev.GuildID, id)
}

func handleList(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	return d.orch.List(ctx, r, ev.Actor, ev.GuildID, ev.Options["channel"])
}
