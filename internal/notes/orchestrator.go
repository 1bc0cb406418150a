package notes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"notes-bot/internal/interaction"
	"notes-bot/internal/permission"
	"notes-bot/internal/store"
	"notes-bot/internal/transport"
)

// Orchestrator runs the note lifecycle end to end: it authorizes through the
// resolver, correlates prompts with submissions through tokens, and keeps the
// record store and the posted messages consistent.
//
// Expected outcomes (denied, invalid, not found) are replied to the actor
// directly and return nil; only unexpected faults (store or transport down)
// come back as errors for the dispatcher to report generically.
type Orchestrator struct {
	store     *store.Store
	resolver  *permission.Resolver
	messenger transport.Messenger
}

func New(s *store.Store, r *permission.Resolver, m transport.Messenger) *Orchestrator {
	return &Orchestrator{store: s, resolver: r, messenger: m}
}

// BeginCreate authorizes the actor for the target channel and opens the
// data-entry prompt with a create token bound to that channel. An empty
// channelID falls back to the guild's configured default channel.
func (o *Orchestrator) BeginCreate(ctx context.Context, r interaction.Responder, actor permission.Actor, guildID, channelID string) error {
	if channelID == "" {
		cfg, err := o.store.GuildConfig(ctx, guildID)
		if err != nil {
			return err
		}
		if cfg.DefaultChannelID == "" {
			return r.Reply(ctx, "No channel given and no default channel configured. Use /snote-config setchannel first.", true)
		}
		channelID = cfg.DefaultChannelID
	}

	allowed, err := o.resolver.CanPerform(ctx, actor, guildID, channelID, store.ActionCreate)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to create notes in that channel.", true)
	}

	ch, err := o.messenger.Channel(ctx, channelID)
	if errors.Is(err, transport.ErrNotFound) {
		return r.Reply(ctx, "That channel no longer exists.", true)
	}
	if err != nil {
		return err
	}
	if !ch.Text {
		return r.Reply(ctx, "Notes can only be posted in text channels.", true)
	}

	return r.ShowModal(ctx, noteModal(interaction.EncodeCreate(channelID), "Create Shared Note", nil))
}

// SubmitCreate finishes the create flow: re-authorize against the token's
// channel, validate the fields, post the message, persist the note, then
// decorate the posted message with its footer and edit button.
func (o *Orchestrator) SubmitCreate(ctx context.Context, r interaction.Responder, actor permission.Actor, guildID string, tok interaction.Token, fields map[string]string) error {
	channelID := tok.ChannelID

	// Tokens round-trip through the platform, so the permission check from
	// prompt time is re-run in full.
	allowed, err := o.resolver.CanPerform(ctx, actor, guildID, channelID, store.ActionCreate)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to create notes in that channel.", true)
	}

	title := strings.TrimSpace(fields[fieldTitle])
	body := fields[fieldContent]
	if title == "" || strings.TrimSpace(body) == "" {
		return r.Reply(ctx, "Title and content are required.", true)
	}
	tags := parseTags(fields[fieldTags])

	msgID, err := o.messenger.SendMessage(ctx, channelID, noteMessage(title, body, tags, actor.Username, 0, time.Time{}))
	if errors.Is(err, transport.ErrNotFound) {
		return r.Reply(ctx, "Could not post in the selected channel.", true)
	}
	if err != nil {
		return err
	}

	note := &store.Note{
		GuildID:    guildID,
		ChannelID:  channelID,
		MessageID:  msgID,
		Title:      title,
		Body:       body,
		Tags:       tags,
		AuthorID:   actor.ID,
		AuthorName: actor.Username,
	}
	if err := o.store.CreateNote(ctx, note); err != nil {
		// Do not leave an orphaned message behind when the record is lost.
		if delErr := o.messenger.DeleteMessage(ctx, channelID, msgID); delErr != nil && !errors.Is(delErr, transport.ErrNotFound) {
			log.Printf("Failed to remove orphaned note message %s in %s: %v", msgID, channelID, delErr)
		}
		return err
	}

	// Attach footer and edit button now that the note has an ID. Best-effort:
	// the note exists either way.
	decorated := noteMessage(title, body, tags, actor.Username, note.ID, note.CreatedAt)
	if err := o.messenger.EditMessage(ctx, channelID, msgID, decorated); err != nil {
		log.Printf("Failed to decorate note %d message: %v", note.ID, err)
	}

	return r.Reply(ctx, fmt.Sprintf("Note #%d created in <#%s>.", note.ID, channelID), true)
}

// BeginEdit opens the pre-filled edit prompt for a note chosen by ID.
// Authorization is evaluated against the note's own channel.
func (o *Orchestrator) BeginEdit(ctx context.Context, r interaction.Responder, actor permission.Actor, guildID string, noteID uint) error {
	note, err := o.store.NoteByID(ctx, guildID, noteID)
	if errors.Is(err, store.ErrNoteNotFound) {
		return r.Reply(ctx, "Note not found.", true)
	}
	if err != nil {
		return err
	}

	allowed, err := o.resolver.CanPerform(ctx, actor, guildID, note.ChannelID, store.ActionEdit)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to edit notes in that channel.", true)
	}

	return r.ShowModal(ctx, noteModal(interaction.EncodeNote(note.ID), "Edit Shared Note", note))
}

// BeginEditFromButton is the edit affordance on the posted message itself.
// The button only opens the prompt for actors with the wide management
// capability; the submission still runs the per-channel edit check.
func (o *Orchestrator) BeginEditFromButton(ctx context.Context, r interaction.Responder, actor permission.Actor, guildID string, noteID uint) error {
	note, err := o.store.NoteByID(ctx, guildID, noteID)
	if errors.Is(err, store.ErrNoteNotFound) {
		return r.Reply(ctx, "Note not found.", true)
	}
	if err != nil {
		return err
	}

	allowed, err := o.resolver.CanManageWide(ctx, actor, guildID)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to edit this note.", true)
	}

	return r.ShowModal(ctx, noteModal(interaction.EncodeNote(note.ID), "Edit Shared Note", note))
}

// SubmitEdit finishes the edit flow: the old representing message is removed
// best-effort, a fresh one is posted, and the record is updated to point at it.
func (o *Orchestrator) SubmitEdit(ctx context.Context, r interaction.Responder, actor permission.Actor, guildID string, noteID uint, fields map[string]string) error {
	note, err := o.store.NoteByID(ctx, guildID, noteID)
	if errors.Is(err, store.ErrNoteNotFound) {
		return r.Reply(ctx, "Note not found.", true)
	}
	if err != nil {
		return err
	}

	allowed, err := o.resolver.CanPerform(ctx, actor, guildID, note.ChannelID, store.ActionEdit)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to edit notes in that channel.", true)
	}

	title := strings.TrimSpace(fields[fieldTitle])
	body := fields[fieldContent]
	if title == "" || strings.TrimSpace(body) == "" {
		return r.Reply(ctx, "Title and content are required.", true)
	}
	tags := parseTags(fields[fieldTags])

	// The old message may already be gone; that is fine.
	if err := o.messenger.DeleteMessage(ctx, note.ChannelID, note.MessageID); err != nil {
		if !errors.Is(err, transport.ErrNotFound) {
			log.Printf("Failed to delete old message for note %d: %v", note.ID, err)
		}
	}

	msgID, err := o.messenger.SendMessage(ctx, note.ChannelID, noteMessage(title, body, tags, actor.Username, note.ID, note.CreatedAt))
	if errors.Is(err, transport.ErrNotFound) {
		return r.Reply(ctx, "The note's channel no longer exists.", true)
	}
	if err != nil {
		return err
	}

	note.Title = title
	note.Body = body
	note.Tags = tags
	note.MessageID = msgID
	note.LastEditedBy = actor.ID
	if err := o.store.UpdateNote(ctx, note); err != nil {
		return err
	}

	return r.Reply(ctx, fmt.Sprintf("Note #%d updated and reposted.", note.ID), true)
}

// Delete removes a note and, best-effort, its representing message.
func (o *Orchestrator) Delete(ctx context.Context, r interaction.Responder, actor permission.Actor, guildID string, noteID uint) error {
	note, err := o.store.NoteByID(ctx, guildID, noteID)
	if errors.Is(err, store.ErrNoteNotFound) {
		return r.Reply(ctx, "Note not found.", true)
	}
	if err != nil {
		return err
	}

	allowed, err := o.resolver.CanPerform(ctx, actor, guildID, note.ChannelID, store.ActionDelete)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to delete notes in that channel.", true)
	}

	if err := o.messenger.DeleteMessage(ctx, note.ChannelID, note.MessageID); err != nil {
		if !errors.Is(err, transport.ErrNotFound) {
			log.Printf("Failed to delete message for note %d: %v", note.ID, err)
		}
	}

	err = o.store.DeleteNote(ctx, guildID, note.ID)
	if errors.Is(err, store.ErrNoteNotFound) {
		// Raced with another delete.
		return r.Reply(ctx, "Note not found.", true)
	}
	if err != nil {
		return err
	}

	return r.Reply(ctx, fmt.Sprintf("Note #%d deleted.", note.ID), true)
}

// List replies with up to ListPageSize notes, newest first, optionally
// filtered by channel.
func (o *Orchestrator) List(ctx context.Context, r interaction.Responder, actor permission.Actor, guildID, channelID string) error {
	allowed, err := o.resolver.CanManageWide(ctx, actor, guildID)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to view shared notes.", true)
	}

	list, err := o.store.ListNotes(ctx, guildID, channelID, ListPageSize)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return r.Reply(ctx, "No shared notes found.", true)
	}

	var b strings.Builder
	b.WriteString("**Shared Notes**\n")
	for i := range list {
		b.WriteString(listLine(&list[i]))
		b.WriteString("\n")
	}
	return r.Reply(ctx, b.String(), true)
}

// SuggestNotes returns autocomplete choices for a note-ID option: the most
// recent notes filtered by case-insensitive substring match on title or ID.
func (o *Orchestrator) SuggestNotes(ctx context.Context, guildID, partial string) ([]interaction.Choice, error) {
	recent, err := o.store.ListNotes(ctx, guildID, "", AutocompleteWindow)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(partial))
	choices := make([]interaction.Choice, 0, len(recent))
	for i := range recent {
		n := &recent[i]
		id := strconv.FormatUint(uint64(n.ID), 10)
		name := fmt.Sprintf("%s (#%d)", n.Title, n.ID)
		if needle != "" && !strings.Contains(strings.ToLower(name), needle) && !strings.Contains(id, needle) {
			continue
		}
		choices = append(choices, interaction.Choice{Name: name, Value: id})
	}
	if len(choices) > AutocompleteWindow {
		choices = choices[:AutocompleteWindow]
	}
	return choices, nil
}
