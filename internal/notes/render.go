package notes

import (
	"fmt"
	"strings"
	"time"

	"notes-bot/internal/interaction"
	"notes-bot/internal/store"
	"notes-bot/internal/transport"
)

const (
	// DisplayLimit is the platform's embed description ceiling. Bodies longer
	// than this are truncated for display; the store always keeps the full text.
	DisplayLimit = 4096
	truncateTo   = 4090

	// ListPageSize caps how many notes a list reply shows.
	ListPageSize = 10
	// AutocompleteWindow is how many recent notes feed ID suggestions.
	AutocompleteWindow = 25

	embedColor = 0x0099FF
)

// Modal field identifiers, shared between the prompt and its submission.
const (
	fieldTitle   = "title"
	fieldContent = "content"
	fieldTags    = "tags"
)

const truncationNotice = "Content was truncated. The full text is kept in the database."

// displayBody returns the body as shown in the embed, truncating with an
// ellipsis when it exceeds the display limit.
func displayBody(body string) (string, bool) {
	runes := []rune(body)
	if len(runes) <= DisplayLimit {
		return body, false
	}
	return string(runes[:truncateTo]) + "...", true
}

// parseTags splits a comma-separated tag string, trimming whitespace and
// dropping empties. Duplicates are kept as typed.
func parseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func footerText(noteID uint, tags []string, createdAt time.Time) string {
	text := fmt.Sprintf("Note #%d | %s", noteID, createdAt.Format("2006-01-02 15:04"))
	if len(tags) > 0 {
		text = fmt.Sprintf("Tags: %s | %s", strings.Join(tags, ", "), text)
	}
	return text
}

// noteMessage renders a note into the message posted in its channel. A zero
// noteID leaves off the footer and edit button; the create flow posts first
// and decorates once the record exists and an ID is assigned.
func noteMessage(title, body string, tags []string, authorName string, noteID uint, createdAt time.Time) transport.OutgoingMessage {
	shown, truncated := displayBody(body)

	embed := &transport.Embed{
		Title:       title,
		Description: shown,
		Color:       embedColor,
		AuthorName:  authorName,
		Timestamp:   time.Now(),
	}
	if truncated {
		embed.Fields = append(embed.Fields, transport.EmbedField{
			Name:  "Note",
			Value: truncationNotice,
		})
	}

	msg := transport.OutgoingMessage{Embed: embed}
	if noteID != 0 {
		embed.FooterText = footerText(noteID, tags, createdAt)
		msg.Buttons = []transport.Button{{
			Token: interaction.EncodeNote(noteID),
			Label: "Edit",
		}}
	}
	return msg
}

// noteModal builds the data-entry prompt for creating or editing a note.
func noteModal(token, title string, defaults *store.Note) interaction.Modal {
	modal := interaction.Modal{Token: token, Title: title}

	var defTitle, defBody, defTags string
	if defaults != nil {
		defTitle = defaults.Title
		defBody = defaults.Body
		defTags = strings.Join(defaults.Tags, ", ")
	}

	modal.Inputs = []interaction.ModalInput{
		{ID: fieldTitle, Label: "Title", Value: defTitle, Required: true},
		{ID: fieldContent, Label: "Content (supports markdown)", Value: defBody, Paragraph: true, Required: true},
		{ID: fieldTags, Label: "Tags (comma-separated, optional)", Value: defTags},
	}
	return modal
}

// listLine summarizes one note for the list reply.
func listLine(n *store.Note) string {
	return fmt.Sprintf("**%s** (#%d) — by %s, created %s",
		n.Title, n.ID, n.AuthorName, n.CreatedAt.Format("2006-01-02"))
}
