package interaction

import (
	"fmt"
	"strconv"
	"strings"
)

// Tokens are the only state that survives the round trip through the
// platform between showing a prompt and receiving its submission. They are
// plain delimited strings, echoed back verbatim, and confer no authority:
// every decode is followed by a fresh permission and record check.

// TokenKind tags what context a token carries.
type TokenKind string

const (
	// TokenCreate carries the channel a new note will be posted in.
	TokenCreate TokenKind = "note-create"
	// TokenNote carries an existing note's ID, for edit and delete flows.
	TokenNote TokenKind = "note"
)

const tokenSep = ":"

// maxTokenLen is the platform's limit on custom identifiers.
const maxTokenLen = 100

// Token is a decoded correlation token.
type Token struct {
	Kind      TokenKind
	ChannelID string // set for TokenCreate
	NoteID    uint   // set for TokenNote
}

// ParseError describes a token that did not come out of Encode*. The raw
// value is kept for logging; the dispatcher replies with a generic message.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid interaction token %q: %s", e.Raw, e.Reason)
}

// EncodeCreate builds a create-context token bound to a channel.
func EncodeCreate(channelID string) string {
	return string(TokenCreate) + tokenSep + channelID
}

// EncodeNote builds a note-context token bound to an existing note.
func EncodeNote(noteID uint) string {
	return string(TokenNote) + tokenSep + strconv.FormatUint(uint64(noteID), 10)
}

// Decode parses a token string. It is total: any input that Encode* could not
// have produced yields a *ParseError, never a panic.
func Decode(raw string) (Token, error) {
	if raw == "" {
		return Token{}, &ParseError{Raw: raw, Reason: "empty"}
	}
	if len(raw) > maxTokenLen {
		return Token{}, &ParseError{Raw: raw[:maxTokenLen], Reason: "too long"}
	}

	kind, rest, found := strings.Cut(raw, tokenSep)
	if !found {
		return Token{}, &ParseError{Raw: raw, Reason: "missing separator"}
	}

	switch TokenKind(kind) {
	case TokenCreate:
		if rest == "" || strings.Contains(rest, tokenSep) {
			return Token{}, &ParseError{Raw: raw, Reason: "malformed channel ID"}
		}
		return Token{Kind: TokenCreate, ChannelID: rest}, nil

	case TokenNote:
		id, err := strconv.ParseUint(rest, 10, 32)
		if err != nil || id == 0 {
			return Token{}, &ParseError{Raw: raw, Reason: "malformed note ID"}
		}
		return Token{Kind: TokenNote, NoteID: uint(id)}, nil

	default:
		return Token{}, &ParseError{Raw: raw, Reason: "unknown kind"}
	}
}
