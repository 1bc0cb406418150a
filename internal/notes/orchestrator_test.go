package notes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"notes-bot/internal/interaction"
	"notes-bot/internal/permission"
	"notes-bot/internal/store"
	"notes-bot/internal/transport"
)

// fakeMessenger records posted messages in memory and hands out sequential
// message IDs.
type fakeMessenger struct {
	nextID   int
	messages map[string]transport.OutgoingMessage // messageID -> content
	channels map[string]bool                      // channelID -> is text

	sendErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		messages: make(map[string]transport.OutgoingMessage),
		channels: map[string]bool{"c1": true, "c2": true, "voice": false},
	}
}

func (m *fakeMessenger) SendMessage(ctx context.Context, channelID string, msg transport.OutgoingMessage) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	if _, ok := m.channels[channelID]; !ok {
		return "", transport.ErrNotFound
	}
	m.nextID++
	id := "m" + strconv.Itoa(m.nextID)
	m.messages[id] = msg
	return id, nil
}

func (m *fakeMessenger) EditMessage(ctx context.Context, channelID, messageID string, msg transport.OutgoingMessage) error {
	if _, ok := m.messages[messageID]; !ok {
		return transport.ErrNotFound
	}
	m.messages[messageID] = msg
	return nil
}

func (m *fakeMessenger) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if _, ok := m.messages[messageID]; !ok {
		return transport.ErrNotFound
	}
	delete(m.messages, messageID)
	return nil
}

func (m *fakeMessenger) Channel(ctx context.Context, channelID string) (transport.ChannelInfo, error) {
	text, ok := m.channels[channelID]
	if !ok {
		return transport.ChannelInfo{}, transport.ErrNotFound
	}
	return transport.ChannelInfo{ID: channelID, Text: text}, nil
}

// fakeResponder records everything sent back to the actor.
type fakeResponder struct {
	replies []string
	private []bool
	modals  []interaction.Modal
	choices [][]interaction.Choice
}

func (r *fakeResponder) Reply(ctx context.Context, content string, private bool) error {
	r.replies = append(r.replies, content)
	r.private = append(r.private, private)
	return nil
}

func (r *fakeResponder) ShowModal(ctx context.Context, modal interaction.Modal) error {
	r.modals = append(r.modals, modal)
	return nil
}

func (r *fakeResponder) Choices(ctx context.Context, choices []interaction.Choice) error {
	r.choices = append(r.choices, choices)
	return nil
}

func (r *fakeResponder) lastReply(t *testing.T) string {
	t.Helper()
	if len(r.replies) == 0 {
		t.Fatal("no reply was sent")
	}
	return r.replies[len(r.replies)-1]
}

func testOrchestrator(t *testing.T) (*Orchestrator, *store.Store, *fakeMessenger) {
	t.Helper()

	dsn := fmt.Sprintf("file:notes_%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	s := store.New(gdb)
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	m := newFakeMessenger()
	return New(s, permission.NewResolver(s), m), s, m
}

var admin = permission.Actor{ID: "u-admin", Username: "admin", IsAdmin: true}

func createFields(title, body, tags string) map[string]string {
	return map[string]string{fieldTitle: title, fieldContent: body, fieldTags: tags}
}

func TestBeginCreateDeniedPostsNothing(t *testing.T) {
	o, _, m := testOrchestrator(t)
	r := &fakeResponder{}

	actor := permission.Actor{ID: "u1", Username: "alice"}
	if err := o.BeginCreate(context.Background(), r, actor, "g1", "c1"); err != nil {
		t.Fatalf("BeginCreate: %v", err)
	}

	if len(r.modals) != 0 {
		t.Error("denied actor still got a prompt")
	}
	if len(m.messages) != 0 {
		t.Error("denied create posted a message")
	}
	if !strings.Contains(r.lastReply(t), "permission") {
		t.Errorf("reply = %q, want a permission denial", r.lastReply(t))
	}
}

func TestBeginCreateOpensModalWithChannelToken(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	r := &fakeResponder{}

	if err := o.BeginCreate(context.Background(), r, admin, "g1", "c1"); err != nil {
		t.Fatalf("BeginCreate: %v", err)
	}
	if len(r.modals) != 1 {
		t.Fatalf("got %d modals, want 1", len(r.modals))
	}

	tok, err := interaction.Decode(r.modals[0].Token)
	if err != nil {
		t.Fatalf("modal token does not decode: %v", err)
	}
	if tok.Kind != interaction.TokenCreate || tok.ChannelID != "c1" {
		t.Errorf("token = %+v, want create token for c1", tok)
	}
}

func TestBeginCreateFallsBackToDefaultChannel(t *testing.T) {
	o, s, _ := testOrchestrator(t)
	ctx := context.Background()

	r := &fakeResponder{}
	if err := o.BeginCreate(ctx, r, admin, "g1", ""); err != nil {
		t.Fatalf("BeginCreate without default: %v", err)
	}
	if len(r.modals) != 0 {
		t.Error("got a prompt without any target channel")
	}

	if err := s.SetDefaultChannel(ctx, "g1", "c2"); err != nil {
		t.Fatal(err)
	}
	r = &fakeResponder{}
	if err := o.BeginCreate(ctx, r, admin, "g1", ""); err != nil {
		t.Fatalf("BeginCreate with default: %v", err)
	}
	if len(r.modals) != 1 {
		t.Fatal("default channel did not open a prompt")
	}
	tok, _ := interaction.Decode(r.modals[0].Token)
	if tok.ChannelID != "c2" {
		t.Errorf("token channel = %q, want c2", tok.ChannelID)
	}
}

func TestBeginCreateRejectsNonTextChannel(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	r := &fakeResponder{}

	if err := o.BeginCreate(context.Background(), r, admin, "g1", "voice"); err != nil {
		t.Fatalf("BeginCreate: %v", err)
	}
	if len(r.modals) != 0 {
		t.Error("non-text channel still got a prompt")
	}
}

func TestSubmitCreatePostsAndPersists(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()
	r := &fakeResponder{}

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	err := o.SubmitCreate(ctx, r, admin, "g1", tok, createFields("Welcome", "Hello there", "intro, rules"))
	if err != nil {
		t.Fatalf("SubmitCreate: %v", err)
	}

	notes, err := s.ListNotes(ctx, "g1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	n := notes[0]
	if n.Title != "Welcome" || n.Body != "Hello there" || n.AuthorID != admin.ID {
		t.Errorf("note = %+v", n)
	}
	if len(n.Tags) != 2 || n.Tags[0] != "intro" || n.Tags[1] != "rules" {
		t.Errorf("tags = %v", n.Tags)
	}

	msg, ok := m.messages[n.MessageID]
	if !ok {
		t.Fatalf("note points at message %q which was not posted", n.MessageID)
	}
	if msg.Embed == nil || msg.Embed.Title != "Welcome" {
		t.Errorf("posted message = %+v", msg)
	}
	// Decoration after persisting attaches footer and edit button.
	if !strings.Contains(msg.Embed.FooterText, fmt.Sprintf("Note #%d", n.ID)) {
		t.Errorf("footer = %q, want note ID", msg.Embed.FooterText)
	}
	if len(msg.Buttons) != 1 {
		t.Fatalf("got %d buttons, want 1", len(msg.Buttons))
	}
	btok, err := interaction.Decode(msg.Buttons[0].Token)
	if err != nil || btok.Kind != interaction.TokenNote || btok.NoteID != n.ID {
		t.Errorf("button token = %+v (%v)", btok, err)
	}

	if !strings.Contains(r.lastReply(t), fmt.Sprintf("#%d", n.ID)) {
		t.Errorf("confirmation = %q, want note ID", r.lastReply(t))
	}
}

func TestSubmitCreateReAuthorizes(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()
	r := &fakeResponder{}

	// Token claims c1 but the actor holds no grant there: possession of the
	// token must not grant anything.
	actor := permission.Actor{ID: "u1", Username: "alice"}
	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, r, actor, "g1", tok, createFields("t", "b", "")); err != nil {
		t.Fatalf("SubmitCreate: %v", err)
	}

	if len(m.messages) != 0 {
		t.Error("unauthorized submission posted a message")
	}
	notes, _ := s.ListNotes(ctx, "g1", "", 10)
	if len(notes) != 0 {
		t.Error("unauthorized submission persisted a note")
	}
}

func TestSubmitCreateValidatesFields(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()
	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}

	for _, fields := range []map[string]string{
		createFields("", "body", ""),
		createFields("   ", "body", ""),
		createFields("title", "", ""),
		createFields("title", "  \n ", ""),
	} {
		r := &fakeResponder{}
		if err := o.SubmitCreate(ctx, r, admin, "g1", tok, fields); err != nil {
			t.Fatalf("SubmitCreate(%v): %v", fields, err)
		}
		if !strings.Contains(r.lastReply(t), "required") {
			t.Errorf("reply = %q, want validation message", r.lastReply(t))
		}
	}
	if len(m.messages) != 0 {
		t.Error("invalid submission posted a message")
	}
	notes, _ := s.ListNotes(ctx, "g1", "", 10)
	if len(notes) != 0 {
		t.Error("invalid submission persisted a note")
	}
}

func TestSubmitCreateTransportFaultPropagates(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()
	m.sendErr = errors.New("gateway down")

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields("t", "b", ""))
	if err == nil {
		t.Fatal("transport fault was swallowed")
	}
	notes, _ := s.ListNotes(ctx, "g1", "", 10)
	if len(notes) != 0 {
		t.Error("note persisted despite the message never posting")
	}
}

func TestSubmitCreateTruncatesLongBodyForDisplayOnly(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()
	r := &fakeResponder{}

	body := strings.Repeat("x", 5000)
	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, r, admin, "g1", tok, createFields("Long", body, "")); err != nil {
		t.Fatalf("SubmitCreate: %v", err)
	}

	notes, _ := s.ListNotes(ctx, "g1", "", 10)
	if len(notes) != 1 {
		t.Fatal("note not persisted")
	}
	if len(notes[0].Body) != 5000 {
		t.Errorf("stored body length = %d, want 5000 (full text)", len(notes[0].Body))
	}

	msg := m.messages[notes[0].MessageID]
	desc := msg.Embed.Description
	if len([]rune(desc)) != truncateTo+3 {
		t.Errorf("displayed length = %d, want %d", len([]rune(desc)), truncateTo+3)
	}
	if !strings.HasSuffix(desc, "...") {
		t.Error("truncated body does not end in ellipsis")
	}
	if len(msg.Embed.Fields) == 0 || msg.Embed.Fields[0].Value != truncationNotice {
		t.Error("truncation notice missing from posted message")
	}
}

func TestSubmitEditRepostsAndKeepsIdentity(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields("Before", "old body", "a")); err != nil {
		t.Fatal(err)
	}
	created, _ := s.ListNotes(ctx, "g1", "", 10)
	orig := created[0]

	editor := permission.Actor{ID: "u-editor", Username: "bob", IsAdmin: true}
	r := &fakeResponder{}
	if err := o.SubmitEdit(ctx, r, editor, "g1", orig.ID, createFields("After", "new body", "b")); err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}

	got, err := s.NoteByID(ctx, "g1", orig.ID)
	if err != nil {
		t.Fatalf("NoteByID: %v", err)
	}
	if got.ID != orig.ID {
		t.Errorf("edit changed note ID: %d -> %d", orig.ID, got.ID)
	}
	if got.AuthorID != admin.ID {
		t.Errorf("edit changed author: %q", got.AuthorID)
	}
	if got.LastEditedBy != editor.ID {
		t.Errorf("LastEditedBy = %q, want %q", got.LastEditedBy, editor.ID)
	}
	if got.Title != "After" || got.Body != "new body" {
		t.Errorf("content not updated: %+v", got)
	}
	if got.MessageID == orig.MessageID {
		t.Error("edit did not repost: message ID unchanged")
	}
	if _, ok := m.messages[orig.MessageID]; ok {
		t.Error("old message still present after edit")
	}
	if _, ok := m.messages[got.MessageID]; !ok {
		t.Error("new message not posted")
	}
}

func TestSubmitEditSurvivesMissingOldMessage(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields("t", "b", "")); err != nil {
		t.Fatal(err)
	}
	created, _ := s.ListNotes(ctx, "g1", "", 10)
	note := created[0]

	// Someone deleted the message out from under the bot.
	delete(m.messages, note.MessageID)

	r := &fakeResponder{}
	if err := o.SubmitEdit(ctx, r, admin, "g1", note.ID, createFields("t2", "b2", "")); err != nil {
		t.Fatalf("SubmitEdit with missing old message: %v", err)
	}
	got, _ := s.NoteByID(ctx, "g1", note.ID)
	if got.Title != "t2" {
		t.Error("edit did not complete after missing old message")
	}
}

func TestBeginEditPrefillsModal(t *testing.T) {
	o, s, _ := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields("Title", "Body", "x, y")); err != nil {
		t.Fatal(err)
	}
	created, _ := s.ListNotes(ctx, "g1", "", 10)

	r := &fakeResponder{}
	if err := o.BeginEdit(ctx, r, admin, "g1", created[0].ID); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if len(r.modals) != 1 {
		t.Fatal("no prompt opened")
	}

	values := map[string]string{}
	for _, in := range r.modals[0].Inputs {
		values[in.ID] = in.Value
	}
	if values[fieldTitle] != "Title" || values[fieldContent] != "Body" {
		t.Errorf("prefill = %v", values)
	}
	if values[fieldTags] != "x, y" {
		t.Errorf("tags prefill = %q, want %q", values[fieldTags], "x, y")
	}
}

func TestBeginEditUnknownNote(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	r := &fakeResponder{}

	if err := o.BeginEdit(context.Background(), r, admin, "g1", 999); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if len(r.modals) != 0 {
		t.Error("prompt opened for a missing note")
	}
	if !strings.Contains(r.lastReply(t), "not found") {
		t.Errorf("reply = %q, want not-found", r.lastReply(t))
	}
}

func TestBeginEditFromButtonUsesWideCheck(t *testing.T) {
	o, s, _ := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields("t", "b", "")); err != nil {
		t.Fatal(err)
	}
	created, _ := s.ListNotes(ctx, "g1", "", 10)
	noteID := created[0].ID

	// A per-channel grant alone does not satisfy the button's wide check.
	if _, err := s.Grant(ctx, "g1", "c1", "u1", store.ActionEdit); err != nil {
		t.Fatal(err)
	}
	granted := permission.Actor{ID: "u1", Username: "alice"}
	r := &fakeResponder{}
	if err := o.BeginEditFromButton(ctx, r, granted, "g1", noteID); err != nil {
		t.Fatalf("BeginEditFromButton: %v", err)
	}
	if len(r.modals) != 0 {
		t.Error("channel grant opened the button prompt")
	}

	// Membership in an allowed role does.
	if _, err := s.AddAllowedRole(ctx, "g1", "mods"); err != nil {
		t.Fatal(err)
	}
	mod := permission.Actor{ID: "u2", Username: "mod", RoleIDs: []string{"mods"}}
	r = &fakeResponder{}
	if err := o.BeginEditFromButton(ctx, r, mod, "g1", noteID); err != nil {
		t.Fatalf("BeginEditFromButton: %v", err)
	}
	if len(r.modals) != 1 {
		t.Error("allowed role member did not get the prompt")
	}
}

func TestDeleteRemovesNoteAndMessage(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields("t", "b", "")); err != nil {
		t.Fatal(err)
	}
	created, _ := s.ListNotes(ctx, "g1", "", 10)
	note := created[0]

	r := &fakeResponder{}
	if err := o.Delete(ctx, r, admin, "g1", note.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.NoteByID(ctx, "g1", note.ID); !errors.Is(err, store.ErrNoteNotFound) {
		t.Error("note still present after delete")
	}
	if _, ok := m.messages[note.MessageID]; ok {
		t.Error("message still present after delete")
	}

	// Deleting again reports not found rather than succeeding silently.
	r = &fakeResponder{}
	if err := o.Delete(ctx, r, admin, "g1", note.ID); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if !strings.Contains(r.lastReply(t), "not found") {
		t.Errorf("second delete reply = %q, want not-found", r.lastReply(t))
	}
}

func TestDeleteDenied(t *testing.T) {
	o, s, m := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields("t", "b", "")); err != nil {
		t.Fatal(err)
	}
	created, _ := s.ListNotes(ctx, "g1", "", 10)
	note := created[0]

	// Create permission in the channel does not imply delete.
	if _, err := s.Grant(ctx, "g1", "c1", "u1", store.ActionCreate); err != nil {
		t.Fatal(err)
	}
	r := &fakeResponder{}
	if err := o.Delete(ctx, r, permission.Actor{ID: "u1"}, "g1", note.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.NoteByID(ctx, "g1", note.ID); err != nil {
		t.Error("denied delete removed the note")
	}
	if _, ok := m.messages[note.MessageID]; !ok {
		t.Error("denied delete removed the message")
	}
}

func TestListCapsAndOrders(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	for i := 0; i < 12; i++ {
		fields := createFields(fmt.Sprintf("note %02d", i), "b", "")
		if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, fields); err != nil {
			t.Fatal(err)
		}
	}

	r := &fakeResponder{}
	if err := o.List(ctx, r, admin, "g1", ""); err != nil {
		t.Fatalf("List: %v", err)
	}
	reply := r.lastReply(t)
	if strings.Count(reply, "note ") != ListPageSize {
		t.Errorf("list shows %d entries, want %d\n%s", strings.Count(reply, "note "), ListPageSize, reply)
	}
	if !strings.Contains(reply, "note 11") {
		t.Error("newest note missing from list")
	}
	if strings.Contains(reply, "note 00") || strings.Contains(reply, "note 01") {
		t.Error("oldest notes should fall off the capped list")
	}
	if !r.private[len(r.private)-1] {
		t.Error("list reply was not private")
	}
}

func TestListEmptyAndDenied(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	r := &fakeResponder{}
	if err := o.List(ctx, r, admin, "g1", ""); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(r.lastReply(t), "No shared notes") {
		t.Errorf("empty list reply = %q", r.lastReply(t))
	}

	r = &fakeResponder{}
	if err := o.List(ctx, r, permission.Actor{ID: "u1"}, "g1", ""); err != nil {
		t.Fatalf("List denied: %v", err)
	}
	if !strings.Contains(r.lastReply(t), "permission") {
		t.Errorf("denied list reply = %q", r.lastReply(t))
	}
}

func TestSuggestNotesFiltersByTitleAndID(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	tok := interaction.Token{Kind: interaction.TokenCreate, ChannelID: "c1"}
	for _, title := range []string{"Server Rules", "Welcome Guide", "FAQ"} {
		if err := o.SubmitCreate(ctx, &fakeResponder{}, admin, "g1", tok, createFields(title, "b", "")); err != nil {
			t.Fatal(err)
		}
	}

	choices, err := o.SuggestNotes(ctx, "g1", "rules")
	if err != nil {
		t.Fatalf("SuggestNotes: %v", err)
	}
	if len(choices) != 1 || !strings.Contains(choices[0].Name, "Server Rules") {
		t.Errorf("choices = %v", choices)
	}

	// An empty partial suggests everything, newest first.
	all, err := o.SuggestNotes(ctx, "g1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if !strings.Contains(all[0].Name, "FAQ") {
		t.Errorf("first suggestion = %q, want newest", all[0].Name)
	}

	// Matching by ID digits works too.
	byID, err := o.SuggestNotes(ctx, "g1", all[0].Value)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range byID {
		if c.Value == all[0].Value {
			found = true
		}
	}
	if !found {
		t.Errorf("ID %q not matched: %v", all[0].Value, byID)
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{", ,a,,", []string{"a"}},
		{"dup, dup", []string{"dup", "dup"}},
	}
	for _, tt := range tests {
		got := parseTags(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseTags(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseTags(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestDisplayBody(t *testing.T) {
	short, truncated := displayBody("hello")
	if truncated || short != "hello" {
		t.Errorf("displayBody(short) = (%q, %v)", short, truncated)
	}

	exact := strings.Repeat("a", DisplayLimit)
	got, truncated := displayBody(exact)
	if truncated || got != exact {
		t.Error("body at the limit was truncated")
	}

	long, truncated := displayBody(strings.Repeat("é", DisplayLimit+1))
	if !truncated {
		t.Fatal("over-limit body not truncated")
	}
	if n := len([]rune(long)); n != truncateTo+3 {
		t.Errorf("truncated length = %d runes, want %d", n, truncateTo+3)
	}
}
