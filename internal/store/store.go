package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNoteNotFound is returned when a note lookup or delete targets an ID that
// does not exist (or belongs to another guild).
var ErrNoteNotFound = errors.New("store: note not found")

// Store wraps the shared database handle with the keyed access the bot needs.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tables for all persisted entities.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&ServerConfig{},
		&ChannelGrant{},
		&Note{},
	)
}

// GuildConfig returns the config row for a guild, creating an empty one on
// first access.
func (s *Store) GuildConfig(ctx context.Context, guildID string) (*ServerConfig, error) {
	var cfg ServerConfig
	err := s.db.WithContext(ctx).
		Where(ServerConfig{GuildID: guildID}).
		Attrs(ServerConfig{AllowedRoleIDs: StringList{}}).
		FirstOrCreate(&cfg).Error
	if err != nil {
		return nil, fmt.Errorf("load guild config: %w", err)
	}
	return &cfg, nil
}

// SetDefaultChannel updates the guild's default notes channel.
func (s *Store) SetDefaultChannel(ctx context.Context, guildID, channelID string) error {
	cfg, err := s.GuildConfig(ctx, guildID)
	if err != nil {
		return err
	}
	cfg.DefaultChannelID = channelID
	if err := s.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return fmt.Errorf("save guild config: %w", err)
	}
	return nil
}

// AddAllowedRole adds a role to the guild's management roles. Returns false
// if the role was already present.
func (s *Store) AddAllowedRole(ctx context.Context, guildID, roleID string) (bool, error) {
	cfg, err := s.GuildConfig(ctx, guildID)
	if err != nil {
		return false, err
	}
	for _, id := range cfg.AllowedRoleIDs {
		if id == roleID {
			return false, nil
		}
	}
	cfg.AllowedRoleIDs = append(cfg.AllowedRoleIDs, roleID)
	if err := s.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return false, fmt.Errorf("save guild config: %w", err)
	}
	return true, nil
}

// RemoveAllowedRole removes a role from the guild's management roles. Returns
// false if the role was not in the list.
func (s *Store) RemoveAllowedRole(ctx context.Context, guildID, roleID string) (bool, error) {
	cfg, err := s.GuildConfig(ctx, guildID)
	if err != nil {
		return false, err
	}
	for i, id := range cfg.AllowedRoleIDs {
		if id == roleID {
			cfg.AllowedRoleIDs = append(cfg.AllowedRoleIDs[:i], cfg.AllowedRoleIDs[i+1:]...)
			if err := s.db.WithContext(ctx).Save(cfg).Error; err != nil {
				return false, fmt.Errorf("save guild config: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

// GrantFor returns the grant row for the triple, or nil when none exists.
// A missing row means "no permissions", never an error.
func (s *Store) GrantFor(ctx context.Context, guildID, channelID, userID string) (*ChannelGrant, error) {
	var grant ChannelGrant
	err := s.db.WithContext(ctx).
		Where("guild_id = ? AND channel_id = ? AND user_id = ?", guildID, channelID, userID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load grant: %w", err)
	}
	return &grant, nil
}

// Grant sets the flag for one action on the (guild, channel, user) triple,
// creating the row with all flags false on first grant. Flags are only ever
// set, never cleared.
func (s *Store) Grant(ctx context.Context, guildID, channelID, userID string, action Action) (*ChannelGrant, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	var grant ChannelGrant
	err := s.db.WithContext(ctx).
		Where(ChannelGrant{GuildID: guildID, ChannelID: channelID, UserID: userID}).
		FirstOrCreate(&grant).Error
	if err != nil {
		return nil, fmt.Errorf("upsert grant: %w", err)
	}

	switch action {
	case ActionCreate:
		grant.CanCreate = true
	case ActionEdit:
		grant.CanEdit = true
	case ActionDelete:
		grant.CanDelete = true
	}

	if err := s.db.WithContext(ctx).Save(&grant).Error; err != nil {
		return nil, fmt.Errorf("save grant: %w", err)
	}
	return &grant, nil
}

// GrantsFor lists all grants in a guild, optionally narrowed to one channel.
func (s *Store) GrantsFor(ctx context.Context, guildID, channelID string) ([]ChannelGrant, error) {
	q := s.db.WithContext(ctx).Where("guild_id = ?", guildID)
	if channelID != "" {
		q = q.Where("channel_id = ?", channelID)
	}

	var grants []ChannelGrant
	if err := q.Order("channel_id, user_id").Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return grants, nil
}

// CreateNote persists a new note and fills in its assigned ID.
func (s *Store) CreateNote(ctx context.Context, note *Note) error {
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// NoteByID loads a note scoped to a guild.
func (s *Store) NoteByID(ctx context.Context, guildID string, id uint) (*Note, error) {
	var note Note
	err := s.db.WithContext(ctx).
		Where("id = ? AND guild_id = ?", id, guildID).
		First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load note %d: %w", id, err)
	}
	return &note, nil
}

// UpdateNote saves the full note record. Two concurrent edits race on
// last-write-wins for the content and message ID; that is accepted.
func (s *Store) UpdateNote(ctx context.Context, note *Note) error {
	if err := s.db.WithContext(ctx).Save(note).Error; err != nil {
		return fmt.Errorf("update note %d: %w", note.ID, err)
	}
	return nil
}

// DeleteNote permanently removes a note. Returns ErrNoteNotFound when the ID
// does not exist in the guild, so a second delete never succeeds silently.
func (s *Store) DeleteNote(ctx context.Context, guildID string, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND guild_id = ?", id, guildID).
		Delete(&Note{})
	if result.Error != nil {
		return fmt.Errorf("delete note %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// ListNotes returns up to limit notes for a guild, newest first, optionally
// filtered to one channel.
func (s *Store) ListNotes(ctx context.Context, guildID, channelID string, limit int) ([]Note, error) {
	q := s.db.WithContext(ctx).Where("guild_id = ?", guildID)
	if channelID != "" {
		q = q.Where("channel_id = ?", channelID)
	}

	var notes []Note
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}
