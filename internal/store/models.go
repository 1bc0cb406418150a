package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a custom type for storing a list of strings as JSON in the database
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// Action is one of the per-channel grantable note operations.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// ServerConfig holds per-guild settings. One row per guild, created lazily
// the first time configuration is touched.
type ServerConfig struct {
	GuildID          string     `gorm:"primaryKey"`
	AllowedRoleIDs   StringList `gorm:"default:'[]'"`
	DefaultChannelID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ServerConfig) TableName() string {
	return "server_configs"
}

// ChannelGrant gives a single user per-action permissions in a single channel.
// At most one row exists per (guild, channel, user) triple. Flags only ever
// transition false -> true; there is no revoke.
type ChannelGrant struct {
	ID        uint   `gorm:"primaryKey"`
	GuildID   string `gorm:"uniqueIndex:idx_grant_target"`
	ChannelID string `gorm:"uniqueIndex:idx_grant_target"`
	UserID    string `gorm:"uniqueIndex:idx_grant_target"`
	CanCreate bool   `gorm:"default:false"`
	CanEdit   bool   `gorm:"default:false"`
	CanDelete bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ChannelGrant) TableName() string {
	return "channel_grants"
}

// Allows reports whether the grant covers the given action.
func (g *ChannelGrant) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return g.CanCreate
	case ActionEdit:
		return g.CanEdit
	case ActionDelete:
		return g.CanDelete
	}
	return false
}

// Actions returns the granted actions in a stable order, for display.
func (g *ChannelGrant) Actions() []string {
	var actions []string
	if g.CanCreate {
		actions = append(actions, string(ActionCreate))
	}
	if g.CanEdit {
		actions = append(actions, string(ActionEdit))
	}
	if g.CanDelete {
		actions = append(actions, string(ActionDelete))
	}
	return actions
}

// Note is a shared note. MessageID always points at the message currently
// representing the note: edits repost and swap the ID rather than editing the
// old message in place. Deletion is a hard delete, so no gorm.DeletedAt here.
type Note struct {
	ID           uint   `gorm:"primaryKey"`
	GuildID      string `gorm:"index"`
	ChannelID    string
	MessageID    string
	Title        string
	Body         string
	Tags         StringList `gorm:"default:'[]'"`
	AuthorID     string
	AuthorName   string
	LastEditedBy string // empty until the first edit
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (Note) TableName() string {
	return "notes"
}
