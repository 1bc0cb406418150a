package permission

import (
	"context"

	"notes-bot/internal/store"
)

// Actor is the resolved identity of the user behind an interaction, as
// delivered by the transport. Owner and admin status come from the platform
// and are never persisted here, so the bot can never lock them out.
type Actor struct {
	ID       string
	Username string
	IsOwner  bool
	IsAdmin  bool
	RoleIDs  []string
}

// Resolver decides whether an actor may perform note operations. All denied
// outcomes are ordinary return values; an error means the store itself failed.
type Resolver struct {
	store *store.Store
}

func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// CanPerform checks create/edit/delete permission for one channel.
// Resolution order, first match wins:
//  1. guild owner
//  2. administrator
//  3. a channel grant with the matching action flag
//
// A missing grant row reads as all-false.
func (r *Resolver) CanPerform(ctx context.Context, actor Actor, guildID, channelID string, action store.Action) (bool, error) {
	if actor.IsOwner || actor.IsAdmin {
		return true, nil
	}

	grant, err := r.store.GrantFor(ctx, guildID, channelID, actor.ID)
	if err != nil {
		return false, err
	}
	if grant == nil {
		return false, nil
	}
	return grant.Allows(action), nil
}

// CanManageWide checks the guild-wide management capability used by list and
// the prompt-opening affordances: owner, administrator, or membership in any
// of the configured allowed roles. A missing config row reads as an empty
// role list.
func (r *Resolver) CanManageWide(ctx context.Context, actor Actor, guildID string) (bool, error) {
	if actor.IsOwner || actor.IsAdmin {
		return true, nil
	}

	cfg, err := r.store.GuildConfig(ctx, guildID)
	if err != nil {
		return false, err
	}
	if len(cfg.AllowedRoleIDs) == 0 {
		return false, nil
	}

	allowed := make(map[string]bool, len(cfg.AllowedRoleIDs))
	for _, id := range cfg.AllowedRoleIDs {
		allowed[id] = true
	}
	for _, id := range actor.RoleIDs {
		if allowed[id] {
			return true, nil
		}
	}
	return false, nil
}
