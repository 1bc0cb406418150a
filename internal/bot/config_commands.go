package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"notes-bot/internal/interaction"
	"notes-bot/internal/store"
)

// handleConfig covers the owner-only guild configuration subcommands.
func handleConfig(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	if !ev.Actor.IsOwner {
		return r.Reply(ctx, "Only the server owner can configure the bot.", true)
	}

	switch ev.Subcommand {
	case "setchannel":
		channelID := ev.Options["channel"]
		if channelID == "" {
			return r.Reply(ctx, "A channel is required.", true)
		}
		if err := d.store.SetDefaultChannel(ctx, ev.GuildID, channelID); err != nil {
			return err
		}
		return r.Reply(ctx, fmt.Sprintf("Set <#%s> as the default channel for shared notes.", channelID), true)

	case "createrole":
		return d.createManagementRole(ctx, r, ev)

	case "assignrole":
		return d.assignManagementRole(ctx, r, ev)

	case "addrole":
		roleID := ev.Options["role"]
		if roleID == "" {
			return r.Reply(ctx, "A role is required.", true)
		}
		added, err := d.store.AddAllowedRole(ctx, ev.GuildID, roleID)
		if err != nil {
			return err
		}
		if !added {
			return r.Reply(ctx, "This role is already allowed to manage shared notes.", true)
		}

		// When a default channel is configured, open it up for the role too.
		cfg, err := d.store.GuildConfig(ctx, ev.GuildID)
		if err != nil {
			return err
		}
		if cfg.DefaultChannelID != "" {
			if err := d.roles.AllowRoleInChannel(ctx, cfg.DefaultChannelID, roleID); err != nil {
				log.Printf("Failed to set channel permissions for role %s: %v", roleID, err)
				return r.Reply(ctx, fmt.Sprintf("Added <@&%s> to allowed roles, but couldn't set channel permissions.", roleID), true)
			}
			return r.Reply(ctx, fmt.Sprintf("Added <@&%s> to allowed roles and granted permissions in <#%s>.", roleID, cfg.DefaultChannelID), true)
		}
		return r.Reply(ctx, fmt.Sprintf("Added <@&%s> to allowed roles.", roleID), true)

	case "removerole":
		roleID := ev.Options["role"]
		if roleID == "" {
			return r.Reply(ctx, "A role is required.", true)
		}
		removed, err := d.store.RemoveAllowedRole(ctx, ev.GuildID, roleID)
		if err != nil {
			return err
		}
		if !removed {
			return r.Reply(ctx, "This role is not in the allowed list.", true)
		}
		return r.Reply(ctx, fmt.Sprintf("Removed <@&%s> from allowed roles.", roleID), true)

	case "listroles":
		cfg, err := d.store.GuildConfig(ctx, ev.GuildID)
		if err != nil {
			return err
		}
		if len(cfg.AllowedRoleIDs) == 0 {
			return r.Reply(ctx, "No roles are configured. The server owner and administrators can always manage notes.", true)
		}
		mentions := make([]string, 0, len(cfg.AllowedRoleIDs))
		for _, id := range cfg.AllowedRoleIDs {
			mentions = append(mentions, "<@&"+id+">")
		}
		return r.Reply(ctx, "Allowed roles: "+strings.Join(mentions, ", "), true)

	case "info":
		cfg, err := d.store.GuildConfig(ctx, ev.GuildID)
		if err != nil {
			return err
		}
		channelInfo := "Not set"
		if cfg.DefaultChannelID != "" {
			channelInfo = "<#" + cfg.DefaultChannelID + ">"
		}
		rolesInfo := "None (only owner and admins)"
		if len(cfg.AllowedRoleIDs) > 0 {
			mentions := make([]string, 0, len(cfg.AllowedRoleIDs))
			for _, id := range cfg.AllowedRoleIDs {
				mentions = append(mentions, "<@&"+id+">")
			}
			rolesInfo = strings.Join(mentions, ", ")
		}
		return r.Reply(ctx, fmt.Sprintf("**Bot Configuration**\n\n**Default Channel:** %s\n**Allowed Roles:** %s", channelInfo, rolesInfo), true)

	default:
		return r.Reply(ctx, "Unknown config subcommand.", true)
	}
}

const defaultRoleName = "Shared Notes Manager"

// createManagementRole creates a platform role scoped to the default notes
// channel, registers it as an allowed role, and optionally seeds it with up
// to three members.
func (d *Dispatcher) createManagementRole(ctx context.Context, r interaction.Responder, ev *interaction.Command) error {
	cfg, err := d.store.GuildConfig(ctx, ev.GuildID)
	if err != nil {
		return err
	}
	if cfg.DefaultChannelID == "" {
		return r.Reply(ctx, "Please set a default channel first using /snote-config setchannel.", true)
	}

	name := ev.Options["name"]
	if name == "" {
		name = defaultRoleName
	}

	roleID, err := d.roles.CreateRole(ctx, ev.GuildID, name)
	if err != nil {
		return err
	}
	if err := d.roles.AllowRoleInChannel(ctx, cfg.DefaultChannelID, roleID); err != nil {
		return err
	}
	if _, err := d.store.AddAllowedRole(ctx, ev.GuildID, roleID); err != nil {
		return err
	}

	// Seeding members is best-effort; the role exists either way.
	var added []string
	for _, opt := range []string{"user1", "user2", "user3"} {
		userID := ev.Options[opt]
		if userID == "" {
			continue
		}
		if err := d.roles.AddMemberRole(ctx, ev.GuildID, userID, roleID); err != nil {
			log.Printf("Failed to add member %s to role %s: %v", userID, roleID, err)
			continue
		}
		added = append(added, "<@"+userID+">")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created role <@&%s> with permissions to manage notes in <#%s>.", roleID, cfg.DefaultChannelID)
	if len(added) > 0 {
		fmt.Fprintf(&b, "\n\nAdded to role: %s", strings.Join(added, ", "))
	}
	b.WriteString("\n\nUse /snote-config assignrole to add more users to this role.")
	return r.Reply(ctx, b.String(), true)
}

// assignManagementRole adds or removes one member from an allowed role. Roles
// outside the allowed list are refused so the command cannot be used to hand
// out arbitrary roles.
func (d *Dispatcher) assignManagementRole(ctx context.Context, r interaction.Responder, ev *interaction.Command) error {
	roleID := ev.Options["role"]
	userID := ev.Options["user"]
	action := ev.Options["action"]
	if roleID == "" || userID == "" || (action != "add" && action != "remove") {
		return r.Reply(ctx, "A role, user and action (add or remove) are required.", true)
	}

	cfg, err := d.store.GuildConfig(ctx, ev.GuildID)
	if err != nil {
		return err
	}
	allowed := false
	for _, id := range cfg.AllowedRoleIDs {
		if id == roleID {
			allowed = true
			break
		}
	}
	if !allowed {
		return r.Reply(ctx, "This role is not configured for shared notes management. Add it with /snote-config addrole first.", true)
	}

	if action == "add" {
		if err := d.roles.AddMemberRole(ctx, ev.GuildID, userID, roleID); err != nil {
			return err
		}
		return r.Reply(ctx, fmt.Sprintf("Added <@%s> to <@&%s>.", userID, roleID), true)
	}
	if err := d.roles.RemoveMemberRole(ctx, ev.GuildID, userID, roleID); err != nil {
		return err
	}
	return r.Reply(ctx, fmt.Sprintf("Removed <@%s> from <@&%s>.", userID, roleID), true)
}

// handleGrant gives one user one action in one channel. Grants only ever add;
// there is no revoke.
func handleGrant(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	if !ev.Actor.IsOwner && !ev.Actor.IsAdmin {
		return r.Reply(ctx, "Only the server owner or an admin can grant permissions.", true)
	}

	userID := ev.Options["user"]
	channelID := ev.Options["channel"]
	action := store.Action(ev.Options["action"])
	if userID == "" || channelID == "" || !action.Valid() {
		return r.Reply(ctx, "A user, channel and action (create, edit or delete) are required.", true)
	}

	if _, err := d.store.Grant(ctx, ev.GuildID, channelID, userID, action); err != nil {
		return err
	}
	return r.Reply(ctx, fmt.Sprintf("Granted %s permission to <@%s> in <#%s>.", action, userID, channelID), true)
}

// handleListGrants shows which users hold which grants, grouped by channel.
func handleListGrants(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	allowed, err := d.resolver.CanManageWide(ctx, ev.Actor, ev.GuildID)
	if err != nil {
		return err
	}
	if !allowed {
		return r.Reply(ctx, "You do not have permission to view channel grants.", true)
	}

	grants, err := d.store.GrantsFor(ctx, ev.GuildID, ev.Options["channel"])
	if err != nil {
		return err
	}
	if len(grants) == 0 {
		return r.Reply(ctx, "No permissions found for the selected channel(s).", true)
	}

	var b strings.Builder
	b.WriteString("**Channel Permissions**\n")
	lastChannel := ""
	for i := range grants {
		g := &grants[i]
		if g.ChannelID != lastChannel {
			fmt.Fprintf(&b, "<#%s>\n", g.ChannelID)
			lastChannel = g.ChannelID
		}
		actions := strings.Join(g.Actions(), ", ")
		if actions == "" {
			actions = "none"
		}
		fmt.Fprintf(&b, "- <@%s>: %s\n", g.UserID, actions)
	}
	return r.Reply(ctx, b.String(), true)
}

const helpText = `**Shared Notes Bot - Command Help**

**Note Management**
- /snote-create (or /sn-create) - permission required in the target channel
- /snote-edit (or /sn-edit) - permission required in the note's channel
- /snote-delete (or /sn-delete) - permission required in the note's channel
- /snote-list (or /sn-list) - allowed role, admin or owner

**Configuration**
- /snote-config (or /sn-config) - server owner only
- /config-grant - admin/owner: grant a user create, edit or delete in a channel
- /list-permissions - allowed role, admin or owner

**Permission Details**
- Per-user, per-channel grants control create/edit/delete.
- The server owner and administrators can always manage notes.
- Allowed roles cover listing and the edit button on posted notes.`

// handleHelp is the one reply that is not private.
func handleHelp(ctx context.Context, d *Dispatcher, r interaction.Responder, ev *interaction.Command) error {
	return r.Reply(ctx, helpText, false)
}
