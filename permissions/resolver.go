package permissions

import (
	"context"
	"fmt"

	"guild-guardian/model"

	"github.com/bwmarrin/discordgo"
)

// Category groups commands by the platform capability they require by default.
type Category string

const (
	CategoryModeration Category = "moderation"
	CategoryAdmin      Category = "admin"
	CategoryUtility    Category = "utility"
)

var commandCategories = map[string]Category{
	"timeout":      CategoryModeration,
	"warn":         CategoryModeration,
	"kick":         CategoryModeration,
	"ban":          CategoryModeration,
	"history":      CategoryModeration,
	"protection":   CategoryAdmin,
	"permission":   CategoryAdmin,
	"setup":        CategoryAdmin,
	"autoresponse": CategoryAdmin,
	"sysinfo":      CategoryUtility,
}

// CategoryOf returns the command's category. Unregistered commands are utility.
func CategoryOf(command string) Category {
	if c, ok := commandCategories[command]; ok {
		return c
	}
	return CategoryUtility
}

// Actor is the member invoking a command.
type Actor struct {
	UserID      string
	GuildID     string
	GuildOwner  string
	RoleIDs     []string
	Permissions int64
}

func (a Actor) has(perm int64) bool {
	return a.Permissions&perm == perm
}

// GrantStore is the part of the Policy Store holding role grants.
type GrantStore interface {
	GetRolePermissionGrants(ctx context.Context, guildID, command string) ([]model.RolePermissionGrant, error)
	IsCommandRestrictedForAdmins(ctx context.Context, guildID, command string) (bool, error)
}

// Resolver decides whether an actor may run a privileged command.
// Nothing is cached between calls beyond what the store does.
type Resolver struct {
	store  GrantStore
	owners map[string]struct{}
}

func NewResolver(store GrantStore, ownerIDs []string) *Resolver {
	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}
	return &Resolver{store: store, owners: owners}
}

// CanUse resolves in order: bot owner, guild owner, administrator (unless the
// command is restricted for admins), explicit role grants, category default.
// A store error denies.
func (r *Resolver) CanUse(ctx context.Context, actor Actor, command string) (bool, error) {
	if _, ok := r.owners[actor.UserID]; ok {
		return true, nil
	}
	if actor.GuildOwner != "" && actor.UserID == actor.GuildOwner {
		return true, nil
	}

	if actor.has(discordgo.PermissionAdministrator) {
		restricted, err := r.store.IsCommandRestrictedForAdmins(ctx, actor.GuildID, command)
		if err != nil {
			return false, fmt.Errorf("failed to check admin restriction for %s: %w", command, err)
		}
		if !restricted {
			return true, nil
		}
	}

	grants, err := r.store.GetRolePermissionGrants(ctx, actor.GuildID, command)
	if err != nil {
		return false, fmt.Errorf("failed to get grants for %s: %w", command, err)
	}
	if len(grants) > 0 {
		roles := make(map[string]struct{}, len(actor.RoleIDs))
		for _, id := range actor.RoleIDs {
			roles[id] = struct{}{}
		}
		for _, g := range grants {
			if _, ok := roles[g.RoleID]; ok && g.Allowed {
				return true, nil
			}
		}
		return false, nil
	}

	switch CategoryOf(command) {
	case CategoryModeration:
		return actor.has(discordgo.PermissionModerateMembers), nil
	case CategoryAdmin:
		return actor.has(discordgo.PermissionManageGuild), nil
	case CategoryUtility:
		return true, nil
	}
	return false, nil
}
