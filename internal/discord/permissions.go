package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker decides whether the author of an interaction acts as a
// therapist.
type PermissionChecker struct {
	therapistRoleID string
}

// NewPermissionChecker creates a PermissionChecker for the given role ID.
func NewPermissionChecker(therapistRoleID string) *PermissionChecker {
	return &PermissionChecker{therapistRoleID: therapistRoleID}
}

// IsTherapist reports whether the interaction author has the therapist
// role. With no role configured every member counts as a therapist.
// Interactions outside a guild (no Member) never do.
func (p *PermissionChecker) IsTherapist(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if p.therapistRoleID == "" {
		return true
	}
	return slices.Contains(i.Member.Roles, p.therapistRoleID)
}

// UserName returns the name the dialogue engine knows the author by: the
// Discord username, in guilds and in direct messages alike.
func UserName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}
