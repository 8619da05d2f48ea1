// Package policy decides whether a viewer may read or like owner's posts.
package policy

import (
	"github.com/Decentr-net/mosaic/internal/entities"
)

// CanView reports whether viewer may read owner's content.
// Only account privacy is taken into account here.
func CanView(viewer string, owner *entities.User) bool {
	if viewer == owner.ID {
		return true
	}

	if owner.IsPrivate && !owner.HasFollower(viewer) {
		return false
	}

	return true
}

// CanInteract reports whether viewer may like the post.
// It requires CanView and, for a private post, a follower relation even when owner's account is public.
// The owner is not exempt from the follower relation.
// Removing an existing like is not a subject of this check.
func CanInteract(viewer string, post *entities.Post, owner *entities.User) bool {
	if !CanView(viewer, owner) {
		return false
	}

	switch post.Visibility {
	case entities.PrivateVisibility:
		return owner.HasFollower(viewer)
	case entities.PublicVisibility:
		return true
	default:
		return false
	}
}
