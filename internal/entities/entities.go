// Package entities contains main entities of service.
package entities

import (
	"fmt"
	"time"
)

// MediaCategory is a kind of media attached to a post.
type MediaCategory string

const (
	// ImageCategory is a square jpeg or png image.
	ImageCategory MediaCategory = "image"
	// ReelCategory is a short mp4 video.
	ReelCategory MediaCategory = "reel"
)

// ParseMediaCategory ...
func ParseMediaCategory(s string) (MediaCategory, error) {
	switch c := MediaCategory(s); c {
	case ImageCategory, ReelCategory:
		return c, nil
	default:
		return "", fmt.Errorf("unknown media category %q", s)
	}
}

// Visibility ...
type Visibility string

const (
	// PublicVisibility ...
	PublicVisibility Visibility = "public"
	// PrivateVisibility restricts likes to owner's followers.
	PrivateVisibility Visibility = "private"
)

// ParseVisibility returns PublicVisibility for empty string.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case "":
		return PublicVisibility, nil
	case PublicVisibility, PrivateVisibility:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// Post ...
type Post struct {
	ID            string
	Owner         string
	Content       string
	MediaURL      string
	MediaCategory MediaCategory
	Visibility    Visibility
	Tags          []string
	Views         uint64
	Likes         []string
	CreatedAt     time.Time
}

// LikedBy ...
func (p Post) LikedBy(user string) bool {
	for _, v := range p.Likes {
		if v == user {
			return true
		}
	}

	return false
}

// User is a view of an account owned by identity subsystem.
type User struct {
	ID        string
	IsPrivate bool
	Followers []string
}

// HasFollower ...
func (u User) HasFollower(id string) bool {
	for _, v := range u.Followers {
		if v == id {
			return true
		}
	}

	return false
}
