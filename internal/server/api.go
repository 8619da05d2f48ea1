package server

import (
	"github.com/Decentr-net/mosaic/internal/entities"
)

// CreatePostResponse ...
// swagger:model
type CreatePostResponse struct {
	ID string `json:"id"`
}

// ListPostsResponse ...
// swagger:model
type ListPostsResponse struct {
	Posts []Post `json:"posts"`
}

// Post ...
// swagger:model
type Post struct {
	ID            string                 `json:"id"`
	Owner         string                 `json:"owner"`
	Content       string                 `json:"content"`
	MediaURL      string                 `json:"mediaUrl"`
	MediaCategory entities.MediaCategory `json:"mediaCategory"`
	Visibility    entities.Visibility    `json:"visibility"`
	Tags          []string               `json:"tags"`
	Views         uint64                 `json:"views"`
	LikesCount    uint64                 `json:"likesCount"`
	// Liked is true when requester likes the post.
	Liked     bool  `json:"liked"`
	CreatedAt int64 `json:"createdAt"`
}

// LikeResponse ...
// swagger:model
type LikeResponse struct {
	Liked      bool   `json:"liked"`
	LikesCount uint64 `json:"likesCount"`
}
