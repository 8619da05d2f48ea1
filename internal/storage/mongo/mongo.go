// Package mongo is implementation of storage interface over mongodb documents.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Decentr-net/mosaic/internal/entities"
	"github.com/Decentr-net/mosaic/internal/storage"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

type db struct {
	users *mongo.Collection
	posts *mongo.Collection
}

type postDoc struct {
	ID            string    `bson:"_id"`
	Owner         string    `bson:"owner"`
	Content       string    `bson:"content"`
	MediaURL      string    `bson:"mediaUrl"`
	MediaCategory string    `bson:"mediaCategory"`
	Visibility    string    `bson:"visibility"`
	Tags          []string  `bson:"tags"`
	Views         int64     `bson:"views"`
	Likes         []string  `bson:"likes"`
	CreatedAt     time.Time `bson:"createdAt"`
}

type userDoc struct {
	ID        string   `bson:"_id"`
	IsPrivate bool     `bson:"isPrivate"`
	Followers []string `bson:"followers"`
}

// New creates new instance of mongo storage.
func New(d *mongo.Database) storage.Storage {
	return db{
		users: d.Collection(usersCollection),
		posts: d.Collection(postsCollection),
	}
}

// Migrate creates indexes used by storage.
func Migrate(ctx context.Context, d *mongo.Database) error {
	if _, err := d.Collection(postsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "owner", Value: 1},
			{Key: "mediaCategory", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}); err != nil {
		return fmt.Errorf("failed to create posts index: %w", err)
	}

	return nil
}

func (s db) Ping(ctx context.Context) error {
	return s.posts.Database().Client().Ping(ctx, nil)
}

func (s db) GetUser(ctx context.Context, id string) (*entities.User, error) {
	var u userDoc

	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to find: %w", err)
	}

	followers := u.Followers
	if followers == nil {
		followers = []string{}
	}

	return &entities.User{
		ID:        u.ID,
		IsPrivate: u.IsPrivate,
		Followers: followers,
	}, nil
}

// SetUser upserts user. Followers are managed with Follow and Unfollow.
func (s db) SetUser(ctx context.Context, u *entities.User) error {
	if _, err := s.users.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{
			"$set":         bson.M{"isPrivate": u.IsPrivate},
			"$setOnInsert": bson.M{"followers": []string{}},
		},
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	return nil
}

func (s db) Follow(ctx context.Context, follower, followee string) error {
	if _, err := s.users.UpdateOne(ctx,
		bson.M{"_id": followee},
		bson.M{"$addToSet": bson.M{"followers": follower}},
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	return nil
}

func (s db) Unfollow(ctx context.Context, follower, followee string) error {
	if _, err := s.users.UpdateOne(ctx,
		bson.M{"_id": followee},
		bson.M{"$pull": bson.M{"followers": follower}},
	); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	return nil
}

func (s db) CreatePost(ctx context.Context, p *entities.Post) error {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	if _, err := s.posts.InsertOne(ctx, postDoc{
		ID:            p.ID,
		Owner:         p.Owner,
		Content:       p.Content,
		MediaURL:      p.MediaURL,
		MediaCategory: string(p.MediaCategory),
		Visibility:    string(p.Visibility),
		Tags:          tags,
		Views:         0,
		Likes:         []string{},
		CreatedAt:     p.CreatedAt.UTC(),
	}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrAlreadyExists
		}

		return fmt.Errorf("failed to insert: %w", err)
	}

	return nil
}

func (s db) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	var p postDoc

	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to find: %w", err)
	}

	return toEntity(&p), nil
}

func (s db) ListPosts(ctx context.Context, params *storage.ListPostsParams) ([]*entities.Post, error) {
	filter := bson.M{"owner": params.Owner}
	if params.Category != nil {
		filter["mediaCategory"] = string(*params.Category)
	}

	cursor, err := s.posts.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find: %w", err)
	}
	defer cursor.Close(ctx) // nolint:errcheck

	var p []*postDoc
	if err := cursor.All(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}

	out := make([]*entities.Post, len(p))
	for i, v := range p {
		out[i] = toEntity(v)
	}

	return out, nil
}

func (s db) IncrementViews(ctx context.Context, id string) (uint64, error) {
	var p postDoc

	if err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": int64(1)}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"views": 1}),
	).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, storage.ErrNotFound
		}

		return 0, fmt.Errorf("failed to update: %w", err)
	}

	return uint64(p.Views), nil
}

func (s db) AddLike(ctx context.Context, id string, user string) (uint64, error) {
	var p postDoc

	if err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"likes": user}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"likes": 1}),
	).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, storage.ErrNotFound
		}

		return 0, fmt.Errorf("failed to update: %w", err)
	}

	return uint64(len(p.Likes)), nil
}

func (s db) RemoveLike(ctx context.Context, id string, user string) (uint64, bool, error) {
	var p postDoc

	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "likes": user},
		bson.M{"$pull": bson.M{"likes": user}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"likes": 1}),
	).Decode(&p)

	switch {
	case err == nil:
		return uint64(len(p.Likes)), true, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return 0, false, fmt.Errorf("failed to update: %w", err)
	}

	// user did not like the post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"likes": 1}),
	).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("failed to find: %w", err)
	}

	return uint64(len(p.Likes)), false, nil
}

func toEntity(p *postDoc) *entities.Post {
	tags, likes := p.Tags, p.Likes
	if tags == nil {
		tags = []string{}
	}
	if likes == nil {
		likes = []string{}
	}

	return &entities.Post{
		ID:            p.ID,
		Owner:         p.Owner,
		Content:       p.Content,
		MediaURL:      p.MediaURL,
		MediaCategory: entities.MediaCategory(p.MediaCategory),
		Visibility:    entities.Visibility(p.Visibility),
		Tags:          tags,
		Views:         uint64(p.Views),
		Likes:         likes,
		CreatedAt:     p.CreatedAt,
	}
}
