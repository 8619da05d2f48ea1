// Package media contains media admission rules and media store interface.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register jpeg decoder
	_ "image/png"  // register png decoder
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Decentr-net/mosaic/internal/entities"
)

//go:generate mockgen -destination=./mock/media.go -package=mock -source=media.go

const (
	// MiB ...
	MiB = 1 << 20

	// MaxImageSize is the largest admitted image.
	MaxImageSize = 10 * MiB
	// MaxReelSize is the largest admitted video.
	MaxReelSize = 50 * MiB

	rootDir  = "user-post-media"
	imageDir = "user-image"
	reelDir  = "user-reel"
)

var (
	// ErrUnsupportedFormat is returned when file is not a jpeg, png or mp4.
	ErrUnsupportedFormat = errors.New("unsupported media format")
	// ErrPayloadTooLarge is returned when file exceeds size limit of its category.
	ErrPayloadTooLarge = errors.New("media is too large")
	// ErrAspectRatioViolation is returned when an image is not square.
	ErrAspectRatioViolation = errors.New("image must be square")
)

// Store places admitted media to durable storage.
type Store interface {
	// Store saves data under the key and returns public url of the saved object.
	Store(ctx context.Context, key string, mimeType string, data []byte) (string, error)
	// Delete removes object saved under the key.
	Delete(ctx context.Context, key string) error
}

// Upload is a file received with post creation request.
type Upload struct {
	MimeType string
	Size     int64
	Data     []byte
	Name     string
}

// Admission is a result of successful validation.
type Admission struct {
	Category entities.MediaCategory
	MimeType string
	// Key is a canonical storage path of the file.
	Key string
}

// Validator admits uploads.
type Validator struct {
	now func() time.Time
}

// NewValidator creates new instance of Validator. now is used to name stored files.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}

	return &Validator{
		now: now,
	}
}

// Admit validates the upload and decides where it should be stored.
// id is the id of the post the upload belongs to, it keeps keys of simultaneous uploads distinct.
func (v *Validator) Admit(f *Upload, id string) (*Admission, error) {
	mimeType := normalizeMimeType(f.MimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMimeType(mimetype.Detect(f.Data).String())
	}

	size := f.Size
	if l := int64(len(f.Data)); l > size {
		size = l
	}

	var category entities.MediaCategory
	switch mimeType {
	case "image/jpeg", "image/png":
		category = entities.ImageCategory
	case "video/mp4":
		category = entities.ReelCategory
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	switch category {
	case entities.ImageCategory:
		if size > MaxImageSize {
			return nil, fmt.Errorf("%w: image exceeds %d MiB", ErrPayloadTooLarge, MaxImageSize/MiB)
		}

		cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode image: %s", ErrUnsupportedFormat, err.Error())
		}

		if cfg.Width != cfg.Height {
			return nil, fmt.Errorf("%w: got %dx%d", ErrAspectRatioViolation, cfg.Width, cfg.Height)
		}
	case entities.ReelCategory:
		if size > MaxReelSize {
			return nil, fmt.Errorf("%w: video exceeds %d MiB", ErrPayloadTooLarge, MaxReelSize/MiB)
		}
	}

	return &Admission{
		Category: category,
		MimeType: mimeType,
		Key:      v.key(category, id, f.Name),
	}, nil
}

func (v *Validator) key(c entities.MediaCategory, id string, name string) string {
	var dir string
	switch c {
	case entities.ImageCategory:
		dir = imageDir
	case entities.ReelCategory:
		dir = reelDir
	}

	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = "media"
	}

	return path.Join(rootDir, dir, fmt.Sprintf("%d_%s_%s", v.now().UnixNano()/int64(time.Millisecond), id, name))
}

// CategoryOfKey returns category of media stored under the key issued by Validator.
func CategoryOfKey(key string) (entities.MediaCategory, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] != rootDir {
		return "", false
	}

	switch parts[1] {
	case imageDir:
		return entities.ImageCategory, true
	case reelDir:
		return entities.ReelCategory, true
	default:
		return "", false
	}
}

func normalizeMimeType(s string) string {
	if s == "" {
		return ""
	}

	t, _, err := mime.ParseMediaType(s)
	if err != nil {
		t = s
	}
	t = strings.ToLower(strings.TrimSpace(t))

	if t == "image/jpg" {
		return "image/jpeg"
	}

	return t
}
