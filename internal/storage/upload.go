// Package storage writes uploaded images to the public upload directory.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxUploadBytes is the enforced size ceiling.  The client-facing message
// (TooLargeMessage) still advertises 10MB.
const MaxUploadBytes = 20 * 1024 * 1024

// TooLargeMessage is returned to clients for oversized uploads.
const TooLargeMessage = "File size too large. Maximum size is 10MB."

// ThumbWidth is the width in pixels of generated thumbnails.
const ThumbWidth = 300

var (
	// ErrInvalidType is returned for content types outside the allow-list.
	ErrInvalidType = errors.New("invalid file type")
	// ErrTooLarge is returned for files over MaxUploadBytes.
	ErrTooLarge = errors.New("file too large")
	// ErrCreateDir wraps failures creating the upload directory.
	ErrCreateDir = errors.New("create upload directory")
	// ErrWriteFile wraps failures writing the file.
	ErrWriteFile = errors.New("write upload")
)

// mimeExt is both the allow-list and the extension fallback table.
var mimeExt = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Validate checks the declared content type and size.
func Validate(contentType string, size int64) error {
	if _, ok := mimeExt[contentType]; !ok {
		return ErrInvalidType
	}
	if size > MaxUploadBytes {
		return ErrTooLarge
	}
	return nil
}

// Extension takes the extension from the file name when it contains a dot,
// falling back to "jpg" when nothing usable follows the last dot.  Names
// without a dot use the content type, then "jpg".  Characters outside
// [a-z0-9] are dropped from a name-derived extension.
func Extension(filename, contentType string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		ext := strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, strings.ToLower(filename[i+1:]))
		if ext == "" {
			return "jpg"
		}
		return ext
	}
	if ext, ok := mimeExt[contentType]; ok {
		return ext
	}
	return "jpg"
}

// Saved describes a stored upload.
type Saved struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Store saves files under Dir and exposes them below PublicPrefix.
type Store struct {
	Dir          string
	PublicPrefix string
	Log          *zap.Logger
	Now          func() time.Time
}

// NewStore returns a Store rooted at dir.
func NewStore(dir, publicPrefix string, log *zap.Logger) *Store {
	return &Store{Dir: dir, PublicPrefix: strings.TrimRight(publicPrefix, "/"), Log: log, Now: time.Now}
}

// Save writes the content of r under a "<unix-millis>-<random>.<ext>"
// name.  Decodable images also get a ThumbWidth-wide JPEG thumbnail; a
// thumbnail failure is logged and does not fail the upload.
func (s *Store) Save(r io.Reader, filename, contentType string) (*Saved, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateDir, err)
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := fmt.Sprintf("%d-%s.%s", s.Now().UnixMilli(), suffix, Extension(filename, contentType))
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFile, err)
	}

	out := &Saved{URL: s.PublicPrefix + "/" + name}
	if thumb, err := s.thumbnail(data, name); err != nil {
		s.Log.Debug("thumbnail skipped", zap.String("file", name), zap.Error(err))
	} else {
		out.ThumbnailURL = s.PublicPrefix + "/" + thumb
	}
	return out, nil
}

func (s *Store) thumbnail(data []byte, name string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumb := "thumb-" + strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	resized := imaging.Resize(img, ThumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(resized, filepath.Join(s.Dir, thumb)); err != nil {
		return "", err
	}
	return thumb, nil
}
