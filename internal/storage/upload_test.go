package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("image/png", MaxUploadBytes))
	assert.ErrorIs(t, Validate("image/png", MaxUploadBytes+1), ErrTooLarge)
	assert.ErrorIs(t, Validate("application/pdf", 10), ErrInvalidType)
	assert.ErrorIs(t, Validate("image/svg+xml", 10), ErrInvalidType)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "png", Extension("Summit.PNG", "image/jpeg"))
	assert.Equal(t, "webp", Extension("photo", "image/webp"))
	assert.Equal(t, "jpg", Extension("photo", "image/jpg"))
	assert.Equal(t, "jpg", Extension("", "application/octet-stream"))
	assert.Equal(t, "jpg", Extension("weird.", "image/gif"))
	assert.Equal(t, "jpg", Extension("shot.$$", "image/png"))
	assert.Equal(t, "html", Extension("x.ht/ml", "image/png"))
}

func TestSaveWritesFileAndThumbnail(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public", "uploads")
	s := NewStore(dir, "/uploads/", zap.NewNop())
	s.Now = func() time.Time { return time.UnixMilli(1700000000000) }

	data := pngBytes(t, 900, 600)
	saved, err := s.Save(bytes.NewReader(data), "camp.png", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.URL, "/uploads/1700000000000-"))
	assert.True(t, strings.HasSuffix(saved.URL, ".png"))
	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(saved.URL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	require.NotEmpty(t, saved.ThumbnailURL)
	thumb, err := imaging.Open(filepath.Join(dir, strings.TrimPrefix(saved.ThumbnailURL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, ThumbWidth, thumb.Bounds().Dx())
	assert.Equal(t, 200, thumb.Bounds().Dy())
}

func TestSaveUndecodableSkipsThumbnail(t *testing.T) {
	s := NewStore(t.TempDir(), "/uploads", zap.NewNop())
	saved, err := s.Save(strings.NewReader("RIFF....WEBPVP8 "), "x.webp", "image/webp")
	require.NoError(t, err)
	assert.Empty(t, saved.ThumbnailURL)
}

func TestSaveNamesAreUnique(t *testing.T) {
	s := NewStore(t.TempDir(), "/uploads", zap.NewNop())
	s.Now = func() time.Time { return time.UnixMilli(1) }
	a, err := s.Save(strings.NewReader("a"), "a.gif", "image/gif")
	require.NoError(t, err)
	b, err := s.Save(strings.NewReader("b"), "b.gif", "image/gif")
	require.NoError(t, err)
	assert.NotEqual(t, a.URL, b.URL)
}

func TestSaveDirectoryFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := NewStore(filepath.Join(blocker, "uploads"), "/uploads", zap.NewNop())
	_, err := s.Save(strings.NewReader("a"), "a.png", "image/png")
	assert.ErrorIs(t, err, ErrCreateDir)
}

func TestSaveRejectsOversizedStream(t *testing.T) {
	s := NewStore(t.TempDir(), "/uploads", zap.NewNop())
	big := bytes.NewReader(make([]byte, MaxUploadBytes+1))
	_, err := s.Save(big, "big.png", "image/png")
	assert.ErrorIs(t, err, ErrTooLarge)
}
