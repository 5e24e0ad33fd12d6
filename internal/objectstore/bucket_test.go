package objectstore

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestBucket(t *testing.T) *Bucket {
	t.Helper()
	b, err := NewBucket(t.TempDir(), PropertyImages, "http://localhost:8080/")
	require.NoError(t, err)
	return b
}

func TestNewBucket(t *testing.T) {
	t.Run("creates bucket directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		b, err := NewBucket(tmpDir, PropertyImages, "http://localhost:8080")
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(tmpDir, PropertyImages))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, PropertyImages, b.Name())
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		b, err := NewBucket("", PropertyImages, "")
		assert.Error(t, err)
		assert.Nil(t, b)
		assert.Contains(t, err.Error(), "base path cannot be empty")
	})
}

func TestBucket_PutOpenDelete(t *testing.T) {
	b := setupTestBucket(t)
	ctx := context.Background()

	n, err := b.Put(ctx, "user-1/photo.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.True(t, b.Exists("user-1/photo.jpg"))

	f, err := b.Open("user-1/photo.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, b.Delete(ctx, "user-1/photo.jpg"))
	assert.False(t, b.Exists("user-1/photo.jpg"))

	// Idempotent.
	require.NoError(t, b.Delete(ctx, "user-1/photo.jpg"))

	_, err = b.Open("user-1/photo.jpg")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestBucket_SlowUploadDoesNotBlockOthers(t *testing.T) {
	b := setupTestBucket(t)
	ctx := context.Background()

	_, err := b.Put(ctx, "user-1/existing.jpg", strings.NewReader("old"))
	require.NoError(t, err)

	pr, pw := io.Pipe()
	slow := make(chan error, 1)
	go func() {
		_, err := b.Put(ctx, "user-2/large.jpg", pr)
		slow <- err
	}()

	// Stall the slow upload mid-copy.
	_, err = pw.Write([]byte("first chunk"))
	require.NoError(t, err)

	others := make(chan error, 1)
	go func() {
		f, err := b.Open("user-1/existing.jpg")
		if err != nil {
			others <- err
			return
		}
		f.Close()
		_, err = b.Put(ctx, "user-3/small.jpg", strings.NewReader("small"))
		others <- err
	}()

	select {
	case err := <-others:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Open and Put waited on an unrelated upload")
	}

	require.NoError(t, pw.Close())
	require.NoError(t, <-slow)
	assert.True(t, b.Exists("user-2/large.jpg"))
}

func TestBucket_PutLeavesNoTempFiles(t *testing.T) {
	b := setupTestBucket(t)

	_, err := b.Put(context.Background(), "user-1/a.png", strings.NewReader("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(b.Root(), "user-1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.png", entries[0].Name())
}

func TestBucket_RejectsEscapingKeys(t *testing.T) {
	b := setupTestBucket(t)

	for _, key := range []string{"", "/etc/passwd", "../outside", "user-1/../../x", "a\\b", "user-1/./a"} {
		_, err := b.Put(context.Background(), key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestBucket_PublicURLRoundTrip(t *testing.T) {
	b := setupTestBucket(t)

	u := b.PublicURL("user-1/tax-receipts/1700000000000-abc.pdf")
	assert.Equal(t, "http://localhost:8080/storage/property-images/user-1/tax-receipts/1700000000000-abc.pdf", u)

	key, ok := b.KeyFromURL(u)
	require.True(t, ok)
	assert.Equal(t, "user-1/tax-receipts/1700000000000-abc.pdf", key)

	_, ok = b.KeyFromURL("https://elsewhere.example/x.jpg")
	assert.False(t, ok)
}

func TestObjectKeys(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	key, err := ImageKey("user-1", "Front Porch.JPG", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user-1/1700000000123-[0-9a-z]{8}\.jpg$`), key)

	key, err = TaxReceiptKey("user-1", "receipt.pdf", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user-1/tax-receipts/1700000000123-[0-9a-z]{8}\.pdf$`), key)

	key, err = ImageKey("user-1", "no-extension", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user-1/1700000000123-[0-9a-z]{8}$`), key)

	_, err = ImageKey("../evil", "x.jpg", now)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestExt(t *testing.T) {
	assert.Equal(t, "webp", Ext("house.WEBP"))
	assert.Equal(t, "", Ext("house"))
	assert.Equal(t, "", Ext("weird.j%g"))
}

func TestBucket_Placeholder(t *testing.T) {
	b := setupTestBucket(t)

	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for y := range 80 {
		for x := range 120 {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(y * 3), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	_, err := b.Put(context.Background(), "user-1/gradient.png", &buf)
	require.NoError(t, err)

	hash, err := b.Placeholder("user-1/gradient.png")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = b.Put(context.Background(), "user-1/not-image.png", strings.NewReader("nope"))
	require.NoError(t, err)
	_, err = b.Placeholder("user-1/not-image.png")
	assert.Error(t, err)
}
