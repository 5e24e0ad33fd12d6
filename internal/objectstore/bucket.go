// Package objectstore provides filesystem-backed object buckets with public URLs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/estately/estately-server/internal/id"
)

// PropertyImages is the bucket holding listing photos and tax receipts.
const PropertyImages = "property-images"

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty keys and keys escaping the bucket.
var ErrInvalidKey = errors.New("invalid object key")

// Bucket stores objects under {basePath}/{name}/{key}.
// Thread-safe for concurrent operations.
type Bucket struct {
	name       string
	root       string
	publicBase string
	mu         sync.RWMutex
}

// NewBucket creates the bucket directory if needed. publicURL is the
// externally reachable server origin; objects are served at
// {publicURL}/storage/{name}/{key}.
func NewBucket(basePath, name, publicURL string) (*Bucket, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}

	root := filepath.Join(basePath, name)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s bucket: %w", name, err)
	}

	return &Bucket{
		name:       name,
		root:       root,
		publicBase: strings.TrimRight(publicURL, "/") + "/storage/" + name + "/",
	}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Root returns the bucket's directory on disk.
func (b *Bucket) Root() string { return b.root }

// Put writes r to key and returns the number of bytes stored.
// The object becomes visible atomically once fully written.
func (b *Bucket) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dst, err := b.Path(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("write object %s: %w", key, err)
	}

	// Only the commit is ordered against Delete; the copy runs unlocked.
	b.mu.Lock()
	err = os.Rename(tmpName, dst)
	b.mu.Unlock()
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("commit object %s: %w", key, err)
	}
	return n, nil
}

// Open returns a reader for key. The caller closes it.
func (b *Bucket) Open(key string) (*os.File, error) {
	p, err := b.Path(key)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// Exists checks if an object is stored under key.
func (b *Bucket) Exists(key string) bool {
	p, err := b.Path(key)
	if err != nil {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	_, err = os.Stat(p)
	return err == nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.Path(key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL returns the unsigned, non-expiring URL of key.
func (b *Bucket) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.publicBase + strings.Join(segments, "/")
}

// KeyFromURL recovers the object key from a URL produced by PublicURL.
func (b *Bucket) KeyFromURL(u string) (string, bool) {
	rest, ok := strings.CutPrefix(u, b.publicBase)
	if !ok || rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return key, true
}

// Path returns the filesystem path for key, rejecting keys that would
// escape the bucket root.
func (b *Bucket) Path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

// ImageKey builds the object key for a listing photo:
// {userID}/{unixMillis}-{random}.{ext}.
func ImageKey(userID, filename string, now time.Time) (string, error) {
	return objectKey(userID, "", filename, now)
}

// TaxReceiptKey builds the object key for a verification document:
// {userID}/tax-receipts/{unixMillis}-{random}.{ext}.
func TaxReceiptKey(userID, filename string, now time.Time) (string, error) {
	return objectKey(userID, "tax-receipts/", filename, now)
}

func objectKey(userID, sub, filename string, now time.Time) (string, error) {
	if userID == "" || strings.ContainsAny(userID, "/\\") {
		return "", ErrInvalidKey
	}
	suffix, err := id.Suffix(8)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s%d-%s", userID, sub, now.UnixMilli(), suffix)
	if ext := Ext(filename); ext != "" {
		key += "." + ext
	}
	return key, nil
}

// Ext returns the lowercase extension of filename without the dot.
// Extensions with anything other than letters and digits are dropped.
func Ext(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
