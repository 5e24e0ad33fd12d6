package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/id"
	"github.com/estately/estately-server/internal/sse"
	"github.com/estately/estately-server/internal/store/sqlite"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	ts, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)
	return ts
}

// seedUser creates an account with a profile and the given roles.
func seedUser(t *testing.T, st *sqlite.Store, name string, roles ...domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Syncable:    domain.Syncable{ID: id.MustGenerate("user")},
		Email:       strings.ToLower(name) + "@example.com",
		DisplayName: name,
		LastLoginAt: time.Now(),
	}
	u.InitTimestamps()
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleMember}
	}
	require.NoError(t, st.CreateAccount(context.Background(), u, domain.ProfileFor(u), roles))
	return u
}

// seedProperty stores a listing owned by seller.
func seedProperty(t *testing.T, st *sqlite.Store, seller *domain.User, status domain.Status, opts ...func(*domain.Property)) *domain.Property {
	t.Helper()
	p := &domain.Property{
		Syncable:  domain.Syncable{ID: id.MustGenerate("prop")},
		SellerID:  seller.ID,
		Title:     "Test listing",
		Price:     250000,
		Category:  domain.CategoryHouse,
		Bedrooms:  3,
		Bathrooms: 2,
		Area:      1800,
		Address:   "1 Main St",
		City:      "Austin",
		State:     "TX",
		ZipCode:   "78701",
		Images:    []string{},
		Status:    status,
	}
	p.InitTimestamps()
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, st.CreateProperty(context.Background(), p))
	return p
}

// memBucket is an in-memory ObjectBucket. failOnPut makes the nth Put
// (1-based) fail.
type memBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      int
	deletes   []string
	failOnPut int
}

func newMemBucket() *memBucket {
	return &memBucket{objects: make(map[string][]byte)}
}

func (b *memBucket) Name() string { return "property-images" }

func (b *memBucket) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	if b.failOnPut > 0 && b.puts == b.failOnPut {
		return 0, errBoom
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.objects[key] = data
	return int64(len(data)), nil
}

func (b *memBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, key)
	delete(b.objects, key)
	return nil
}

func (b *memBucket) PublicURL(key string) string {
	return "http://test/storage/property-images/" + key
}

func (b *memBucket) KeyFromURL(u string) (string, bool) {
	return strings.CutPrefix(u, "http://test/storage/property-images/")
}

func (b *memBucket) Placeholder(key string) (string, error) {
	return "", fmt.Errorf("%s: not an image", key)
}

func (b *memBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

func (b *memBucket) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts
}

// recordingEmitter collects emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// recordingIndexer remembers the last synced state of each listing.
type recordingIndexer struct {
	mu     sync.Mutex
	synced map[string]domain.Status
}

func (r *recordingIndexer) Sync(p *domain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.synced == nil {
		r.synced = make(map[string]domain.Status)
	}
	r.synced[p.ID] = p.Status
	return nil
}

func (r *recordingIndexer) status(id string) (domain.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.synced[id]
	return s, ok
}

func jpeg(name string, size int) Attachment {
	return BytesAttachment(name, "image/jpeg", bytes.Repeat([]byte{0xFF}, size))
}
