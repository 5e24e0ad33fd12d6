package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/favorites"
	"github.com/estately/estately-server/internal/journal"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/objectstore"
	"github.com/estately/estately-server/internal/search"
	"github.com/estately/estately-server/internal/service"
	"github.com/estately/estately-server/internal/sse"
	"github.com/estately/estately-server/internal/store/sqlite"
)

const testPublicURL = "http://localhost:8080"

// testServer wraps the API server with handles tests poke at directly.
type testServer struct {
	*Server
	api     humatest.TestAPI
	store   *sqlite.Store
	bucket  *objectstore.Bucket
	journal *journal.Journal
	index   *search.SearchIndex
	mailer  *outbox
}

// outbox records reset links instead of sending mail.
type outbox struct {
	links []string
}

func (o *outbox) SendPasswordReset(_ context.Context, _, _, link string) error {
	o.links = append(o.links, link)
	return nil
}

// testEnvelope mirrors response.Envelope with typed data.
type testEnvelope[T any] struct {
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	return env
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer creates a test server with all dependencies. Options may
// adjust the config before the server is built.
func setupTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := discardLogger()

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	key, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	bucket, err := objectstore.NewBucket(filepath.Join(tmpDir, "objects"), "property-images", testPublicURL)
	require.NoError(t, err)

	uploads, err := journal.OpenInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = uploads.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(tmpDir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{PublicURL: testPublicURL},
		Uploads: config.UploadsConfig{
			MaxFileBytes: domain.DefaultMaxAttachmentBytes,
			OrphanGrace:  time.Hour,
		},
		RateLimit: config.RateLimitConfig{AuthPerMinute: 1000, AuthBurst: 100},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sseManager := sse.NewManager(logger)
	m := metrics.New()
	mailer := &outbox{}
	registry := favorites.NewRegistry(st, logger)
	sessions := service.NewSessionService(st, tokens, logger)

	services := &Services{
		Auth: service.NewAuthService(st, tokens, sessions, registry, mailer, logger, service.AuthOptions{
			PublicURL: testPublicURL,
		}),
		Listing:    service.NewListingService(st, index, logger),
		Favorites:  service.NewFavoritesService(registry, st, sseManager, m, logger),
		Submission: service.NewSubmissionService(st, bucket, uploads, index, sseManager, m, logger, cfg.Uploads.MaxFileBytes),
		Moderation: service.NewModerationService(st, index, sseManager, m, logger),
		Search:     index,
	}

	srv := NewServer(st, services, &StorageServices{PropertyImages: bucket}, sseManager, m, cfg, logger)
	t.Cleanup(func() { _ = srv.Shutdown() })

	return &testServer{
		Server:  srv,
		api:     humatest.Wrap(t, srv.api),
		store:   st,
		bucket:  bucket,
		journal: uploads,
		index:   index,
		mailer:  mailer,
	}
}

// signUp creates an account through the API and returns its access token
// and user ID. The first account is the admin.
func (ts *testServer) signUp(t *testing.T, name string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":             name,
		"email":            name + "@example.com",
		"password":         "hunter22",
		"confirm_password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.Code, "sign up failed: %s", resp.Body.String())

	env := decode[service.AuthResponse](t, resp.Body.Bytes())
	require.True(t, env.Success)
	return env.Data.AccessToken, env.Data.User.ID
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

// seedListing stores a listing directly.
func (ts *testServer) seedListing(t *testing.T, sellerID string, status domain.Status, title string) *domain.Property {
	t.Helper()
	p := &domain.Property{
		Syncable:  domain.Syncable{ID: fmt.Sprintf("prop-%d", time.Now().UnixNano())},
		SellerID:  sellerID,
		Title:     title,
		Price:     300000,
		Category:  domain.CategoryHouse,
		Bedrooms:  3,
		Bathrooms: 2,
		Area:      1500,
		Address:   "12 Elm St",
		City:      "Austin",
		State:     "TX",
		ZipCode:   "78701",
		Images:    []string{},
		Status:    status,
	}
	p.InitTimestamps()
	if status == domain.StatusPending {
		p.TaxReceiptURL = ts.bucket.PublicURL(sellerID + "/tax-receipts/seed.pdf")
	}
	require.NoError(t, ts.store.CreateProperty(context.Background(), p))
	require.NoError(t, ts.index.Sync(p))
	return p
}

// formFile is one file part of a multipart submission.
type formFile struct {
	field, name, contentType string
	data                     []byte
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := range 16 {
		for y := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func validForm() map[string]string {
	return map[string]string{
		"title":         "Sunny bungalow",
		"price":         "425000",
		"property_type": "house",
		"bedrooms":      "3",
		"bathrooms":     "2",
		"area":          "1650",
		"address":       "9 Oak Ave",
		"city":          "Austin",
		"state":         "TX",
		"zip_code":      "78702",
		"description":   "Light-filled home near the park.",
	}
}

// submit sends a multipart submission through the full router.
func (ts *testServer) submit(t *testing.T, method, path, token string, fields map[string]string, files []formFile) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

// get issues a plain request through the router, for non-huma routes.
func (ts *testServer) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}
