package api

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/estately/estately-server/internal/http/response"
	"github.com/estately/estately-server/internal/objectstore"
)

func (s *Server) registerStorageRoutes() {
	if s.storage == nil || s.storage.PropertyImages == nil {
		return
	}
	s.router.Get("/storage/property-images/*", s.handleServePropertyObject)
}

// handleServePropertyObject serves listing photos publicly. Tax receipts
// share the bucket but are only served to their uploader and to admins.
func (s *Server) handleServePropertyObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	if owner, private := receiptOwner(key); private {
		id := identityFrom(r.Context())
		if id == nil {
			response.Unauthorized(w, "Authentication required", s.logger)
			return
		}
		if !id.IsAdmin && id.User.ID != owner {
			response.Forbidden(w, "You cannot view this document", s.logger)
			return
		}
	}

	f, err := s.storage.PropertyImages.Open(key)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) || errors.Is(err, objectstore.ErrInvalidKey) {
			response.NotFound(w, "File not found", s.logger)
			return
		}
		s.logger.Error("failed to open object", "key", key, "error", err)
		response.InternalError(w, "Failed to read file", s.logger)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.InternalError(w, "Failed to read file", s.logger)
		return
	}

	if _, private := receiptOwner(key); private {
		w.Header().Set("Cache-Control", CachePrivate)
	} else {
		w.Header().Set("Cache-Control", CacheOneWeek)
	}
	http.ServeContent(w, r, path.Base(key), info.ModTime(), f)
}

// receiptOwner reports whether key is a tax receipt, and whose.
func receiptOwner(key string) (string, bool) {
	owner, rest, ok := strings.Cut(key, "/")
	if !ok {
		return "", false
	}
	return owner, strings.HasPrefix(rest, "tax-receipts/")
}
