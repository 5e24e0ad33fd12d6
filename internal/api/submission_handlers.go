package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/http/response"
	"github.com/estately/estately-server/internal/service"
)

// Multipart forms are parsed with this much held in memory; larger parts
// spill to temporary files.
const multipartMemory = 8 << 20

// maxImagesPerSubmission bounds the request size together with the per-file
// limit.
const maxImagesPerSubmission = 20

func (s *Server) registerSubmissionRoutes() {
	// Submissions use chi directly for multipart form handling.
	s.router.Post("/api/v1/properties", withExtendedTimeout(s.handleCreateProperty, 10*time.Minute))
	s.router.Put("/api/v1/properties/{id}", withExtendedTimeout(s.handleEditProperty, 10*time.Minute))
}

// SubmissionResponse is returned by a successful submission.
type SubmissionResponse struct {
	SubmissionID  string `json:"submission_id"`
	Mode          string `json:"mode"`
	Property      any    `json:"property"`
	BytesUploaded int64  `json:"bytes_uploaded"`
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	s.handleSubmission(w, r, "")
}

func (s *Server) handleEditProperty(w http.ResponseWriter, r *http.Request) {
	s.handleSubmission(w, r, chi.URLParam(r, "id"))
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request, propertyID string) {
	user := currentUser(r.Context())
	if user == nil {
		response.Unauthorized(w, "Please sign in to list a property", s.logger)
		return
	}

	limit := s.maxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit*(maxImagesPerSubmission+1)+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.HandleError(w, domainerrors.Validation("Upload is too large"), s.logger)
			return
		}
		response.HandleError(w, domainerrors.Validation("Expected a multipart form").WithCause(err), s.logger)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	req := service.SubmitRequest{
		PropertyID: propertyID,
		Form:       formFromMultipart(r.MultipartForm),
		Images:     attachments(r.MultipartForm.File["images"]),
	}
	if receipts := attachments(r.MultipartForm.File["tax_receipt"]); len(receipts) > 0 {
		req.TaxReceipt = &receipts[0]
	}

	sub, err := s.services.Submission.Submit(r.Context(), user, req)
	if err != nil {
		attrs := []any{"user_id", user.ID, "property_id", propertyID}
		if sub != nil {
			attrs = append(attrs, "submission_id", sub.ID, "state", sub.State())
		}
		if domainerrors.CodeOf(err) == domainerrors.CodeInternal {
			s.logger.Error("submission failed", append(attrs, "error", err)...)
		}
		response.HandleError(w, err, s.logger)
		return
	}

	body := SubmissionResponse{
		SubmissionID:  sub.ID,
		Mode:          string(sub.Mode),
		Property:      sub.Property,
		BytesUploaded: sub.BytesUploaded,
	}
	status := http.StatusOK
	message := "Property updated and sent for review"
	if sub.Mode == service.ModeCreate {
		status = http.StatusCreated
		message = "Property listed and sent for review"
	}

	envelope := response.Wrap(status, body)
	envelope.Message = message
	response.Write(w, status, envelope, s.logger)
}

func formFromMultipart(form *multipart.Form) service.PropertyForm {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return service.PropertyForm{
		Title:       value("title"),
		Price:       value("price"),
		Category:    value("property_type"),
		Bedrooms:    value("bedrooms"),
		Bathrooms:   value("bathrooms"),
		Area:        value("area"),
		Address:     value("address"),
		City:        value("city"),
		State:       value("state"),
		ZipCode:     value("zip_code"),
		Description: value("description"),
	}
}

func attachments(headers []*multipart.FileHeader) []service.Attachment {
	out := make([]service.Attachment, 0, len(headers))
	for _, fh := range headers {
		out = append(out, service.Attachment{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return out
}
