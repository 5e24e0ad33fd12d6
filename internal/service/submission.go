package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/estately/estately-server/internal/domain"
	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/id"
	"github.com/estately/estately-server/internal/journal"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/normalize"
	"github.com/estately/estately-server/internal/objectstore"
	"github.com/estately/estately-server/internal/sse"
	"github.com/estately/estately-server/internal/store"
	"github.com/estately/estately-server/internal/validation"
)

// SubmissionMode distinguishes new listings from edits.
type SubmissionMode string

// Submission modes.
const (
	ModeCreate SubmissionMode = "create"
	ModeEdit   SubmissionMode = "edit"
)

// SubmissionState is one step of a property submission.
type SubmissionState string

// Submission states, in the order a successful submission visits them.
const (
	StateEditing    SubmissionState = "editing"
	StateValidating SubmissionState = "validating"
	StateUploading  SubmissionState = "uploading"
	StatePersisting SubmissionState = "persisting"
	StateDone       SubmissionState = "done"
	StateFailed     SubmissionState = "failed"
)

var submissionTransitions = map[SubmissionState][]SubmissionState{
	StateEditing:    {StateValidating},
	StateValidating: {StateUploading, StateFailed},
	StateUploading:  {StatePersisting, StateFailed},
	StatePersisting: {StateDone, StateFailed},
}

// Submission records the progress of one submit attempt.
type Submission struct {
	ID         string
	Mode       SubmissionMode
	PropertyID string
	// Property is the persisted listing once the submission is done.
	Property *domain.Property
	// Uploaded lists the object keys written so far.
	Uploaded      []string
	BytesUploaded int64

	mu      sync.Mutex
	state   SubmissionState
	history []SubmissionState
}

func newSubmission(mode SubmissionMode, propertyID string) (*Submission, error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, fmt.Errorf("generate submission ID: %w", err)
	}
	return &Submission{
		ID:         subID,
		Mode:       mode,
		PropertyID: propertyID,
		state:      StateEditing,
		history:    []SubmissionState{StateEditing},
	}, nil
}

// State returns the current state.
func (s *Submission) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state visited, in order.
func (s *Submission) History() []SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SubmissionState(nil), s.history...)
}

func (s *Submission) advance(to SubmissionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range submissionTransitions[s.state] {
		if allowed == to {
			s.state = to
			s.history = append(s.history, to)
			return nil
		}
	}
	return fmt.Errorf("submission %s: illegal transition %s -> %s", s.ID, s.state, to)
}

// Attachment is one file selected in the form.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// BytesAttachment wraps in-memory content as an Attachment.
func BytesAttachment(name, contentType string, data []byte) Attachment {
	return Attachment{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// PropertyForm is the submission form as entered. Numeric fields arrive as
// text and are parsed during validation.
type PropertyForm struct {
	Title       string `json:"title" validate:"required,max=200"`
	Price       string `json:"price" validate:"required"`
	Category    string `json:"property_type" validate:"required,oneof=house apartment condo land commercial"`
	Bedrooms    string `json:"bedrooms" validate:"required"`
	Bathrooms   string `json:"bathrooms" validate:"required"`
	Area        string `json:"area" validate:"required"`
	Address     string `json:"address" validate:"required,max=300"`
	City        string `json:"city" validate:"required,max=100"`
	State       string `json:"state" validate:"required,max=100"`
	ZipCode     string `json:"zip_code" validate:"required,max=20"`
	Description string `json:"description" validate:"required,max=20000"`
}

// parsedForm holds the cleaned, typed form values.
type parsedForm struct {
	title, address, city, state, zip, description string
	category                                      domain.Category
	price                                         int64
	bedrooms, bathrooms, area                     int
}

// SubmitRequest is one submit of the property form. An empty PropertyID
// creates a listing; otherwise the listing is edited.
type SubmitRequest struct {
	PropertyID string
	Form       PropertyForm
	Images     []Attachment
	TaxReceipt *Attachment
}

// SubmissionStore is the persistence surface submissions need.
type SubmissionStore interface {
	GetProperty(ctx context.Context, id string) (*domain.Property, error)
	CreateProperty(ctx context.Context, property *domain.Property) error
	UpdateProperty(ctx context.Context, property *domain.Property) error
}

// ObjectBucket stores uploaded files.
type ObjectBucket interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(u string) (string, bool)
	Placeholder(key string) (string, error)
}

// UploadJournal records uploads so failed submissions can be undone.
type UploadJournal interface {
	Begin(ctx context.Context, submissionID, userID, bucket string) error
	Record(ctx context.Context, submissionID, objectKey string) error
	Clear(ctx context.Context, submissionID string) error
	Compensate(ctx context.Context, objects journal.Deleter, submissionID string) error
}

// SubmissionService runs the property submission workflow:
// validate, upload, persist, with compensating deletes on failure.
type SubmissionService struct {
	store     SubmissionStore
	bucket    ObjectBucket
	journal   UploadJournal
	index     Indexer
	events    EventEmitter
	metrics   *metrics.Metrics
	validator *validation.Validator
	logger    *slog.Logger
	maxBytes  int64
	now       func() time.Time
}

// NewSubmissionService creates a submission service. maxBytes is the
// per-file limit; zero means 10 MiB.
func NewSubmissionService(
	store SubmissionStore,
	bucket ObjectBucket,
	uploads UploadJournal,
	index Indexer,
	events EventEmitter,
	m *metrics.Metrics,
	logger *slog.Logger,
	maxBytes int64,
) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = domain.DefaultMaxAttachmentBytes
	}
	return &SubmissionService{
		store:     store,
		bucket:    bucket,
		journal:   uploads,
		index:     indexerOrNoop(index),
		events:    emitterOrNoop(events),
		metrics:   m,
		validator: validation.New(),
		logger:    logger,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// ValidateImages splits files into those usable as listing photos and
// the rejected rest.
func (s *SubmissionService) ValidateImages(files []Attachment) (accepted []Attachment, rejected []domain.FileRejection) {
	for _, f := range files {
		if reason := domain.CheckImage(f.Name, f.ContentType, f.Size, s.maxBytes); reason != "" {
			rejected = append(rejected, domain.FileRejection{Name: f.Name, Reason: reason})
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, rejected
}

// ValidateTaxReceipt checks a verification document.
func (s *SubmissionService) ValidateTaxReceipt(f Attachment) *domain.FileRejection {
	if reason := domain.CheckTaxReceipt(f.ContentType, f.Size, s.maxBytes); reason != "" {
		return &domain.FileRejection{Name: f.Name, Reason: reason}
	}
	return nil
}

// Submit runs one submission for user. The returned Submission is non-nil
// whenever the submission started, including on failure, and records the
// states it went through.
func (s *SubmissionService) Submit(ctx context.Context, user *domain.User, req SubmitRequest) (*Submission, error) {
	if user == nil {
		return nil, domainerrors.Unauthorized("Please sign in to list a property")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := ModeCreate
	if req.PropertyID != "" {
		mode = ModeEdit
	}
	sub, err := newSubmission(mode, req.PropertyID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With("submission_id", sub.ID, "mode", string(mode), "user_id", user.ID)

	s.step(sub, StateValidating, log)
	existing, form, err := s.validate(ctx, user, req)
	if err != nil {
		s.fail(sub, log, err)
		s.metrics.SubmissionFinished(string(mode), outcomeOf(err))
		return sub, err
	}

	s.step(sub, StateUploading, log)
	imageURLs, placeholders, receiptURL, err := s.upload(ctx, user, sub, req)
	if err != nil {
		return sub, s.abort(ctx, sub, log, err)
	}

	s.step(sub, StatePersisting, log)
	p, wasPublic, err := s.persist(ctx, user, existing, form, imageURLs, placeholders, receiptURL)
	if err != nil {
		return sub, s.abort(ctx, sub, log, err)
	}
	sub.Property = p
	sub.PropertyID = p.ID

	s.clearJournal(context.WithoutCancel(ctx), sub, log)
	s.step(sub, StateDone, log)

	if existing != nil && receiptURL != "" && existing.receiptURL != "" && existing.receiptURL != receiptURL {
		s.deleteReplaced(ctx, existing.receiptURL, log)
	}

	if err := s.index.Sync(p); err != nil {
		log.Warn("failed to update search index", "property_id", p.ID, "error", err)
	}
	s.events.Emit(sse.NewPropertySubmittedEvent(p, mode == ModeEdit))
	if wasPublic {
		s.events.Emit(sse.NewVisibilityEvent(p))
	}
	s.metrics.SubmissionFinished(string(mode), metrics.OutcomeSuccess)

	log.Info("property submitted",
		"property_id", p.ID,
		"images", len(imageURLs),
		"bytes", sub.BytesUploaded,
	)
	return sub, nil
}

// existingListing is the edited listing as loaded before any change.
type existingListing struct {
	property   *domain.Property
	receiptURL string
}

func (s *SubmissionService) validate(ctx context.Context, user *domain.User, req SubmitRequest) (*existingListing, *parsedForm, error) {
	var existing *existingListing

	if req.PropertyID == "" {
		if req.TaxReceipt == nil {
			return nil, nil, domainerrors.Validation("Please upload a tax receipt to proceed")
		}
	} else {
		p, err := s.store.GetProperty(ctx, req.PropertyID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, domainerrors.NotFound("Property not found")
			}
			return nil, nil, domainerrors.Internal("Failed to load property data").WithCause(err)
		}
		if p.SellerID != user.ID {
			return nil, nil, domainerrors.Forbidden("You can only edit your own properties")
		}
		existing = &existingListing{property: p, receiptURL: p.TaxReceiptURL}
	}

	form, err := s.parseForm(req.Form)
	if err != nil {
		return nil, nil, err
	}

	_, rejected := s.ValidateImages(req.Images)
	if req.TaxReceipt != nil {
		if r := s.ValidateTaxReceipt(*req.TaxReceipt); r != nil {
			rejected = append(rejected, *r)
		}
	}
	if len(rejected) > 0 {
		msg := rejected[0].Reason
		if len(rejected) > 1 {
			msg = fmt.Sprintf("%d files could not be accepted", len(rejected))
		}
		return nil, nil, domainerrors.ValidationWithDetails(msg, rejected)
	}

	return existing, form, nil
}

func (s *SubmissionService) parseForm(f PropertyForm) (*parsedForm, error) {
	f.Title = normalize.Line(f.Title)
	f.Address = normalize.Line(f.Address)
	f.City = normalize.Line(f.City)
	f.State = normalize.State(f.State)
	f.ZipCode = normalize.ZipCode(f.ZipCode)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	f.Description = normalize.Description(f.Description)

	details := map[string]string{}
	if err := s.validator.Validate(f); err != nil {
		var de *domainerrors.Error
		if !errors.As(err, &de) {
			return nil, err
		}
		if m, ok := de.Details.(map[string]string); ok {
			for k, v := range m {
				details[k] = v
			}
		}
	}

	parsed := &parsedForm{
		title:       f.Title,
		address:     f.Address,
		city:        f.City,
		state:       f.State,
		zip:         f.ZipCode,
		description: f.Description,
		category:    domain.Category(f.Category),
	}

	parseCount := func(field, raw string) int {
		if _, failed := details[field]; failed {
			return 0
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil:
			details[field] = "must be a whole number"
		case n < 0:
			details[field] = "must not be negative"
		}
		return n
	}

	if _, failed := details["price"]; !failed {
		price, err := strconv.ParseInt(strings.TrimSpace(f.Price), 10, 64)
		switch {
		case err != nil:
			details["price"] = "must be a whole number"
		case price < 0:
			details["price"] = "must not be negative"
		}
		parsed.price = price
	}
	parsed.bedrooms = parseCount("bedrooms", f.Bedrooms)
	parsed.bathrooms = parseCount("bathrooms", f.Bathrooms)
	parsed.area = parseCount("area", f.Area)

	if len(details) > 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", details)
	}
	return parsed, nil
}

func (s *SubmissionService) upload(ctx context.Context, user *domain.User, sub *Submission, req SubmitRequest) (imageURLs []string, placeholders map[string]string, receiptURL string, err error) {
	if len(req.Images) == 0 && req.TaxReceipt == nil {
		return nil, nil, "", nil
	}
	if err := s.journal.Begin(ctx, sub.ID, user.ID, s.bucket.Name()); err != nil {
		return nil, nil, "", fmt.Errorf("begin upload journal: %w", err)
	}

	placeholders = make(map[string]string)
	for _, img := range req.Images {
		key, err := objectstore.ImageKey(user.ID, img.Name, s.now())
		if err != nil {
			return nil, nil, "", err
		}
		if err := s.put(ctx, sub, key, img); err != nil {
			return nil, nil, "", err
		}
		u := s.bucket.PublicURL(key)
		imageURLs = append(imageURLs, u)

		if hash, err := s.bucket.Placeholder(key); err == nil {
			placeholders[u] = hash
		} else {
			s.logger.Debug("no placeholder for image", "key", key, "error", err)
		}
	}

	if req.TaxReceipt != nil {
		key, err := objectstore.TaxReceiptKey(user.ID, req.TaxReceipt.Name, s.now())
		if err != nil {
			return nil, nil, "", err
		}
		if err := s.put(ctx, sub, key, *req.TaxReceipt); err != nil {
			return nil, nil, "", err
		}
		receiptURL = s.bucket.PublicURL(key)
	}

	return imageURLs, placeholders, receiptURL, nil
}

// put journals key before writing it, so a crash between the two leaves
// at worst a journal entry with nothing behind it.
func (s *SubmissionService) put(ctx context.Context, sub *Submission, key string, a Attachment) error {
	if err := s.journal.Record(ctx, sub.ID, key); err != nil {
		return fmt.Errorf("journal %s: %w", key, err)
	}

	r, err := a.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", a.Name, err)
	}
	defer r.Close()

	n, err := s.bucket.Put(ctx, key, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return fmt.Errorf("upload %s: %w", a.Name, err)
	}
	sub.Uploaded = append(sub.Uploaded, key)
	if n > s.maxBytes {
		return domainerrors.Validationf("%s exceeds %dMB size limit", a.Name, s.maxBytes>>20)
	}
	sub.BytesUploaded += n
	s.metrics.BytesUploaded(n)
	return nil
}

func (s *SubmissionService) persist(
	ctx context.Context,
	user *domain.User,
	existing *existingListing,
	form *parsedForm,
	imageURLs []string,
	placeholders map[string]string,
	receiptURL string,
) (*domain.Property, bool, error) {
	if existing == nil {
		propID, err := id.Generate("prop")
		if err != nil {
			return nil, false, err
		}
		p := &domain.Property{
			Syncable:      domain.Syncable{ID: propID},
			SellerID:      user.ID,
			Images:        imageURLs,
			TaxReceiptURL: receiptURL,
			Status:        domain.StatusPending,
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		applyForm(p, form)
		for u, h := range placeholders {
			p.SetPlaceholder(u, h)
		}
		p.InitTimestamps()
		if err := s.store.CreateProperty(ctx, p); err != nil {
			return nil, false, fmt.Errorf("create property: %w", err)
		}
		return p, false, nil
	}

	p := existing.property
	wasPublic := p.IsPublic()
	applyForm(p, form)
	p.AppendImages(imageURLs...)
	for u, h := range placeholders {
		p.SetPlaceholder(u, h)
	}
	if receiptURL != "" {
		p.TaxReceiptURL = receiptURL
	}
	// Every edit goes back through moderation.
	p.SetStatus(domain.StatusPending)
	p.Touch()
	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return nil, false, fmt.Errorf("update property: %w", err)
	}
	return p, wasPublic, nil
}

func applyForm(p *domain.Property, f *parsedForm) {
	p.Title = f.title
	p.Price = f.price
	p.Category = f.category
	p.Bedrooms = f.bedrooms
	p.Bathrooms = f.bathrooms
	p.Area = f.area
	p.Address = f.address
	p.City = f.city
	p.State = f.state
	p.ZipCode = f.zip
	p.Description = f.description
}

// abort fails the submission after uploads may have started and deletes
// whatever was uploaded.
func (s *SubmissionService) abort(ctx context.Context, sub *Submission, log *slog.Logger, cause error) error {
	s.fail(sub, log, cause)

	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.journal.Compensate(cleanupCtx, s.bucket, sub.ID); err != nil {
		log.Error("compensating deletes incomplete, left for sweep", "error", err)
	} else {
		s.metrics.ObjectsCompensated("rollback", len(sub.Uploaded))
	}

	if domainerrors.CodeOf(cause) == domainerrors.CodeValidation {
		s.metrics.SubmissionFinished(string(sub.Mode), metrics.OutcomeValidation)
		return cause
	}
	s.metrics.SubmissionFinished(string(sub.Mode), metrics.OutcomeFailed)

	if sub.Mode == ModeEdit {
		return domainerrors.Internal("Failed to update property. Please try again.").WithCause(cause)
	}
	return domainerrors.Internal("Failed to list property. Please try again.").WithCause(cause)
}

func (s *SubmissionService) step(sub *Submission, to SubmissionState, log *slog.Logger) {
	if err := sub.advance(to); err != nil {
		log.Error("submission state machine", "error", err)
		return
	}
	log.Debug("submission state", "state", string(to))
}

func (s *SubmissionService) fail(sub *Submission, log *slog.Logger, cause error) {
	from := sub.State()
	s.step(sub, StateFailed, log)
	if domainerrors.CodeOf(cause) == domainerrors.CodeInternal {
		log.Error("submission failed", "state", string(from), "error", cause)
	} else {
		log.Info("submission rejected", "state", string(from), "reason", cause.Error())
	}
}

// clearJournal retries because a stale entry would let the sweep delete
// objects the listing now references.
func (s *SubmissionService) clearJournal(ctx context.Context, sub *Submission, log *slog.Logger) {
	var err error
	for attempt := range 3 {
		if err = s.journal.Clear(ctx, sub.ID); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	log.Error("failed to clear upload journal", "error", err)
}

func (s *SubmissionService) deleteReplaced(ctx context.Context, oldURL string, log *slog.Logger) {
	key, ok := s.bucket.KeyFromURL(oldURL)
	if !ok {
		return
	}
	if err := s.bucket.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Warn("failed to delete replaced tax receipt", "key", key, "error", err)
	}
}

func outcomeOf(err error) string {
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeValidation:
		return metrics.OutcomeValidation
	case domainerrors.CodeForbidden, domainerrors.CodeNotFound:
		return metrics.OutcomeForbidden
	default:
		return metrics.OutcomeFailed
	}
}
