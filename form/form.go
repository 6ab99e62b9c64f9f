// Package form holds the state of one search form: the editable fields, the
// image picker and the single request the form may have in flight.
//
// All mutations are serialised by the form's mutex. The backend call runs in
// its own goroutine and is the only way the request state leaves Pending.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
	"github.com/amirhf/imageSearch/services/search-web/errs"
	"github.com/amirhf/imageSearch/services/search-web/models"
	"github.com/amirhf/imageSearch/services/search-web/picker"
	"github.com/amirhf/imageSearch/services/search-web/schema"
)

// TopicResolved is published with a models.SearchOutcome after every search.
const TopicResolved = "search:resolved"

var (
	ErrPending       = errs.New(errs.KindConflict, "form.Submit", "a search is already running")
	ErrImageReadOnly = errs.New(errs.KindValidation, "form.SetField", "the image can only be chosen from the gallery")
)

// Searcher performs the backend call for a validated request.
type Searcher interface {
	Search(ctx context.Context, req schema.SearchRequest) (*models.SearchResult, error)
}

// Publisher receives resolved outcomes. EventBus.Bus satisfies it.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

type Option func(*Form)

func WithLogger(l *slog.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(f *Form) { f.publisher = p }
}

// WithID tags published outcomes and log lines with the owning session.
func WithID(id string) Option {
	return func(f *Form) { f.id = id }
}

func WithCatalog(c catalog.Catalog) Option {
	return func(f *Form) { f.catalog = c }
}

type Form struct {
	mu        sync.Mutex
	id        string
	catalog   catalog.Catalog
	fields    schema.Fields
	fieldErrs schema.ValidationErrors
	picker    *picker.Picker
	state     RequestState
	version   uint64
	changed   chan struct{}

	searcher  Searcher
	publisher Publisher
	logger    *slog.Logger
}

func New(searcher Searcher, opts ...Option) *Form {
	f := &Form{
		catalog:  catalog.Default,
		fields:   schema.DefaultFields(),
		state:    RequestState{Status: StatusIdle},
		changed:  make(chan struct{}),
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.picker = picker.New(f.catalog)
	f.logger = f.logger.With("form", f.id)
	return f
}

func (f *Form) ID() string {
	return f.id
}

// Snapshot returns a copy of the current state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() Snapshot {
	var fieldErrs schema.ValidationErrors
	if len(f.fieldErrs) > 0 {
		fieldErrs = make(schema.ValidationErrors, len(f.fieldErrs))
		for k, v := range f.fieldErrs {
			fieldErrs[k] = v
		}
	}
	return Snapshot{
		Version: f.version,
		Fields:  f.fields,
		Errors:  fieldErrs,
		Picker:  f.picker.State(),
		State:   f.state,
	}
}

// Changed returns a channel closed on the next state change.
func (f *Form) Changed() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changed
}

func (f *Form) notifyLocked() {
	f.version++
	close(f.changed)
	f.changed = make(chan struct{})
}

// Wait blocks until no request is pending and returns the settled state.
func (f *Form) Wait(ctx context.Context) (RequestState, error) {
	for {
		f.mu.Lock()
		state, ch := f.state, f.changed
		f.mu.Unlock()
		if !state.Pending() {
			return state, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// SetField updates model, distance or topn. Values are checked on submit.
func (f *Form) SetField(field schema.Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.setFieldLocked(field, value); err != nil {
		return err
	}
	f.notifyLocked()
	return nil
}

func (f *Form) setFieldLocked(field schema.Field, value string) error {
	if err := checkEditable(field); err != nil {
		return err
	}
	switch field {
	case schema.FieldModel:
		f.fields.Model = schema.DescriptorModel(value)
	case schema.FieldDistance:
		f.fields.Distance = schema.DistanceMetric(value)
	case schema.FieldTopN:
		f.fields.TopN = schema.TopN(value)
	}
	f.revalidateLocked(field)
	return nil
}

func checkEditable(field schema.Field) error {
	switch field {
	case schema.FieldModel, schema.FieldDistance, schema.FieldTopN:
		return nil
	case schema.FieldImage:
		return ErrImageReadOnly
	}
	return errs.New(errs.KindValidation, "form.SetField", fmt.Sprintf("unknown field %q", field))
}

// revalidateLocked refreshes the message of a field that already failed.
func (f *Form) revalidateLocked(field schema.Field) {
	if _, failed := f.fieldErrs[field]; !failed {
		return
	}
	_, err := schema.Validate(f.fields)
	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) {
		if msg, ok := verrs[field]; ok {
			f.fieldErrs[field] = msg
			return
		}
	}
	delete(f.fieldErrs, field)
}

func (f *Form) OpenPicker() {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, _ := schema.ValidateImage(f.fields.Image)
	f.picker.Open(current)
	f.notifyLocked()
}

func (f *Form) SelectImage(id catalog.ImageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.picker.Select(id); err != nil {
		return err
	}
	f.notifyLocked()
	return nil
}

// ConfirmPicker commits the tentative image into the image field and
// validates it on write.
func (f *Form) ConfirmPicker() (catalog.ImageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := f.picker.Confirm()
	if err != nil {
		return catalog.None, err
	}
	f.fields.Image = id.Filename()
	if _, ok := schema.ValidateImage(f.fields.Image); ok {
		delete(f.fieldErrs, schema.FieldImage)
	} else {
		if f.fieldErrs == nil {
			f.fieldErrs = schema.ValidationErrors{}
		}
		f.fieldErrs[schema.FieldImage] = schema.MsgImage
	}
	f.notifyLocked()
	return id, nil
}

func (f *Form) CancelPicker() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.picker.Cancel()
	f.notifyLocked()
}

// Submit validates the fields and, when they pass, starts the search. It
// returns schema.ValidationErrors when a field fails and ErrPending while a
// previous search is still running; neither reaches the backend.
func (f *Form) Submit(ctx context.Context) error {
	return f.SubmitWith(ctx, nil)
}

// SubmitWith applies updates and submits under one lock. While a search is
// pending nothing is applied. An update naming the image or an unknown field
// rejects the whole call.
func (f *Form) SubmitWith(ctx context.Context, updates map[schema.Field]string) error {
	f.mu.Lock()
	if f.state.Pending() {
		f.mu.Unlock()
		return ErrPending
	}
	for field := range updates {
		if err := checkEditable(field); err != nil {
			f.mu.Unlock()
			return err
		}
	}
	for field, value := range updates {
		f.setFieldLocked(field, value)
	}

	req, err := schema.Validate(f.fields)
	if err != nil {
		var verrs schema.ValidationErrors
		if errors.As(err, &verrs) {
			// The caller keeps err; the form needs its own map.
			f.fieldErrs = maps.Clone(verrs)
		}
		f.notifyLocked()
		f.mu.Unlock()
		return err
	}

	f.fieldErrs = nil
	f.state = RequestState{Status: StatusPending}
	f.notifyLocked()
	f.mu.Unlock()

	f.logger.Info("search submitted",
		"image", req.Image().Filename(),
		"descriptor", req.Model(),
		"similarity", req.Distance(),
		"topn", req.TopN())

	go f.run(context.WithoutCancel(ctx), req)
	return nil
}

func (f *Form) run(ctx context.Context, req schema.SearchRequest) {
	start := time.Now()
	res, err := f.search(ctx, req)
	elapsed := time.Since(start)

	f.mu.Lock()
	if err != nil {
		f.state = RequestState{Status: StatusFailed, Err: err}
	} else {
		f.state = RequestState{Status: StatusSucceeded, Result: res}
	}
	f.notifyLocked()
	f.mu.Unlock()

	if err != nil {
		f.logger.Warn("search failed", "kind", errs.KindOf(err), "error", err, "elapsed", elapsed)
	} else {
		f.logger.Info("search succeeded", "results", len(res.SimilarImages), "elapsed", elapsed)
	}
	f.publish(req, res, err, start, elapsed)
}

func (f *Form) search(ctx context.Context, req schema.SearchRequest) (res *models.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.KindUnknown, "form.search", fmt.Sprintf("search panicked: %v", r))
		}
	}()
	res, err = f.searcher.Search(ctx, req)
	if err == nil && res == nil {
		err = errs.New(errs.KindMalformed, "form.search", "empty search result")
	}
	return res, err
}

func (f *Form) publish(req schema.SearchRequest, res *models.SearchResult, err error, start time.Time, elapsed time.Duration) {
	if f.publisher == nil {
		return
	}
	outcome := models.SearchOutcome{
		ID:         uuid.NewString(),
		SessionID:  f.id,
		Filename:   req.Image().Filename(),
		Descriptor: string(req.Model()),
		Similarity: string(req.Distance()),
		TopN:       string(req.TopN()),
		Status:     models.OutcomeSucceeded,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	if err != nil {
		outcome.Status = models.OutcomeFailed
		outcome.ErrorKind = string(errs.KindOf(err))
		outcome.Error = err.Error()
	} else {
		outcome.ResultCount = len(res.SimilarImages)
	}
	f.publisher.Publish(TopicResolved, outcome)
}
