package form

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
	"github.com/amirhf/imageSearch/services/search-web/errs"
	"github.com/amirhf/imageSearch/services/search-web/models"
	"github.com/amirhf/imageSearch/services/search-web/picker"
	"github.com/amirhf/imageSearch/services/search-web/schema"
)

// gatedSearcher blocks every call until release receives a response.
type gatedSearcher struct {
	mu       sync.Mutex
	requests []schema.SearchRequest
	ctxErrs  []error
	release  chan response
	started  chan struct{}
}

type response struct {
	result *models.SearchResult
	err    error
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{
		release: make(chan response),
		started: make(chan struct{}, 8),
	}
}

func (g *gatedSearcher) Search(ctx context.Context, req schema.SearchRequest) (*models.SearchResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	g.mu.Unlock()
	g.started <- struct{}{}
	r := <-g.release
	return r.result, r.err
}

func (g *gatedSearcher) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type recordingPublisher struct {
	mu       sync.Mutex
	outcomes []models.SearchOutcome
}

func (p *recordingPublisher) Publish(topic string, args ...interface{}) {
	if topic != TopicResolved {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, args[0].(models.SearchOutcome))
}

func (p *recordingPublisher) all() []models.SearchOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.SearchOutcome(nil), p.outcomes...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pick(t *testing.T, f *Form, id catalog.ImageID) {
	t.Helper()
	f.OpenPicker()
	require.NoError(t, f.SelectImage(id))
	got, err := f.ConfirmPicker()
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func settle(t *testing.T, f *Form) RequestState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := f.Wait(ctx)
	require.NoError(t, err)
	return state
}

func TestSubmitWithoutImageMakesNoCall(t *testing.T) {
	s := newGatedSearcher()
	f := New(s, WithLogger(quietLogger()))

	err := f.Submit(context.Background())
	var verrs schema.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, schema.ValidationErrors{schema.FieldImage: schema.MsgImage}, verrs)

	snap := f.Snapshot()
	assert.Equal(t, StatusIdle, snap.State.Status)
	assert.Equal(t, verrs, snap.Errors)
	assert.Equal(t, 0, s.calls())
}

func TestSubmitBuildsRequestAndResolves(t *testing.T) {
	s := newGatedSearcher()
	pub := &recordingPublisher{}
	f := New(s, WithLogger(quietLogger()), WithPublisher(pub), WithID("sess-1"))

	pick(t, f, 42)
	require.NoError(t, f.SetField(schema.FieldModel, "Resnet50"))
	require.NoError(t, f.SetField(schema.FieldDistance, "bhattacharyya"))
	require.NoError(t, f.SetField(schema.FieldTopN, "50"))

	require.NoError(t, f.Submit(context.Background()))
	<-s.started

	snap := f.Snapshot()
	assert.Equal(t, StatusPending, snap.State.Status)
	assert.False(t, snap.CanSubmit())

	require.Equal(t, 1, s.calls())
	assert.Equal(t, map[string]string{
		"filename":   "42.jpg",
		"descriptor": "Resnet50",
		"similarity": "bhattacharyya",
		"topn":       "50",
	}, s.requests[0].PayloadMap())

	want := &models.SearchResult{RPCurve: "/curves/a.png", SimilarImages: []catalog.ImageID{7, 12, 500}}
	s.release <- response{result: want}

	state := settle(t, f)
	assert.Equal(t, StatusSucceeded, state.Status)
	assert.Equal(t, want, state.Result)
	assert.NoError(t, state.Err)

	require.Eventually(t, func() bool { return len(pub.all()) == 1 }, time.Second, 5*time.Millisecond)
	outcome := pub.all()[0]
	assert.Equal(t, "sess-1", outcome.SessionID)
	assert.Equal(t, models.OutcomeSucceeded, outcome.Status)
	assert.Equal(t, 3, outcome.ResultCount)
	assert.Equal(t, "42.jpg", outcome.Filename)
	assert.NotEmpty(t, outcome.ID)
}

func TestSecondSubmitWhilePendingIsRejected(t *testing.T) {
	s := newGatedSearcher()
	f := New(s, WithLogger(quietLogger()))
	pick(t, f, 1)

	require.NoError(t, f.Submit(context.Background()))
	<-s.started

	err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrPending)
	assert.True(t, errs.IsKind(err, errs.KindConflict))
	assert.Equal(t, 1, s.calls())

	s.release <- response{result: &models.SearchResult{}}
	settle(t, f)

	require.NoError(t, f.Submit(context.Background()))
	<-s.started
	assert.Equal(t, 2, s.calls())
	s.release <- response{result: &models.SearchResult{}}
	settle(t, f)
}

func TestFailureSupersedesPreviousResult(t *testing.T) {
	s := newGatedSearcher()
	pub := &recordingPublisher{}
	f := New(s, WithLogger(quietLogger()), WithPublisher(pub))
	pick(t, f, 9)

	require.NoError(t, f.Submit(context.Background()))
	<-s.started
	s.release <- response{result: &models.SearchResult{SimilarImages: []catalog.ImageID{3}}}
	require.Equal(t, StatusSucceeded, settle(t, f).Status)

	require.NoError(t, f.Submit(context.Background()))
	<-s.started
	pending := f.Snapshot().State
	assert.Equal(t, StatusPending, pending.Status)
	assert.Nil(t, pending.Result, "a new submission clears the previous result")

	transport := errs.Wrap(errs.KindTransport, "client.Search", "failed to retrieve similar images", errors.New("503"))
	s.release <- response{err: transport}

	state := settle(t, f)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Nil(t, state.Result)
	assert.ErrorIs(t, state.Err, transport)

	require.Eventually(t, func() bool { return len(pub.all()) == 2 }, time.Second, 5*time.Millisecond)
	failed := pub.all()[1]
	assert.Equal(t, models.OutcomeFailed, failed.Status)
	assert.Equal(t, string(errs.KindTransport), failed.ErrorKind)
}

func TestValidationFailureLeavesRequestStateUnchanged(t *testing.T) {
	s := newGatedSearcher()
	f := New(s, WithLogger(quietLogger()))
	pick(t, f, 9)

	require.NoError(t, f.Submit(context.Background()))
	<-s.started
	s.release <- response{result: &models.SearchResult{SimilarImages: []catalog.ImageID{3}}}
	settle(t, f)

	require.NoError(t, f.SetField(schema.FieldModel, "AlexNet"))
	err := f.Submit(context.Background())
	var verrs schema.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, schema.ValidationErrors{schema.FieldModel: schema.MsgModel}, verrs)

	snap := f.Snapshot()
	assert.Equal(t, StatusSucceeded, snap.State.Status)
	assert.Equal(t, 1, s.calls())

	require.NoError(t, f.SetField(schema.FieldModel, "VGG16"))
	assert.Empty(t, f.Snapshot().Errors, "a corrected field drops its message")
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	s := newGatedSearcher()
	f := New(s, WithLogger(quietLogger()))
	pick(t, f, 77)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.Submit(ctx))
	cancel()
	<-s.started
	s.release <- response{result: &models.SearchResult{}}
	settle(t, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NoError(t, s.ctxErrs[0])
}

type panickingSearcher struct{}

func (panickingSearcher) Search(context.Context, schema.SearchRequest) (*models.SearchResult, error) {
	panic("boom")
}

func TestPanickingSearcherFails(t *testing.T) {
	f := New(panickingSearcher{}, WithLogger(quietLogger()))
	pick(t, f, 2)
	require.NoError(t, f.Submit(context.Background()))

	state := settle(t, f)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Error(t, state.Err)
}

func TestPickerFlowThroughForm(t *testing.T) {
	f := New(newGatedSearcher(), WithLogger(quietLogger()))

	f.OpenPicker()
	_, err := f.ConfirmPicker()
	require.ErrorIs(t, err, picker.ErrNoSelection)
	snap := f.Snapshot()
	assert.True(t, snap.Picker.Open)
	assert.Empty(t, snap.Fields.Image)

	require.NoError(t, f.SelectImage(15))
	assert.Empty(t, f.Snapshot().Fields.Image, "select does not touch the form")
	f.CancelPicker()
	snap = f.Snapshot()
	assert.False(t, snap.Picker.Open)
	assert.Empty(t, snap.Fields.Image)

	pick(t, f, 15)
	f.OpenPicker()
	assert.Equal(t, catalog.ImageID(15), f.Snapshot().Picker.Tentative)
	require.NoError(t, f.SelectImage(16))
	f.CancelPicker()
	assert.Equal(t, "15.jpg", f.Snapshot().Fields.Image)
}

func TestConfirmClearsImageError(t *testing.T) {
	f := New(newGatedSearcher(), WithLogger(quietLogger()))
	require.Error(t, f.Submit(context.Background()))
	require.Contains(t, f.Snapshot().Errors, schema.FieldImage)

	pick(t, f, 3)
	assert.NotContains(t, f.Snapshot().Errors, schema.FieldImage)
}

func TestSetField(t *testing.T) {
	f := New(newGatedSearcher(), WithLogger(quietLogger()))
	require.ErrorIs(t, f.SetField(schema.FieldImage, "3.jpg"), ErrImageReadOnly)
	require.Error(t, f.SetField("color", "red"))

	before := f.Snapshot().Version
	require.NoError(t, f.SetField(schema.FieldTopN, "50"))
	snap := f.Snapshot()
	assert.Equal(t, schema.Top50, snap.Fields.TopN)
	assert.Greater(t, snap.Version, before)
}

func TestChangedIsClosedOnUpdate(t *testing.T) {
	f := New(newGatedSearcher(), WithLogger(quietLogger()))
	ch := f.Changed()
	select {
	case <-ch:
		t.Fatal("channel closed before any change")
	default:
	}
	f.OpenPicker()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel not closed after change")
	}
}

func TestRequestStateJSON(t *testing.T) {
	state := RequestState{
		Status: StatusFailed,
		Err:    errs.Wrap(errs.KindMalformed, "client.Search", "failed to retrieve similar images", errors.New("eof")),
	}
	b, err := state.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"failed","error":"failed to retrieve similar images","error_kind":"malformed"}`, string(b))
}

func TestSubmitErrorIsIndependentOfFormState(t *testing.T) {
	f := New(newGatedSearcher(), WithLogger(quietLogger()))
	require.NoError(t, f.SetField(schema.FieldModel, "AlexNet"))

	err := f.Submit(context.Background())
	var verrs schema.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	before := err.Error()
	require.Contains(t, before, "model")

	require.NoError(t, f.SetField(schema.FieldModel, string(schema.VGG16)))
	pick(t, f, 4)

	assert.Equal(t, before, err.Error())
	assert.Len(t, verrs, 2)
	assert.Empty(t, f.Snapshot().Errors)
}

func TestSubmitErrorReadWhileFormChanges(t *testing.T) {
	f := New(newGatedSearcher(), WithLogger(quietLogger()))
	require.NoError(t, f.SetField(schema.FieldTopN, "100"))
	err := f.Submit(context.Background())
	require.Error(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = err.Error()
		}
	}()
	for i := 0; i < 200; i++ {
		value := "100"
		if i%2 == 0 {
			value = string(schema.Top50)
		}
		require.NoError(t, f.SetField(schema.FieldTopN, value))
		_ = f.Submit(context.Background())
	}
	<-done
}

func TestSubmitWithAppliesUpdates(t *testing.T) {
	s := newGatedSearcher()
	f := New(s, WithLogger(quietLogger()))
	pick(t, f, 8)

	require.NoError(t, f.SubmitWith(context.Background(), map[schema.Field]string{
		schema.FieldModel:    string(schema.MobileNet),
		schema.FieldDistance: string(schema.ChiSquare),
	}))
	<-s.started

	fields := f.Snapshot().Fields
	assert.Equal(t, schema.MobileNet, fields.Model)
	assert.Equal(t, schema.ChiSquare, fields.Distance)
	assert.Equal(t, "chi square", s.requests[0].PayloadMap()["similarity"])

	s.release <- response{result: &models.SearchResult{}}
	settle(t, f)
}

func TestSubmitWithWhilePendingLeavesFields(t *testing.T) {
	s := newGatedSearcher()
	f := New(s, WithLogger(quietLogger()))
	pick(t, f, 8)
	require.NoError(t, f.Submit(context.Background()))
	<-s.started

	err := f.SubmitWith(context.Background(), map[schema.Field]string{schema.FieldModel: string(schema.Resnet50)})
	require.ErrorIs(t, err, ErrPending)
	assert.Equal(t, schema.VGG16, f.Snapshot().Fields.Model)

	s.release <- response{result: &models.SearchResult{}}
	settle(t, f)
}

func TestSubmitWithRejectsImageUpdate(t *testing.T) {
	s := newGatedSearcher()
	f := New(s, WithLogger(quietLogger()))
	pick(t, f, 8)

	err := f.SubmitWith(context.Background(), map[schema.Field]string{
		schema.FieldModel: string(schema.Resnet50),
		schema.FieldImage: "9.jpg",
	})
	require.ErrorIs(t, err, ErrImageReadOnly)

	snap := f.Snapshot()
	assert.Equal(t, "8.jpg", snap.Fields.Image)
	assert.Equal(t, schema.VGG16, snap.Fields.Model)
	assert.Equal(t, StatusIdle, snap.State.Status)
	assert.Equal(t, 0, s.calls())
}
