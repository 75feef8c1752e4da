package correction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
)

type fakeBackend struct {
	mu           sync.Mutex
	requests     []Request
	applies      []ApplyRequest
	requestErr   error
	applyErr     error
	updatedLimit int // -1 means all
	block        chan struct{}
	entered      chan struct{}
	applyBlock   chan struct{}
	applyEntered chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{updatedLimit: -1}
}

func (f *fakeBackend) RequestCorrections(ctx context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if f.requestErr != nil {
		return nil, f.requestErr
	}

	resp := &Response{}
	for _, id := range req.OfficeIDs {
		r := Result{ID: id, Original: "addr " + id, Corrected: "addr " + id}
		if id != "p2" {
			r.Corrected = "Addr " + id + ", Irvine, CA 92618"
			resp.NeedsUpdate++
		}
		resp.Results = append(resp.Results, r)
	}
	return resp, nil
}

func (f *fakeBackend) ApplyCorrections(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	f.mu.Lock()
	f.applies = append(f.applies, req)
	block, entered := f.applyBlock, f.applyEntered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	updated := len(req.Updates)
	if f.updatedLimit >= 0 && f.updatedLimit < updated {
		updated = f.updatedLimit
	}
	return &ApplyResult{Updated: updated, Total: len(req.Updates)}, nil
}

func (f *fakeBackend) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func offices() []model.RawOfficeRecord {
	return []model.RawOfficeRecord{
		{ID: "p1", Name: "Bright Smiles", Address: model.StringPtr("addr p1"), Tier: model.TierVIP, Source: model.SourcePartner},
		{ID: "p2", Name: "Jane Smith", Address: model.StringPtr("addr p2"), Tier: model.TierWarm, Source: model.SourcePartner},
		{ID: "p3", Name: "No Address", Tier: model.TierVIP, Source: model.SourcePartner},
		{ID: "d1", Name: "Found Online", Address: model.StringPtr("addr d1"), Source: model.SourceDiscovered},
	}
}

func TestFullRunSetsGuard(t *testing.T) {
	backend := newFakeBackend()
	var progress []Progress
	guard := NewSessionGuard()
	w := NewWorkflow(backend, backend, guard, WithProgress(func(p Progress) { progress = append(progress, p) }))

	candidates, err := w.Start(context.Background(), offices(), labels.Filters{IncludeDiscovered: true})
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, w.State())
	require.Len(t, candidates, 2, "discovered and address-less offices are not submitted")
	assert.Equal(t, []string{"p1", "p2"}, backend.requests[0].OfficeIDs)

	assert.True(t, candidates[0].Changed)
	assert.False(t, candidates[1].Changed, "unchanged offices are still listed")
	assert.Equal(t, 1.0, candidates[1].Confidence)
	assert.Less(t, candidates[0].Confidence, 1.0)

	outcome, err := w.Apply(context.Background(), []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Updated: 1, Total: 1, Failed: 0}, *outcome)
	assert.Equal(t, StateDone, w.State())
	assert.True(t, guard.Used())
	assert.Equal(t, "Addr p1, Irvine, CA 92618", backend.applies[0].Updates[0].Address)

	var phases []State
	for _, p := range progress {
		phases = append(phases, p.State)
	}
	assert.Equal(t, []State{StateRequesting, StateReviewing, StateApplying, StateDone}, phases)
}

func TestGuardBlocksWithoutNetwork(t *testing.T) {
	backend := newFakeBackend()
	guard := NewSessionGuard()
	w := NewWorkflow(backend, backend, guard)

	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)
	_, err = w.Apply(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)

	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	assert.ErrorIs(t, err, ErrAlreadyCorrected)

	other := NewWorkflow(backend, backend, guard)
	_, err = other.Start(context.Background(), offices(), labels.Filters{})
	assert.ErrorIs(t, err, ErrAlreadyCorrected, "guard is shared across the session")
	assert.Equal(t, 1, backend.requestCount())

	guard.Reset()
	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	assert.NoError(t, err)
}

func TestEmptySelectionReasons(t *testing.T) {
	tests := []struct {
		name    string
		records []model.RawOfficeRecord
		filters labels.Filters
		want    EmptyReason
	}{
		{"no offices", nil, labels.Filters{}, ReasonNoOffices},
		{"only discovered", offices()[3:], labels.Filters{IncludeDiscovered: true}, ReasonNoOffices},
		{"no addresses", offices()[2:3], labels.Filters{}, ReasonNoAddresses},
		{"filtered out", offices(), labels.Filters{Tiers: []model.Tier{model.TierCold}}, ReasonFilteredOut},
		{"search excludes", offices(), labels.Filters{Search: "zzz"}, ReasonFilteredOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			w := NewWorkflow(backend, backend, nil)
			_, err := w.Start(context.Background(), tt.records, tt.filters)

			var empty *EmptySelectionError
			require.True(t, errors.As(err, &empty), "got %v", err)
			assert.Equal(t, tt.want, empty.Reason)
			assert.NotEmpty(t, empty.Reason.Message())
			assert.Equal(t, StateIdle, w.State())
			assert.Zero(t, backend.requestCount())
		})
	}
}

func TestRequestFailureAllowsRetry(t *testing.T) {
	backend := newFakeBackend()
	backend.requestErr = errors.New("upstream down")
	guard := NewSessionGuard()
	w := NewWorkflow(backend, backend, guard)

	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	assert.False(t, guard.Used())
	assert.Equal(t, "upstream down", w.Snapshot().Error)

	backend.requestErr = nil
	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, w.State())
}

func TestApplyFailureLeavesGuardUnset(t *testing.T) {
	backend := newFakeBackend()
	backend.applyErr = errors.New("write failed")
	guard := NewSessionGuard()
	w := NewWorkflow(backend, backend, guard)

	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)
	_, err = w.Apply(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	assert.False(t, guard.Used())
}

func TestPartialApply(t *testing.T) {
	backend := newFakeBackend()
	backend.updatedLimit = 1
	w := NewWorkflow(backend, backend, nil)

	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)
	outcome, err := w.Apply(context.Background(), []string{"p1", "p2", "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Total, "duplicates collapse")
	assert.Equal(t, 1, outcome.Failed)
	assert.True(t, outcome.Partial())
	assert.Contains(t, w.Progress().Message, "1 of 2")
}

func TestApplyValidation(t *testing.T) {
	backend := newFakeBackend()
	w := NewWorkflow(backend, backend, nil)

	_, err := w.Apply(context.Background(), []string{"p1"})
	assert.ErrorIs(t, err, ErrNotReviewing)

	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)

	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	assert.ErrorIs(t, err, ErrInProgress)

	_, err = w.Apply(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = w.Apply(context.Background(), []string{"d1"})
	assert.ErrorIs(t, err, ErrUnknownCandidate)
	assert.Equal(t, StateReviewing, w.State())
}

func TestDismissDiscardsCandidates(t *testing.T) {
	backend := newFakeBackend()
	guard := NewSessionGuard()
	w := NewWorkflow(backend, backend, guard)

	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)
	w.Dismiss()

	assert.Equal(t, StateIdle, w.State())
	assert.Empty(t, w.Candidates())
	assert.Empty(t, backend.applies)
	assert.False(t, guard.Used())
}

func TestLateResponseAfterDismissIsDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := newFakeBackend()
	backend.block = make(chan struct{})
	backend.entered = make(chan struct{}, 1)
	w := NewWorkflow(backend, backend, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := w.Start(context.Background(), offices(), labels.Filters{})
		errc <- err
	}()

	<-backend.entered
	assert.Equal(t, StateRequesting, w.State())
	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	assert.ErrorIs(t, err, ErrInProgress, "concurrent request is rejected")

	w.Dismiss()
	close(backend.block)

	assert.ErrorIs(t, <-errc, ErrDiscarded)
	assert.Equal(t, StateIdle, w.State())
	assert.Empty(t, w.Candidates())
}

func TestDismissedRequestBlocksNewStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := newFakeBackend()
	backend.block = make(chan struct{})
	backend.entered = make(chan struct{}, 1)
	w := NewWorkflow(backend, backend, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := w.Start(context.Background(), offices(), labels.Filters{})
		errc <- err
	}()

	<-backend.entered
	w.Dismiss()
	assert.Equal(t, StateIdle, w.State())

	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	assert.ErrorIs(t, err, ErrInProgress, "dismissed request has not returned yet")
	assert.Equal(t, 1, backend.requestCount())

	backend.mu.Lock()
	backend.entered = nil
	backend.mu.Unlock()
	close(backend.block)
	assert.ErrorIs(t, <-errc, ErrDiscarded)

	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.requestCount())
	assert.Equal(t, StateReviewing, w.State())
}

func TestStartDuringApplyThenGuard(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := newFakeBackend()
	backend.applyBlock = make(chan struct{})
	backend.applyEntered = make(chan struct{}, 1)
	guard := NewSessionGuard()
	w := NewWorkflow(backend, backend, guard)

	_, err := w.Start(context.Background(), offices(), labels.Filters{})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := w.Apply(context.Background(), []string{"p1"})
		errc <- err
	}()

	<-backend.applyEntered
	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	assert.ErrorIs(t, err, ErrInProgress)

	close(backend.applyBlock)
	require.NoError(t, <-errc)
	assert.Equal(t, StateDone, w.State())

	_, err = w.Start(context.Background(), offices(), labels.Filters{})
	assert.ErrorIs(t, err, ErrAlreadyCorrected)
	assert.Equal(t, 1, backend.requestCount(), "no request after a completed run")
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("123 Main St", " 123  main st "))
	assert.InDelta(t, 1-4.0/15.0, Similarity("123 Main St", "123 Main Street"), 1e-9)
	assert.False(t, Differs("123 Main St", " 123  Main St "))
	assert.True(t, Differs("123 main st", "123 Main St"), "re-capitalization is a correction")
	assert.True(t, Differs("123 Main St", "123 Main Street"))
}
