package correction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/store"
	"github.com/referral-labels/internal/telemetry"
)

var (
	ErrAlreadyCorrected = errors.New("addresses were already corrected in this session")
	ErrInProgress       = errors.New("a correction run is already in progress")
	ErrNotReviewing     = errors.New("no corrections are awaiting review")
	ErrNoSelection      = errors.New("no corrections selected")
	ErrUnknownCandidate = errors.New("unknown correction candidate")
	// ErrDiscarded is returned by Start when the review was dismissed before
	// the response arrived. The response is dropped.
	ErrDiscarded = errors.New("correction response discarded after dismissal")
)

// State of a correction run.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateReviewing
	StateApplying
	StateDone
	StateFailed
)

var stateNames = [...]string{"idle", "requesting", "reviewing", "applying", "done", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Progress is a point-in-time view of the run for progress displays.
type Progress struct {
	State   State  `json:"-"`
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Snapshot is the full observable state of a workflow.
type Snapshot struct {
	State      string      `json:"state"`
	Progress   Progress    `json:"progress"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Outcome    *Outcome    `json:"outcome,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Option configures a Workflow.
type Option func(*Workflow)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithProgress registers a callback invoked after every progress change. It
// runs outside the workflow's lock and may call back into the workflow.
func WithProgress(fn func(Progress)) Option {
	return func(w *Workflow) { w.onProgress = fn }
}

// Workflow drives one review-and-apply cycle:
// Idle -> Requesting -> Reviewing -> Applying -> Done | Failed.
//
// The guard is set only when an apply succeeds. Failed runs may be retried.
type Workflow struct {
	requester  Requester
	applier    Applier
	guard      *SessionGuard
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	onProgress func(Progress)

	mu         sync.Mutex
	state      State
	generation uint64
	inFlight   bool // a request, possibly dismissed, has not returned yet
	candidates []Candidate
	progress   Progress
	outcome    *Outcome
	err        error
}

func NewWorkflow(requester Requester, applier Applier, guard *SessionGuard, opts ...Option) *Workflow {
	if guard == nil {
		guard = NewSessionGuard()
	}
	w := &Workflow{
		requester: requester,
		applier:   applier,
		guard:     guard,
		logger:    zap.NewNop(),
		progress:  Progress{State: StateIdle, Phase: StateIdle.String()},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// setProgress must be called with mu held; the returned value is passed to
// notify after unlocking.
func (w *Workflow) setProgress(state State, percent int, msg string) Progress {
	w.state = state
	w.progress = Progress{State: state, Phase: state.String(), Percent: percent, Message: msg}
	return w.progress
}

func (w *Workflow) notify(p Progress) {
	if w.onProgress != nil {
		w.onProgress(p)
	}
}

// Start selects the offices to correct and requests suggestions for them.
// On success the workflow is Reviewing and the candidates are returned.
func (w *Workflow) Start(ctx context.Context, records []model.RawOfficeRecord, filters labels.Filters) ([]Candidate, error) {
	w.mu.Lock()
	if w.guard.Used() {
		w.mu.Unlock()
		return nil, ErrAlreadyCorrected
	}
	if w.inFlight {
		w.mu.Unlock()
		return nil, ErrInProgress
	}
	switch w.state {
	case StateRequesting, StateReviewing, StateApplying:
		w.mu.Unlock()
		return nil, ErrInProgress
	}

	selected, reason := SelectOffices(records, filters)
	if reason != ReasonNone {
		w.mu.Unlock()
		return nil, &EmptySelectionError{Reason: reason}
	}

	w.generation++
	gen := w.generation
	w.inFlight = true
	w.candidates, w.outcome, w.err = nil, nil, nil
	p := w.setProgress(StateRequesting, 10, fmt.Sprintf("Checking %d addresses", len(selected)))
	w.mu.Unlock()
	w.notify(p)

	ids := make([]string, len(selected))
	for i, r := range selected {
		ids[i] = r.ID
	}
	w.logger.Info("requesting address corrections", zap.Int("offices", len(ids)))
	resp, err := w.requester.RequestCorrections(ctx, Request{OfficeIDs: ids})

	w.mu.Lock()
	w.inFlight = false
	if gen != w.generation {
		w.mu.Unlock()
		w.logger.Info("discarding correction response after dismissal")
		return nil, ErrDiscarded
	}
	if err != nil {
		w.err = err
		p = w.setProgress(StateFailed, 100, "Address check failed")
		w.mu.Unlock()
		w.notify(p)
		w.metrics.CorrectionRun(ctx, "request_failed")
		w.logger.Warn("correction request failed", zap.Error(err))
		return nil, fmt.Errorf("request corrections: %w", err)
	}

	w.candidates = buildCandidates(selected, resp)
	changed := 0
	for _, c := range w.candidates {
		if c.Changed {
			changed++
		}
	}
	p = w.setProgress(StateReviewing, 100, fmt.Sprintf("%d of %d addresses need updates", changed, len(w.candidates)))
	out := append([]Candidate(nil), w.candidates...)
	w.mu.Unlock()
	w.notify(p)

	w.logger.Info("corrections ready for review",
		zap.Int("candidates", len(out)),
		zap.Int("changed", changed),
		zap.Int("needs_update_reported", resp.NeedsUpdate))
	return out, nil
}

// buildCandidates yields one candidate per submitted office, in submission
// order, including offices whose address came back unchanged.
func buildCandidates(selected []model.RawOfficeRecord, resp *Response) []Candidate {
	results := make(map[string]Result, len(resp.Results))
	for _, r := range resp.Results {
		results[r.ID] = r
	}

	out := make([]Candidate, 0, len(selected))
	for _, office := range selected {
		original := office.AddressText()
		corrected := original
		if r, ok := results[office.ID]; ok {
			if r.Original != "" {
				original = r.Original
			}
			if r.Corrected != "" {
				corrected = r.Corrected
			}
		}
		out = append(out, Candidate{
			OfficeID:   office.ID,
			OfficeName: office.Name,
			Original:   original,
			Corrected:  corrected,
			Confidence: Similarity(original, corrected),
			Changed:    Differs(original, corrected),
		})
	}
	return out
}

// Dismiss closes the review without applying anything. A request still in
// flight has its response discarded, and Start keeps returning ErrInProgress
// until that request returns. It has no effect while applying.
func (w *Workflow) Dismiss() {
	w.mu.Lock()
	if w.state == StateApplying || w.state == StateIdle {
		w.mu.Unlock()
		return
	}
	w.generation++
	w.candidates, w.outcome, w.err = nil, nil, nil
	p := w.setProgress(StateIdle, 0, "")
	w.mu.Unlock()
	w.notify(p)
}

// Apply submits the selected candidates. It is valid only while Reviewing.
func (w *Workflow) Apply(ctx context.Context, selectedIDs []string) (*Outcome, error) {
	w.mu.Lock()
	if w.state != StateReviewing {
		w.mu.Unlock()
		return nil, ErrNotReviewing
	}
	if len(selectedIDs) == 0 {
		w.mu.Unlock()
		return nil, ErrNoSelection
	}

	byID := make(map[string]Candidate, len(w.candidates))
	for _, c := range w.candidates {
		byID[c.OfficeID] = c
	}
	seen := make(map[string]bool, len(selectedIDs))
	updates := make([]store.AddressUpdate, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		c, ok := byID[id]
		if !ok {
			w.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		updates = append(updates, store.AddressUpdate{ID: id, Address: c.Corrected})
	}

	p := w.setProgress(StateApplying, 10, fmt.Sprintf("Updating %d addresses", len(updates)))
	w.mu.Unlock()
	w.notify(p)

	res, err := w.applier.ApplyCorrections(ctx, ApplyRequest{Updates: updates})

	w.mu.Lock()
	if err != nil {
		w.err = err
		p = w.setProgress(StateFailed, 100, "Address update failed")
		w.mu.Unlock()
		w.notify(p)
		w.metrics.CorrectionRun(ctx, "apply_failed")
		w.logger.Warn("correction apply failed", zap.Error(err))
		return nil, fmt.Errorf("apply corrections: %w", err)
	}

	outcome := &Outcome{Updated: res.Updated, Total: res.Total, Failed: res.Total - res.Updated}
	w.outcome = outcome
	msg := fmt.Sprintf("Updated %d addresses", outcome.Updated)
	if outcome.Partial() {
		msg = fmt.Sprintf("Updated %d of %d addresses", outcome.Updated, outcome.Total)
	}
	p = w.setProgress(StateDone, 100, msg)
	w.guard.mark()
	w.mu.Unlock()
	w.notify(p)

	w.metrics.CorrectionRun(ctx, "done")
	w.metrics.CorrectionsApplied(ctx, outcome.Updated)
	w.logger.Info("corrections applied",
		zap.Int("updated", outcome.Updated),
		zap.Int("total", outcome.Total),
		zap.Bool("partial", outcome.Partial()))
	result := *outcome
	return &result, nil
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress
}

func (w *Workflow) Candidates() []Candidate {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Candidate(nil), w.candidates...)
}

// Guard returns the session guard shared with other workflows of the session.
func (w *Workflow) Guard() *SessionGuard {
	return w.guard
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Snapshot{
		State:      w.state.String(),
		Progress:   w.progress,
		Candidates: append([]Candidate(nil), w.candidates...),
	}
	if w.outcome != nil {
		o := *w.outcome
		s.Outcome = &o
	}
	if w.err != nil {
		s.Error = w.err.Error()
	}
	return s
}
