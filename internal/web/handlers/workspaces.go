package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/referral-labels/internal/correction"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/session"
	"github.com/referral-labels/internal/store"
	"github.com/referral-labels/internal/telemetry"
)

var errWorkspaceNotFound = errors.New("workspace not found")

// Workspace is one user's labels screen: an edit session plus the address
// correction run that shares its lifetime.
type Workspace struct {
	ID       string
	Created  time.Time
	Session  *session.Controller
	Workflow *correction.Workflow
	progress *progressHub
	lastUsed time.Time // guarded by Registry.mu
}

// Registry holds the live workspaces.
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	ttl        time.Duration
	now        func() time.Time
}

// NewRegistry creates a registry. Workspaces not looked up for longer than
// ttl are dropped on the next Add; zero keeps them forever.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{workspaces: make(map[string]*Workspace), ttl: ttl, now: time.Now}
}

func (r *Registry) Add(ws *Workspace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if r.ttl > 0 {
		for id, old := range r.workspaces {
			if now.Sub(old.lastUsed) > r.ttl {
				delete(r.workspaces, id)
			}
		}
	}
	ws.lastUsed = now
	r.workspaces[ws.ID] = ws
}

// Get returns the workspace and marks it as used.
func (r *Registry) Get(id string) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[id]
	if !ok {
		return nil, errWorkspaceNotFound
	}
	ws.lastUsed = r.now()
	return ws, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// CorrectionBackend is what a workspace's correction run talks to.
type CorrectionBackend interface {
	correction.Requester
	correction.Applier
}

// WorkspacesHandler serves the edit session and correction endpoints of a
// workspace.
type WorkspacesHandler struct {
	Store      store.Store
	Builder    *labels.Builder
	Correction CorrectionBackend
	Exporter   Exporter
	Registry   *Registry
	Config     *Config
	Logger     *zap.Logger
	Metrics    *telemetry.Metrics
}

// WorkspaceView is the JSON form of a workspace.
type WorkspaceView struct {
	ID              string                   `json:"id"`
	State           string                   `json:"state"`
	Editing         bool                     `json:"editing"`
	Filters         labels.Filters           `json:"filters"`
	Labels          []model.MailingLabelData `json:"labels"`
	Draft           []model.MailingLabelData `json:"draft,omitempty"`
	Corrections     correction.Snapshot      `json:"corrections"`
	CorrectionsUsed bool                     `json:"correctionsUsed"`
}

func view(ws *Workspace) WorkspaceView {
	_, filters := ws.Session.Inputs()
	return WorkspaceView{
		ID:              ws.ID,
		State:           ws.Session.State().String(),
		Editing:         ws.Session.Editing(),
		Filters:         filters,
		Labels:          ws.Session.Working(),
		Draft:           ws.Session.Draft(),
		Corrections:     ws.Workflow.Snapshot(),
		CorrectionsUsed: ws.Workflow.Guard().Used(),
	}
}

func (h *WorkspacesHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *WorkspacesHandler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	ws, err := h.Registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return ws, true
}

// Create opens a workspace for the filters in the body.
func (h *WorkspacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var filters labels.Filters
	if err := decodeJSON(r, &filters); err != nil {
		writeError(w, err)
		return
	}
	records, err := h.Store.ListOffices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	hub := newProgressHub()
	ws := &Workspace{
		ID:       uuid.NewString(),
		Created:  time.Now(),
		Session:  session.New(h.Builder.Labels, records, filters),
		progress: hub,
	}
	ws.Workflow = correction.NewWorkflow(h.Correction, h.Correction, nil,
		correction.WithLogger(h.logger().With(zap.String("workspace", ws.ID))),
		correction.WithMetrics(h.Metrics),
		correction.WithProgress(hub.publish))
	h.Registry.Add(ws)

	h.logger().Info("Workspace created", zap.String("workspace", ws.ID), zap.Int("labels", len(ws.Session.Working())))
	writeJSON(w, http.StatusCreated, view(ws))
}

func (h *WorkspacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if ws, ok := h.workspace(w, r); ok {
		writeJSON(w, http.StatusOK, view(ws))
	}
}

// Refresh reloads the offices and applies the filters in the body, or the
// current filters when the body is empty.
func (h *WorkspacesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	_, filters := ws.Session.Inputs()
	if err := decodeJSON(r, &filters); err != nil {
		writeError(w, err)
		return
	}
	if err := h.reload(r.Context(), ws, filters); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(ws))
}

func (h *WorkspacesHandler) reload(ctx context.Context, ws *Workspace, filters labels.Filters) error {
	records, err := h.Store.ListOffices(ctx)
	if err != nil {
		return err
	}
	ws.Session.Refresh(records, filters)
	return nil
}

func (h *WorkspacesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, (*session.Controller).BeginEdit)
}

func (h *WorkspacesHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, (*session.Controller).Save)
}

func (h *WorkspacesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, func(c *session.Controller) error {
		c.Cancel()
		return nil
	})
}

func (h *WorkspacesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, func(c *session.Controller) error {
		c.Reset()
		return nil
	})
}

func (h *WorkspacesHandler) sessionAction(w http.ResponseWriter, r *http.Request, action func(*session.Controller) error) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := action(ws.Session); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(ws))
}

// CellEdit changes one cell of the draft.
type CellEdit struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// UpdateCells applies a batch of cell edits in order. The first failing
// edit stops the batch; earlier edits stay in the draft.
func (h *WorkspacesHandler) UpdateCells(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var edits []CellEdit
	if err := decodeJSON(r, &edits); err != nil {
		writeError(w, err)
		return
	}
	for _, e := range edits {
		field, err := session.ParseField(e.Field)
		if err != nil {
			writeError(w, invalid("%v", err))
			return
		}
		if err := ws.Session.EditCell(e.Row, field, e.Value); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, view(ws))
}
