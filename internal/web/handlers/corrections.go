package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/correction"
)

// StartCorrections checks the addresses of the workspace's current
// selection and leaves the run awaiting review.
func (h *WorkspacesHandler) StartCorrections(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	records, filters := ws.Session.Inputs()
	if _, err := ws.Workflow.Start(r.Context(), records, filters); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Workflow.Snapshot())
}

// DismissCorrections closes the review without applying anything.
func (h *WorkspacesHandler) DismissCorrections(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.Workflow.Dismiss()
	writeJSON(w, http.StatusOK, ws.Workflow.Snapshot())
}

// ApplySelection lists the candidates the reviewer approved.
type ApplySelection struct {
	OfficeIDs []string `json:"officeIds"`
}

// ApplyCorrections writes the approved candidates and refreshes the
// workspace so the labels pick up the new addresses.
func (h *WorkspacesHandler) ApplyCorrections(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var sel ApplySelection
	if err := decodeJSON(r, &sel); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := ws.Workflow.Apply(r.Context(), sel.OfficeIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	_, filters := ws.Session.Inputs()
	if err := h.reload(r.Context(), ws, filters); err != nil {
		h.logger().Warn("Failed to refresh workspace after corrections",
			zap.String("workspace", ws.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, struct {
		Outcome   *correction.Outcome `json:"outcome"`
		Workspace WorkspaceView       `json:"workspace"`
	}{outcome, view(ws)})
}

// CorrectionsHandler exposes a correction backend to remote clients such
// as correction.Client.
type CorrectionsHandler struct {
	Backend CorrectionBackend
	Logger  *zap.Logger
}

func (h *CorrectionsHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req correction.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.Backend.RequestCorrections(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CorrectionsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req correction.ApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Backend.ApplyCorrections(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("Corrections applied via API",
			zap.String("actor", correction.ActorFrom(r.Context())),
			zap.Int("updated", res.Updated),
			zap.Int("total", res.Total))
	}
	writeJSON(w, http.StatusOK, res)
}
