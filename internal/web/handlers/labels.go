package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/referral-labels/internal/audit"
	"github.com/referral-labels/internal/export"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/store"
)

// LabelsHandler serves stateless label views straight from the store.
type LabelsHandler struct {
	Store   store.Store
	Builder *labels.Builder
	Audit   *audit.Tracker
	Config  *Config
}

// LabelsResponse is the body of GET /api/labels.
type LabelsResponse struct {
	labels.Result
	Total int `json:"total"`
}

// ListLabels builds labels for the filters in the query string.
func (h *LabelsHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.Store.ListOffices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	res := h.Builder.Build(records, filters)
	writeJSON(w, http.StatusOK, LabelsResponse{Result: res, Total: len(res.Labels)})
}

// Preview renders the label sheets as plain text.
func (h *LabelsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := filtersFromQuery(q)
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := exportOptions(q, h.Config.Export)
	if err != nil {
		writeError(w, err)
		return
	}
	tmpl, err := export.Lookup(opts.Template)
	if err != nil {
		writeError(w, invalid("%v", err))
		return
	}
	records, err := h.Store.ListOffices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(export.RenderPreview(h.Builder.Labels(records, filters), tmpl, opts, true)))
}

// Templates lists the label sheet presets.
func (h *LabelsHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, export.Templates())
}

// History returns the applied address corrections for one office.
func (h *LabelsHandler) History(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := store.GetOffice(r.Context(), h.Store, id); err != nil {
		writeError(w, err)
		return
	}
	if h.Audit == nil {
		writeJSON(w, http.StatusOK, []audit.Correction{})
		return
	}
	entries, err := h.Audit.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Correction{}
	}
	writeJSON(w, http.StatusOK, entries)
}
