package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/referral-labels/internal/correction"
	"github.com/referral-labels/internal/export"
	"github.com/referral-labels/internal/geocode"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/session"
	"github.com/referral-labels/internal/store"
)

// Config is the subset of the application config the handlers read.
type Config struct {
	Features struct {
		ExportEnabled     bool
		CorrectionEnabled bool
	}
	Export export.Options
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var empty *correction.EmptySelectionError
	if errors.As(err, &empty) {
		resp.Error = empty.Reason.Message()
		resp.Reason = empty.Reason.String()
	}
	writeJSON(w, statusFor(err), resp)
}

// badRequest marks client input errors.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func invalid(format string, args ...interface{}) error {
	return badRequest{fmt.Errorf(format, args...)}
}

func statusFor(err error) int {
	var (
		empty *correction.EmptySelectionError
		bad   badRequest
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, correction.ErrAlreadyCorrected),
		errors.Is(err, correction.ErrInProgress),
		errors.Is(err, correction.ErrNotReviewing),
		errors.Is(err, correction.ErrDiscarded),
		errors.Is(err, session.ErrNotEditing),
		errors.Is(err, session.ErrAlreadyEditing):
		return http.StatusConflict
	case errors.Is(err, correction.ErrNoSelection),
		errors.Is(err, correction.ErrUnknownCandidate),
		errors.Is(err, session.ErrRowOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, errWorkspaceNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, geocode.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid("invalid JSON request: %v", err)
	}
	return nil
}

// filtersFromQuery reads tier (repeated or comma separated), search, source,
// includeDiscovered and logParseErrors.
func filtersFromQuery(q url.Values) (labels.Filters, error) {
	var f labels.Filters
	for _, raw := range q["tier"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			tier, err := model.ParseTier(part)
			if err != nil {
				return f, invalid("%v", err)
			}
			f.Tiers = append(f.Tiers, tier)
		}
	}
	f.Search = q.Get("search")

	source, err := labels.ParseSourceFilter(q.Get("source"))
	if err != nil {
		return f, invalid("%v", err)
	}
	f.Source = source

	if f.IncludeDiscovered, err = parseBool(q, "includeDiscovered"); err != nil {
		return f, err
	}
	if f.LogParseErrors, err = parseBool(q, "logParseErrors"); err != nil {
		return f, err
	}
	return f, nil
}

func parseBool(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, invalid("invalid %s: %q", key, v)
	}
	return b, nil
}

// exportOptions overlays template, nameFormat and showTo from the query on
// the configured defaults.
func exportOptions(q url.Values, defaults export.Options) (export.Options, error) {
	opts := defaults
	if t := q.Get("template"); t != "" {
		tmpl, err := export.Lookup(t)
		if err != nil {
			return opts, invalid("%v", err)
		}
		opts.Template = tmpl.Code
	}
	if f := q.Get("nameFormat"); f != "" {
		format, err := export.ParseNameFormat(f)
		if err != nil {
			return opts, invalid("%v", err)
		}
		opts.NameFormat = format
	}
	if q.Has("showTo") {
		show, err := parseBool(q, "showTo")
		if err != nil {
			return opts, err
		}
		opts.ShowTo = show
	}
	return opts, nil
}
