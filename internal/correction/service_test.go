package correction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referral-labels/internal/audit"
	"github.com/referral-labels/internal/geocode"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/store"
)

type mapStandardizer map[string]string

func (m mapStandardizer) Standardize(ctx context.Context, address string) (string, error) {
	if out, ok := m[address]; ok {
		return out, nil
	}
	if address == "outage" {
		return "", geocode.ErrUnavailable
	}
	return "", geocode.ErrNoMatch
}

func serviceStore() *store.Memory {
	return store.NewMemory(
		model.RawOfficeRecord{ID: "a", Name: "Bright Smiles", Address: model.StringPtr("123 main st ste 200, irvine, CA 92618"), Source: model.SourcePartner},
		model.RawOfficeRecord{ID: "b", Name: "Jane Smith", Address: model.StringPtr("456 Oak Ave, Austin, TX 78701"), Source: model.SourcePartner},
		model.RawOfficeRecord{ID: "c", Name: "Mystery", Address: model.StringPtr("somewhere"), Source: model.SourcePartner},
		model.RawOfficeRecord{ID: "d", Name: "Empty", Source: model.SourcePartner},
	)
}

func TestServiceRequest(t *testing.T) {
	st := serviceStore()
	std := mapStandardizer{
		"123 main st ste 200, irvine, CA 92618": "123 Main St, Ste 200, Irvine, CA 92618",
		"456 Oak Ave, Austin, TX 78701":         "456 Oak Ave, Austin, TX 78701",
	}
	svc := NewService(st, std, WithConcurrency(2))

	resp, err := svc.RequestCorrections(context.Background(), Request{OfficeIDs: []string{"a", "b", "c", "d", "zz"}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 4)
	assert.Equal(t, 1, resp.NeedsUpdate)
	assert.Equal(t, "123 Main St, Ste 200, Irvine, CA 92618", resp.Results[0].Corrected)
	assert.Equal(t, "somewhere", resp.Results[2].Corrected, "no match keeps the original")
	assert.Equal(t, "", resp.Results[3].Corrected)
}

func TestServiceRequestOutageFails(t *testing.T) {
	st := store.NewMemory(model.RawOfficeRecord{ID: "x", Name: "X", Address: model.StringPtr("outage"), Source: model.SourcePartner})
	svc := NewService(st, mapStandardizer{})

	_, err := svc.RequestCorrections(context.Background(), Request{OfficeIDs: []string{"x"}})
	assert.True(t, errors.Is(err, geocode.ErrUnavailable))
}

func TestServiceApplyAudits(t *testing.T) {
	ctx := context.Background()
	sqlite, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "labels.db"))
	require.NoError(t, err)
	defer sqlite.Close()
	_, err = sqlite.UpsertOffices(ctx, []model.RawOfficeRecord{
		{ID: "a", Name: "Bright Smiles", Address: model.StringPtr("123 main st"), Source: model.SourcePartner},
	})
	require.NoError(t, err)

	tracker, err := audit.NewTracker(ctx, sqlite.DB(), sqlite.Dialect())
	require.NoError(t, err)
	svc := NewService(sqlite, geocode.Local{}, WithAuditor(tracker))

	res, err := svc.ApplyCorrections(WithActor(ctx, "reviewer@example.com"), ApplyRequest{Updates: []store.AddressUpdate{
		{ID: "a", Address: "123 Main St, Irvine, CA 92618"},
		{ID: "gone", Address: "x"},
	}})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Updated: 1, Total: 2}, *res)

	history, err := tracker.History(ctx, "a")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "123 main st", history[0].OldAddress)
	assert.Equal(t, "reviewer@example.com", history[0].AppliedBy)
}

func TestActorDefault(t *testing.T) {
	assert.Equal(t, "system", ActorFrom(context.Background()))
}

// correctionServer exposes a Service the way the web handlers do.
func correctionServer(t *testing.T, svc *Service, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/api/corrections/request", authed(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp, err := svc.RequestCorrections(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	mux.HandleFunc("/api/corrections/apply", authed(func(w http.ResponseWriter, r *http.Request) {
		var req ApplyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp, err := svc.ApplyCorrections(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientDrivesWorkflow(t *testing.T) {
	st := serviceStore()
	srv := correctionServer(t, NewService(st, geocode.Local{}), "secret")
	client := NewClient(srv.URL+"/", "secret", srv.Client())

	records, err := st.ListOffices(context.Background())
	require.NoError(t, err)

	w := NewWorkflow(client, client, nil)
	candidates, err := w.Start(context.Background(), records, labels.Filters{})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	var changed []string
	for _, c := range candidates {
		if c.Changed {
			changed = append(changed, c.OfficeID)
		}
	}
	require.Equal(t, []string{"a"}, changed)

	outcome, err := w.Apply(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Updated)

	got, _ := st.GetOffices(context.Background(), []string{"a"})
	assert.Equal(t, "123 main st, Ste 200, irvine, CA 92618", got[0].AddressText())
}

func TestClientUnauthorized(t *testing.T) {
	srv := correctionServer(t, NewService(serviceStore(), geocode.Local{}), "secret")
	client := NewClient(srv.URL, "wrong", srv.Client())

	_, err := client.RequestCorrections(context.Background(), Request{OfficeIDs: []string{"a"}})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", srv.Client()).ApplyCorrections(context.Background(), ApplyRequest{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "boom"))
}
