package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referral-labels/internal/store"
)

func TestRecordAndHistory(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer s.Close()

	tracker, err := NewTracker(ctx, s.DB(), s.Dialect())
	require.NoError(t, err)

	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)
	err = tracker.RecordCorrections(ctx, false, []Correction{
		{RunID: "run-1", OfficeID: "o1", OldAddress: "1 main st", NewAddress: "1 Main St, Irvine, CA 92618", Confidence: 0.8, AppliedBy: "alex", AppliedAt: earlier},
		{RunID: "run-2", OfficeID: "o1", OldAddress: "1 Main St, Irvine, CA 92618", NewAddress: "1 Main Street, Irvine, CA 92618", Confidence: 0.95, AppliedBy: "sam", AppliedAt: later},
		{RunID: "run-2", OfficeID: "o2", OldAddress: "a", NewAddress: "b", AppliedBy: "sam"},
	})
	require.NoError(t, err)

	history, err := tracker.History(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID, "newest first")
	assert.Equal(t, "1 main st", history[1].OldAddress)
	assert.InDelta(t, 0.95, history[0].Confidence, 1e-9)

	none, err := tracker.History(ctx, "o9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordNothing(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer s.Close()

	tracker, err := NewTracker(ctx, s.DB(), s.Dialect())
	require.NoError(t, err)
	assert.NoError(t, tracker.RecordCorrections(ctx, true, nil))
}
