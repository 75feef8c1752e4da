package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
)

type countingBuilder struct {
	calls int
	inner *labels.Builder
}

func (b *countingBuilder) build(records []model.RawOfficeRecord, f labels.Filters) []model.MailingLabelData {
	b.calls++
	return b.inner.Labels(records, f)
}

func records() []model.RawOfficeRecord {
	return []model.RawOfficeRecord{
		{ID: "1", Name: "Jane Smith", Address: model.StringPtr("123 Main St, Irvine, CA 92618"), Tier: model.TierVIP, Source: model.SourcePartner},
		{ID: "2", Name: "Sunrise Family Dental", Address: model.StringPtr("456 Oak Ave, Austin, TX 78701"), Tier: model.TierWarm, Source: model.SourcePartner},
	}
}

func newController(t *testing.T) (*Controller, *countingBuilder) {
	t.Helper()
	b := &countingBuilder{inner: labels.NewBuilder(nil, nil)}
	return New(b.build, records(), labels.Filters{}), b
}

func TestNewStartsClean(t *testing.T) {
	c, b := newController(t)
	assert.Equal(t, StateClean, c.State())
	assert.False(t, c.Editing())
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, c.Baseline(), c.Working())
	assert.Len(t, c.Working(), 2)
}

func TestRefreshWhileCleanFollowsUpstream(t *testing.T) {
	c, b := newController(t)

	assert.False(t, c.Refresh(records(), labels.Filters{}), "identical content is not a change")
	assert.Equal(t, 1, b.calls)

	assert.True(t, c.Refresh(records(), labels.Filters{Tiers: []model.Tier{model.TierVIP}}))
	assert.Len(t, c.Working(), 1)
	assert.Equal(t, c.Baseline(), c.Working())
}

func TestEditSaveMakesDirty(t *testing.T) {
	c, _ := newController(t)

	require.NoError(t, c.BeginEdit())
	assert.ErrorIs(t, c.BeginEdit(), ErrAlreadyEditing)
	require.NoError(t, c.EditCell(0, FieldAddress2, "Suite 9"))
	assert.Empty(t, c.Working()[0].Address2, "draft edits are not visible before save")
	require.NoError(t, c.Save())

	assert.Equal(t, StateDirty, c.State())
	assert.False(t, c.Editing())
	assert.Equal(t, "Suite 9", c.Working()[0].Address2)
}

func TestDirtyIgnoresUpstream(t *testing.T) {
	c, b := newController(t)
	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.EditCell(1, FieldCity, "Round Rock"))
	require.NoError(t, c.Save())
	before := c.Working()

	changed := records()
	changed[0].Name = "Jane Smith-Lopez"
	assert.False(t, c.Refresh(changed, labels.Filters{IncludeDiscovered: true}))
	assert.Equal(t, 1, b.calls, "no recompute while dirty")
	assert.Equal(t, before, c.Working())

	c.Reset()
	assert.Equal(t, StateClean, c.State())
	assert.Equal(t, "Dr. Jane Smith-Lopez", c.Working()[0].ContactName, "reset uses latest upstream")
	assert.Equal(t, "Austin", c.Working()[1].City)
}

func TestCancelWhileCleanRevertsToBaseline(t *testing.T) {
	c, _ := newController(t)
	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.EditCell(0, FieldZip, "00000"))
	c.Cancel()

	assert.Equal(t, StateClean, c.State())
	assert.Equal(t, c.Baseline(), c.Working())
	assert.Nil(t, c.Draft())
}

func TestCancelWhileDirtyKeepsSavedEdits(t *testing.T) {
	c, _ := newController(t)
	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.EditCell(0, FieldZip, "11111"))
	require.NoError(t, c.Save())

	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.EditCell(0, FieldZip, "22222"))
	c.Cancel()

	assert.Equal(t, StateDirty, c.State())
	assert.Equal(t, "11111", c.Working()[0].Zip)
}

func TestSaveWithoutChangesStaysClean(t *testing.T) {
	c, _ := newController(t)
	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.Save())
	assert.Equal(t, StateClean, c.State())
}

func withLakeside(recs []model.RawOfficeRecord) []model.RawOfficeRecord {
	return append(recs, model.RawOfficeRecord{
		ID: "3", Name: "Lakeside Orthodontics", Address: model.StringPtr("9 Lake Rd, Austin, TX 78701"),
		Tier: model.TierCold, Source: model.SourcePartner,
	})
}

func TestRefreshDuringUneditedDraft(t *testing.T) {
	c, _ := newController(t)

	require.NoError(t, c.BeginEdit())
	require.True(t, c.Refresh(withLakeside(records()), labels.Filters{}))
	assert.Len(t, c.Draft(), 3, "an untouched draft follows the rebuilt rows")

	require.NoError(t, c.Save())
	assert.Equal(t, StateClean, c.State())
	assert.Len(t, c.Working(), 3)
	assert.Equal(t, c.Baseline(), c.Working())

	assert.True(t, c.Refresh(records(), labels.Filters{}), "still following upstream")
	assert.Len(t, c.Working(), 2)
}

func TestRefreshDuringEditedDraft(t *testing.T) {
	c, _ := newController(t)

	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.EditCell(0, FieldAddress2, "Suite 9"))
	require.True(t, c.Refresh(withLakeside(records()), labels.Filters{}))
	assert.Len(t, c.Draft(), 2, "edited draft is kept")
	assert.Len(t, c.Working(), 3)

	require.NoError(t, c.Save())
	assert.Equal(t, StateDirty, c.State())
	working := c.Working()
	require.Len(t, working, 2)
	assert.Equal(t, "Suite 9", working[0].Address2)
}

func TestCancelAfterRefreshKeepsRebuiltRows(t *testing.T) {
	c, _ := newController(t)

	require.NoError(t, c.BeginEdit())
	require.NoError(t, c.EditCell(1, FieldCity, "Dallas"))
	require.True(t, c.Refresh(withLakeside(records()), labels.Filters{}))
	c.Cancel()

	assert.Equal(t, StateClean, c.State())
	assert.Len(t, c.Working(), 3)
	assert.Equal(t, "Austin", c.Working()[1].City)
}

func TestEditErrors(t *testing.T) {
	c, _ := newController(t)
	assert.ErrorIs(t, c.EditCell(0, FieldCity, "x"), ErrNotEditing)
	assert.ErrorIs(t, c.Save(), ErrNotEditing)

	require.NoError(t, c.BeginEdit())
	err := c.EditCell(5, FieldCity, "x")
	assert.True(t, errors.Is(err, ErrRowOutOfRange))
	assert.Error(t, c.EditCell(0, Field(42), "x"))
}

func TestWorkingIsACopy(t *testing.T) {
	c, _ := newController(t)
	w := c.Working()
	w[0].City = "Mutated"
	assert.NotEqual(t, "Mutated", c.Working()[0].City)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("Address2")
	require.NoError(t, err)
	assert.Equal(t, FieldAddress2, f)
	assert.Equal(t, "address2", f.String())

	_, err = ParseField("country")
	assert.Error(t, err)
}
