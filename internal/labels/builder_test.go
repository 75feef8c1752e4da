package labels

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/referral-labels/internal/model"
)

func sampleRecords() []model.RawOfficeRecord {
	return []model.RawOfficeRecord{
		{ID: "1", Name: "Bright Smiles: Dr. Jane Alvarez", Address: model.StringPtr("123 Main St, Suite 200, Irvine, CA 92618"), Tier: model.TierVIP, Source: model.SourcePartner},
		{ID: "2", Name: "Sunrise Family Dental", Address: model.StringPtr("456 Oak Ave, Austin, TX 78701-1234"), Tier: model.TierWarm, Source: model.SourcePartner},
		{ID: "3", Name: "John Carter, DDS", Address: nil, Tier: model.TierCold, Source: model.SourcePartner},
		{ID: "4", Name: "Clínica Peña", Address: model.StringPtr("9 Bay Rd, Tampa, FL 33602"), Source: model.SourceDiscovered},
		{ID: "5", Name: "Jane Smith", Address: model.StringPtr("789 Pine Rd"), Source: model.SourcePartner},
	}
}

func ids(res Result, records []model.RawOfficeRecord) []string {
	byName := map[string]string{}
	for _, r := range records {
		byName[r.Name] = r.ID
	}
	out := []string{}
	for _, l := range res.Labels {
		out = append(out, byName[l.OfficeName])
	}
	return out
}

func TestBuildFilters(t *testing.T) {
	records := sampleRecords()
	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"default excludes discovered", Filters{}, []string{"1", "2", "3", "5"}},
		{"include discovered", Filters{IncludeDiscovered: true}, []string{"1", "2", "3", "4", "5"}},
		{"discovered only ignores toggle", Filters{Source: SourceDiscovered}, []string{"4"}},
		{"partner only ignores toggle", Filters{Source: SourcePartner, IncludeDiscovered: true}, []string{"1", "2", "3", "5"}},
		{"tier restriction drops untiered", Filters{Tiers: []model.Tier{model.TierVIP, model.TierCold}}, []string{"1", "3"}},
		{"tier restriction leaves discovered alone", Filters{Tiers: []model.Tier{model.TierVIP}, IncludeDiscovered: true}, []string{"1", "4"}},
		{"search name case insensitive", Filters{Search: "SMILES"}, []string{"1"}},
		{"search address", Filters{Search: "austin"}, []string{"2"}},
		{"search folds accents", Filters{Search: "pena", IncludeDiscovered: true}, []string{"4"}},
		{"search no match", Filters{Search: "zzz"}, []string{}},
	}

	b := NewBuilder(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(b.Build(records, tt.filters), records)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Build() ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildLabelContent(t *testing.T) {
	b := NewBuilder(nil, nil)
	res := b.Build(sampleRecords()[:2], Filters{})

	want := []model.MailingLabelData{
		{OfficeName: "Bright Smiles: Dr. Jane Alvarez", ContactName: "Dr. Jane Alvarez", Address1: "123 Main St", Address2: "Suite 200", City: "Irvine", State: "CA", Zip: "92618"},
		{OfficeName: "Sunrise Family Dental", ContactName: "Sunrise Family Dental", Address1: "456 Oak Ave", City: "Austin", State: "TX", Zip: "78701-1234"},
	}
	if diff := cmp.Diff(want, res.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.ParseErrors)
}

func TestBuildReportsParseErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	b := NewBuilder(zap.New(core), nil)
	res := b.Build(sampleRecords(), Filters{LogParseErrors: true})

	require.Len(t, res.ParseErrors, 1)
	assert.Equal(t, "3", res.ParseErrors[0].OfficeID)
	assert.Len(t, res.Labels, 4, "parse errors are still emitted")
	assert.Equal(t, 1, logs.FilterMessageSnippet("Address parse error").Len())
}

func TestBuildQuietWithoutLogFlag(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	NewBuilder(nil, nil).Build(sampleRecords(), Filters{})
	assert.Zero(t, logs.FilterMessageSnippet("Address parse error").Len())
}

func TestFiltersEqual(t *testing.T) {
	a := Filters{Tiers: []model.Tier{model.TierVIP}, Search: "x"}
	b := Filters{Tiers: []model.Tier{model.TierVIP}, Search: "x", Source: SourceAll}
	assert.True(t, a.Equal(b))
	b.Tiers = append(b.Tiers, model.TierCold)
	assert.False(t, a.Equal(b))
}

func TestParseSourceFilter(t *testing.T) {
	f, err := ParseSourceFilter("")
	require.NoError(t, err)
	assert.Equal(t, SourceAll, f)

	f, err = ParseSourceFilter("Discovered")
	require.NoError(t, err)
	assert.Equal(t, SourceDiscovered, f)

	_, err = ParseSourceFilter("nearby")
	assert.Error(t, err)
}
