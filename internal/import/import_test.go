package import_pkg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/store"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offices.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportOffices(t *testing.T) {
	mem := store.NewMemory()
	core, logs := observer.New(zap.WarnLevel)
	ci := NewCSVImporter(mem, zap.New(core))

	path := writeCSV(t, strings.Join([]string{
		"id,name,address,tier,source",
		`o1,Sunrise Family Dental,"123 Main St, Springfield, IL 62704",VIP,partner`,
		"o2,Lakeside Orthodontics,,warm,",
		`o3,Harbor Smiles,"9 Bay Rd, Tampa, FL 33601",VIP,discovered`,
		",No Id,somewhere,,partner",
		"o5,Bad Tier,,Platinum,partner",
	}, "\n"))

	summary, err := ci.ImportOffices(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Summary{Imported: 3, Errors: 2}, summary)
	assert.Equal(t, 2, logs.FilterMessage("Error mapping record").Len())

	got, err := mem.GetOffices(context.Background(), []string{"o1", "o2", "o3"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "123 Main St, Springfield, IL 62704", got[0].AddressText())
	assert.Equal(t, model.TierVIP, got[0].Tier)
	assert.Nil(t, got[1].Address)
	assert.Equal(t, model.TierWarm, got[1].Tier)
	assert.Equal(t, model.SourcePartner, got[1].Source)
	assert.Equal(t, model.SourceDiscovered, got[2].Source)
	assert.Empty(t, got[2].Tier, "discovered offices carry no tier")
}

func TestImportLayouts(t *testing.T) {
	ctx := context.Background()

	partners := writeCSV(t, "ID,Name,Address,Tier\np1,North Dental,\"1 A St, Austin, TX 78701\",Cold\n")
	discovered := writeCSV(t, "id,name,address\nd1,South Dental,\"2 B St, Austin, TX 78702\"\n")

	mem := store.NewMemory()
	ci := NewCSVImporter(mem, nil)

	s, err := ci.Import(ctx, partners, LayoutPartners)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Imported)
	s, err = ci.Import(ctx, discovered, LayoutDiscovered)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Imported)

	all, err := mem.ListOffices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	bySource := map[model.Source]model.RawOfficeRecord{}
	for _, r := range all {
		bySource[r.Source] = r
	}
	assert.Equal(t, "p1", bySource[model.SourcePartner].ID)
	assert.Equal(t, model.TierCold, bySource[model.SourcePartner].Tier)
	assert.Equal(t, "d1", bySource[model.SourceDiscovered].ID)

	_, err = ci.Import(ctx, partners, "council")
	assert.Error(t, err)
}

func TestImportMissingColumns(t *testing.T) {
	mem := store.NewMemory()
	ci := NewCSVImporter(mem, nil)

	s, err := ci.ImportCSV(context.Background(), strings.NewReader("office,address\nx,y\n"), LayoutOffices, MapOffice)
	require.NoError(t, err)
	assert.Equal(t, Summary{Imported: 0, Errors: 1}, s)
}

func TestImportEmptyFile(t *testing.T) {
	ci := NewCSVImporter(store.NewMemory(), nil)
	_, err := ci.ImportCSV(context.Background(), strings.NewReader(""), LayoutOffices, MapOffice)
	assert.ErrorContains(t, err, "header")

	_, err = ci.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), LayoutOffices, MapOffice)
	assert.Error(t, err)
}

func TestImportBatches(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,name,address,tier,source\n")
	for i := 0; i < batchSize+7; i++ {
		fmt.Fprintf(&b, "o%d,Office %d,,,partner\n", i, i)
	}

	mem := store.NewMemory()
	ci := NewCSVImporter(mem, nil)
	s, err := ci.ImportCSV(context.Background(), strings.NewReader(b.String()), LayoutOffices, MapOffice)
	require.NoError(t, err)
	assert.Equal(t, batchSize+7, s.Imported)

	all, err := mem.ListOffices(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, batchSize+7)
}
