package main

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/floodview/internal/adapter/fixtures"
	"github.com/couchcryptid/floodview/internal/domain"
)

func TestGenerate_LoadsAsCatalogs(t *testing.T) {
	dir := t.TempDir()
	stats, err := generate(options{out: dir, models: []string{"modelA", "modelB"}, dates: 3, seed: 1})
	require.NoError(t, err)

	aoiCount := len(domain.KnownAOIs())
	assert.Equal(t, aoiCount*3, stats.images)
	assert.Equal(t, 2*aoiCount*3*domain.LayerKindCount, stats.layers)

	cats, err := fixtures.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"modelA", "modelB"}, cats.AOIs.Models())
	assert.Equal(t, domain.KnownAOIs(), cats.AOIs.AOIs("modelA"))

	dates, ok := cats.AOIs.Dates("modelA", domain.AOIRaho)
	require.True(t, ok)
	assert.Equal(t, []string{"2021-07-01", "2021-07-07", "2021-07-13"}, dates)

	img, ok := cats.Images.Lookup(domain.AOIRaho, "2021-07-07")
	require.True(t, ok)
	assert.Equal(t, "Raho/raho_20210707.tif", img.Src)

	refs, ok := cats.AOIs.Refs("modelA", domain.AOIRaho, "2021-07-07")
	require.True(t, ok)
	data, err := os.ReadFile(filepath.Join(dir, refs.Ref(domain.HeatmapHigh)))
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.NotEmpty(t, fc.Features)
	for _, f := range fc.Features {
		_, styled := domain.StyleFor(domain.HeatmapHigh, f.Geometry)
		assert.True(t, styled)
		assert.Equal(t, "heatmap_high", f.Properties["layer"])
		// Raho sits around 24.2E 48.0N.
		c := f.Geometry.Bound().Center()
		assert.InDelta(t, 24.2, c.Lon(), 0.1)
		assert.InDelta(t, 48.05, c.Lat(), 0.1)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	_, err := generate(options{out: a, models: []string{"m"}, dates: 2, seed: 7})
	require.NoError(t, err)
	_, err = generate(options{out: b, models: []string{"m"}, dates: 2, seed: 7})
	require.NoError(t, err)

	ref := filepath.Join("m", domain.AOIDrina, "2021-07-01", "classified.geojson")
	da, err := os.ReadFile(filepath.Join(a, ref))
	require.NoError(t, err)
	db, err := os.ReadFile(filepath.Join(b, ref))
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestGenerate_Gaps(t *testing.T) {
	dir := t.TempDir()
	_, err := generate(options{out: dir, models: []string{"m"}, dates: 2, seed: 1, gaps: true})
	require.NoError(t, err)

	cats, err := fixtures.LoadDir(dir)
	require.NoError(t, err)
	_, ok := cats.Images.Lookup(domain.AOIKiskore, "2021-07-07")
	assert.False(t, ok)
	_, ok = cats.Images.Lookup(domain.AOIKiskore, "2021-07-01")
	assert.True(t, ok)
}

func TestLayerFeatures_InsideExtent(t *testing.T) {
	extent, _ := domain.ExtentFor(domain.AOIKiskore)
	fc := layerFeatures(newTestRand(), extent, domain.Classified)
	assert.Len(t, fc.Features, domain.LayerKindCount+1)
	for _, f := range fc.Features {
		_, ok := f.Geometry.(orb.MultiPolygon)
		assert.True(t, ok)
	}
}

func newTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 1))
}
