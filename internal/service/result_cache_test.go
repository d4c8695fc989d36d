package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sympdx-server/internal/domain"
)

func newTestCachedEngine(t *testing.T) *CachedEngine {
	t.Helper()
	engine := NewDiagnosisEngine(testEngineConfig(), testLogger())
	cached, err := NewCachedEngine(engine, 16, nil, 0, testLogger())
	require.NoError(t, err)
	return cached
}

func TestCachedEngine_MemoryHit(t *testing.T) {
	cached := newTestCachedEngine(t)
	cat := respiratoryCatalog(t)
	ctx := context.Background()

	first, err := cached.Diagnose(ctx, []string{"fever", "cough"}, cat, 10)
	require.NoError(t, err)

	second, err := cached.Diagnose(ctx, []string{"fever", "cough"}, cat, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stats := cached.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.MemoryHits)
}

func TestCachedEngine_SymptomOrderDoesNotAffectIdentity(t *testing.T) {
	cached := newTestCachedEngine(t)
	cat := respiratoryCatalog(t)
	ctx := context.Background()

	_, err := cached.Diagnose(ctx, []string{"fever", "cough"}, cat, 10)
	require.NoError(t, err)

	_, err = cached.Diagnose(ctx, []string{"cough", "fever"}, cat, 10)
	require.NoError(t, err)

	stats := cached.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.MemoryHits)
}

func TestCachedEngine_TopNIsPartOfIdentity(t *testing.T) {
	cached := newTestCachedEngine(t)
	cat := respiratoryCatalog(t)
	ctx := context.Background()

	one, err := cached.Diagnose(ctx, []string{"fever", "cough", "sneezing"}, cat, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)

	all, err := cached.Diagnose(ctx, []string{"fever", "cough", "sneezing"}, cat, 10)
	require.NoError(t, err)
	assert.Greater(t, len(all), 1)
}

func TestCachedEngine_ErrorsNotCached(t *testing.T) {
	cached := newTestCachedEngine(t)
	cat := respiratoryCatalog(t)
	ctx := context.Background()

	_, err := cached.Diagnose(ctx, []string{"glowing"}, cat, 10)
	require.Error(t, err)

	stats := cached.Stats()
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, int64(0), stats.MemoryHits)
}

func TestCachedEngine_Invalidate(t *testing.T) {
	cached := newTestCachedEngine(t)
	cat := respiratoryCatalog(t)
	ctx := context.Background()

	_, err := cached.Diagnose(ctx, []string{"fever", "cough"}, cat, 10)
	require.NoError(t, err)

	cached.Invalidate(ctx)

	_, err = cached.Diagnose(ctx, []string{"fever", "cough"}, cat, 10)
	require.NoError(t, err)

	stats := cached.Stats()
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), stats.Invalidations)
}

func TestCachedEngine_CallersCannotPoisonCache(t *testing.T) {
	cached := newTestCachedEngine(t)
	cat := respiratoryCatalog(t)
	ctx := context.Background()

	first, err := cached.Diagnose(ctx, []string{"fever", "cough"}, cat, 10)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	require.NotEmpty(t, first[0].MatchedSymptoms)
	wantMatched := append([]string(nil), first[0].MatchedSymptoms...)

	first[0].Score = -1
	first[0].DiseaseID = "tampered"
	first[0].MatchedSymptoms[0] = "tampered"

	second, err := cached.Diagnose(ctx, []string{"fever", "cough"}, cat, 10)
	require.NoError(t, err)
	assert.Equal(t, "flu", second[0].DiseaseID)
	assert.Greater(t, second[0].Score, 0.0)
	assert.Equal(t, wantMatched, second[0].MatchedSymptoms)
}

func TestCachedEngine_EmptyResultIsCached(t *testing.T) {
	cached := newTestCachedEngine(t)
	cat, err := domain.NewCatalog(
		symptomSet("fever", "rash"),
		[]domain.Disease{
			{ID: "measles", Profile: map[string]float64{"rash": 1}},
		},
	)
	require.NoError(t, err)
	ctx := context.Background()

	empty, err := cached.Diagnose(ctx, []string{"fever"}, cat, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	again, err := cached.Diagnose(ctx, []string{"fever"}, cat, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	stats := cached.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.MemoryHits)
}
