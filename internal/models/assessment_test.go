package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifySubmission(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.Equal(t, StatusSubmitted, ClassifySubmission(true, &past, now))
	assert.Equal(t, StatusSubmitted, ClassifySubmission(true, nil, now))
	assert.Equal(t, StatusNotSubmitted, ClassifySubmission(false, nil, now))
	assert.Equal(t, StatusOverdue, ClassifySubmission(false, &past, now))
	assert.Equal(t, StatusToSubmit, ClassifySubmission(false, &future, now))
	assert.Equal(t, StatusToSubmit, ClassifySubmission(false, &now, now))
}

func TestChartType(t *testing.T) {
	assert.True(t, ChartAll.Valid())
	assert.True(t, ChartForum.Valid())
	assert.False(t, ChartType(9).Valid())
	assert.False(t, ChartType(-1).Valid())

	assert.Equal(t, ModuleQuiz, ChartQuiz.Module())
	assert.Equal(t, "", ChartAll.Module())
	assert.True(t, ChartAll.Includes(ModuleWorkshop))
	assert.True(t, ChartAssign.Includes(ModuleAssign))
	assert.False(t, ChartAssign.Includes(ModuleQuiz))
}

func TestCacheKeyStorageKey(t *testing.T) {
	assert.Equal(t, "studentid_summary:42", CacheKey{Kind: StatSummary, UserID: "42"}.StorageKey("studentid_summary:"))
	key := CacheKey{Kind: StatSummaryByType, UserID: "42", Qualifier: ChartQualifier(ChartQuiz)}
	assert.Equal(t, "studentid_summarybytype:2:42", key.StorageKey("studentid_summarybytype:"))
}

func TestCacheEntryMatchesAndStale(t *testing.T) {
	computed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := CacheEntry{UserID: "42", Kind: StatSummary, ComputedAt: computed}

	assert.True(t, entry.Matches(CacheKey{Kind: StatSummary, UserID: "42"}))
	assert.False(t, entry.Matches(CacheKey{Kind: StatDueSoon, UserID: "42"}))
	assert.False(t, entry.Matches(CacheKey{Kind: StatSummary, UserID: "43"}))

	assert.False(t, entry.Stale(computed.Add(29*time.Minute), 30*time.Minute))
	assert.True(t, entry.Stale(computed.Add(30*time.Minute), 30*time.Minute))
}

func TestCacheEntryFromTheFutureIsStale(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := CacheEntry{UserID: "42", Kind: StatSummary, ComputedAt: now.Add(10 * time.Minute)}

	assert.True(t, entry.Stale(now, 30*time.Minute))
	assert.False(t, CacheEntry{ComputedAt: now}.Stale(now, 30*time.Minute))
}
