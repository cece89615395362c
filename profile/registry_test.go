package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napolitain/selfprofile/profile"
)

func TestCacheConfig_Packing(t *testing.T) {
	assert.Equal(t, uint64(0), profile.CacheConfig(profile.CacheL1D, profile.CacheOpRead, profile.CacheResultAccess))
	assert.Equal(t, uint64(0x10000), profile.CacheConfig(profile.CacheL1D, profile.CacheOpRead, profile.CacheResultMiss))
	assert.Equal(t, uint64(0x100), profile.CacheConfig(profile.CacheL1D, profile.CacheOpWrite, profile.CacheResultAccess))
	assert.Equal(t, uint64(0x10102), profile.CacheConfig(profile.CacheLL, profile.CacheOpWrite, profile.CacheResultMiss))
}

func TestEvents_CatalogIsUniqueAndComplete(t *testing.T) {
	events := profile.Events()
	require.Len(t, events, 12)

	seen := map[string]bool{}
	for _, e := range events {
		assert.False(t, seen[e.Name], "duplicate event %s", e.Name)
		seen[e.Name] = true
	}

	for _, name := range []string{
		"PERF_COUNT_HW_CPU_CYCLES",
		"PERF_COUNT_HW_INSTRUCTIONS",
		"PERF_COUNT_HW_BRANCH_INSTRUCTIONS",
		"PERF_COUNT_HW_BRANCH_MISSES",
		"PERF_COUNT_L1D_READ_ACCESS",
		"PERF_COUNT_L1D_WRITE_MISS",
		"PERF_COUNT_LL_READ_MISS",
		"PERF_COUNT_LL_WRITE_ACCESS",
	} {
		assert.True(t, seen[name], "missing event %s", name)
	}

	events[0].Name = "mutated"
	assert.Equal(t, "PERF_COUNT_HW_CPU_CYCLES", profile.Events()[0].Name)
}

func TestLookup(t *testing.T) {
	e, ok := profile.Lookup("PERF_COUNT_LL_READ_ACCESS")
	require.True(t, ok)
	assert.Equal(t, profile.TypeHWCache, e.Type)
	assert.Equal(t, profile.CacheConfig(profile.CacheLL, profile.CacheOpRead, profile.CacheResultAccess), e.Config)

	_, ok = profile.Lookup("PERF_COUNT_SW_CPU_CLOCK")
	assert.False(t, ok)
}

func TestSelect_FollowsCatalogOrder(t *testing.T) {
	env := map[string]string{
		"PERF_COUNT_LL_WRITE_MISS":    "",
		"PERF_COUNT_HW_CPU_CYCLES":    "0",
		"PERF_COUNT_HW_BRANCH_MISSES": "yes",
		"UNRELATED":                   "1",
	}
	selected := profile.Select(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	var names []string
	for _, e := range selected {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{
		"PERF_COUNT_HW_CPU_CYCLES",
		"PERF_COUNT_HW_BRANCH_MISSES",
		"PERF_COUNT_LL_WRITE_MISS",
	}, names)

	assert.Empty(t, profile.Select(func(string) (string, bool) { return "", false }))
}
