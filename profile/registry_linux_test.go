//go:build linux

package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestRegistry_MatchesKernelABI(t *testing.T) {
	assert.Equal(t, uint32(unix.PERF_TYPE_HARDWARE), uint32(TypeHardware))
	assert.Equal(t, uint32(unix.PERF_TYPE_HW_CACHE), uint32(TypeHWCache))

	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CPU_CYCLES), HWCPUCycles)
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_INSTRUCTIONS), HWInstructions)
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS), HWBranchInstructions)
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_BRANCH_MISSES), HWBranchMisses)

	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CACHE_L1D), uint64(CacheL1D))
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CACHE_LL), uint64(CacheLL))
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CACHE_OP_READ), uint64(CacheOpRead))
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CACHE_OP_WRITE), uint64(CacheOpWrite))
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS), uint64(CacheResultAccess))
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_CACHE_RESULT_MISS), uint64(CacheResultMiss))
}
