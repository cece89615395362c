package profile

import "fmt"

// Type is the perf_event_attr.type of a counter.
// https://elixir.bootlin.com/linux/latest/source/include/uapi/linux/perf_event.h#L32
type Type uint32

const (
	// TypeHardware is one of the generalized hardware events provided by the kernel.
	TypeHardware Type = 0
	// TypeHWCache is a hardware cache event, config is built with CacheConfig.
	TypeHWCache Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeHardware:
		return "hardware"
	case TypeHWCache:
		return "hw-cache"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// Generalized hardware event configs (PERF_COUNT_HW_*).
const (
	HWCPUCycles          uint64 = 0
	HWInstructions       uint64 = 1
	HWBranchInstructions uint64 = 4
	HWBranchMisses       uint64 = 5
)

// CacheID selects the cache (PERF_COUNT_HW_CACHE_*).
type CacheID uint64

const (
	CacheL1D CacheID = 0
	CacheLL  CacheID = 2
)

// CacheOp selects the cache operation (PERF_COUNT_HW_CACHE_OP_*).
type CacheOp uint64

const (
	CacheOpRead  CacheOp = 0
	CacheOpWrite CacheOp = 1
)

// CacheResult selects the operation outcome (PERF_COUNT_HW_CACHE_RESULT_*).
type CacheResult uint64

const (
	CacheResultAccess CacheResult = 0
	CacheResultMiss   CacheResult = 1
)

// CacheConfig packs a hardware cache event selector the way the kernel expects it:
// id | op<<8 | result<<16.
func CacheConfig(id CacheID, op CacheOp, result CacheResult) uint64 {
	return uint64(id) | uint64(op)<<8 | uint64(result)<<16
}

// Event describes one countable event. Name is also the environment variable
// that selects it.
type Event struct {
	Name   string
	Type   Type
	Config uint64
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d)", e.Name, e.Config)
}

func hardware(name string, config uint64) Event {
	return Event{Name: name, Type: TypeHardware, Config: config}
}

func cache(name string, id CacheID, op CacheOp, result CacheResult) Event {
	return Event{Name: name, Type: TypeHWCache, Config: CacheConfig(id, op, result)}
}

var catalog = []Event{
	hardware("PERF_COUNT_HW_CPU_CYCLES", HWCPUCycles),
	hardware("PERF_COUNT_HW_INSTRUCTIONS", HWInstructions),
	hardware("PERF_COUNT_HW_BRANCH_INSTRUCTIONS", HWBranchInstructions),
	hardware("PERF_COUNT_HW_BRANCH_MISSES", HWBranchMisses),
	cache("PERF_COUNT_L1D_READ_ACCESS", CacheL1D, CacheOpRead, CacheResultAccess),
	cache("PERF_COUNT_L1D_READ_MISS", CacheL1D, CacheOpRead, CacheResultMiss),
	cache("PERF_COUNT_L1D_WRITE_ACCESS", CacheL1D, CacheOpWrite, CacheResultAccess),
	cache("PERF_COUNT_L1D_WRITE_MISS", CacheL1D, CacheOpWrite, CacheResultMiss),
	cache("PERF_COUNT_LL_READ_ACCESS", CacheLL, CacheOpRead, CacheResultAccess),
	cache("PERF_COUNT_LL_READ_MISS", CacheLL, CacheOpRead, CacheResultMiss),
	cache("PERF_COUNT_LL_WRITE_ACCESS", CacheLL, CacheOpWrite, CacheResultAccess),
	cache("PERF_COUNT_LL_WRITE_MISS", CacheLL, CacheOpWrite, CacheResultMiss),
}

// Events returns a copy of the catalog in its fixed order.
func Events() []Event {
	out := make([]Event, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog event by name.
func Lookup(name string) (Event, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Event{}, false
}

// Select returns the catalog events whose name is present according to lookup,
// in catalog order. The looked up value is ignored.
func Select(lookup func(string) (string, bool)) []Event {
	var selected []Event
	for _, e := range catalog {
		if _, ok := lookup(e.Name); ok {
			selected = append(selected, e)
		}
	}
	return selected
}
