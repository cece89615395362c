// Sortitems sorts a fixed table and prints it. It knows nothing about
// counters: measure it with
//
//	PERF_COUNT_HW_CPU_CYCLES=1 selfprofile ./sortitems
//
// or route its main through the wrapper with selfprofile instrument.
package main

import (
	"os"

	"github.com/napolitain/selfprofile/example/internal/items"
)

func main() {
	list := items.List()
	items.Sort(list)
	items.Print(os.Stdout, list)
}
