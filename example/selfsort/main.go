// Selfsort measures its own sort with the profile package:
//
//	PERF_COUNT_HW_CPU_CYCLES=1 PERF_COUNT_HW_INSTRUCTIONS=1 go run ./example/selfsort
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/napolitain/selfprofile/example/internal/items"
	"github.com/napolitain/selfprofile/profile"
)

func main() {
	// Counters only see the thread that opened them.
	runtime.LockOSThread()

	if err := profile.Begin(); err != nil {
		logrus.Fatal(err)
	}
	defer profile.End()

	fmt.Println("Sorting...")
	check(profile.Start())

	list := items.List()
	items.Sort(list)
	check(profile.Snap())
	items.Sort(list)

	check(profile.Stop())
	items.Print(os.Stdout, list)
	check(profile.Report())
}

func check(err error) {
	if err != nil {
		logrus.Warn(err)
	}
}
