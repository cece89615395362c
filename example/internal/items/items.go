// Package items is the workload shared by the example programs: a fixed
// 17-element table sorted by id.
package items

import (
	"cmp"
	"fmt"
	"io"
	"slices"
)

type Item struct {
	Name   string
	ID     int
	Rating float64
}

// List returns a fresh unsorted copy of the table.
func List() []Item {
	return []Item{
		{"A", 157, 0.9},
		{"B", 517, 0.9},
		{"C", 175, 0.9},
		{"D", 571, 0.9},
		{"E", 127, 0.9},
		{"F", 147, 0.9},
		{"G", 117, 0.9},
		{"H", 107, 0.9},
		{"I", 111, 0.9},
		{"J", 227, 0.9},
		{"K", 157, 0.9},
		{"L", 157, 0.9},
		{"M", 157, 0.9},
		{"N", 157, 0.9},
		{"O", 157, 0.9},
		{"P", 157, 0.9},
		{"Z", 157, 0.9},
	}
}

// Sort orders items by id. Equal ids keep their table order.
func Sort(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// Print writes one line per item.
func Print(w io.Writer, items []Item) {
	for i, it := range items {
		fmt.Fprintf(w, "%02d: { %q, %3d, %f }\n", i, it.Name, it.ID, it.Rating)
	}
}
