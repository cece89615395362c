package items

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort(t *testing.T) {
	list := List()
	Sort(list)

	require.Len(t, list, 17)
	for i := 1; i < len(list); i++ {
		assert.LessOrEqual(t, list[i-1].ID, list[i].ID)
	}
	assert.Equal(t, "H", list[0].Name)
	assert.Equal(t, "D", list[len(list)-1].Name)

	var names []string
	for _, it := range list {
		if it.ID == 157 {
			names = append(names, it.Name)
		}
	}
	assert.Equal(t, []string{"A", "K", "L", "M", "N", "O", "P", "Z"}, names)
}

func TestPrint(t *testing.T) {
	list := List()
	Sort(list)

	var buf bytes.Buffer
	Print(&buf, list)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 17)
	assert.Equal(t, `00: { "H", 107, 0.900000 }`, lines[0])
	assert.Equal(t, `16: { "D", 571, 0.900000 }`, lines[16])
}
