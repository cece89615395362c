package profile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Format selects how results are written.
type Format string

const (
	// FormatPlain writes one NAME(CONFIG): DELTA line per event.
	FormatPlain Format = "plain"
	// FormatTable writes a styled table with derived ratios.
	FormatTable Format = "table"
)

// ParseFormat accepts "plain", "table" and the empty string (plain).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPlain:
		return FormatPlain, nil
	case FormatTable:
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want plain or table)", s)
	}
}

// Result is the measured delta of one event.
type Result struct {
	Event Event
	Delta uint64
}

// Results computes last-start for every selected event in selection order.
// Counters are assumed not to wrap within one measurement window.
func (g *Group) Results() []Result {
	results := make([]Result, len(g.events))
	for i, e := range g.events {
		var delta uint64
		if i < len(g.last) && i < len(g.start) {
			delta = g.last[i] - g.start[i]
		}
		results[i] = Result{Event: e, Delta: delta}
	}
	return results
}

// Report writes the results of the group to w.
func (g *Group) Report(w io.Writer, f Format) error {
	return WriteResults(w, g.Results(), f)
}

// WriteResults writes results to w in the given format. No results write nothing.
func WriteResults(w io.Writer, results []Result, f Format) error {
	if len(results) == 0 {
		return nil
	}
	switch f {
	case FormatTable:
		_, err := io.WriteString(w, renderTable(w, results))
		return err
	default:
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "%s(%d): %d\n", r.Event.Name, r.Event.Config, r.Delta); err != nil {
				return err
			}
		}
		return nil
	}
}

func renderTable(w io.Writer, results []Result) string {
	r := lipgloss.NewRenderer(w)
	if os.Getenv("NO_COLOR") != "" {
		r.SetColorProfile(termenv.Ascii)
	}

	var (
		titleStyle  = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
		nameStyle   = r.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
		configStyle = r.NewStyle().Foreground(lipgloss.Color("#666666"))
		valueStyle  = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFE66D"))
		ruleStyle   = r.NewStyle().Foreground(lipgloss.Color("#666666"))
	)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Hardware Counters") + "\n")
	sb.WriteString(ruleStyle.Render("  "+strings.Repeat("─", 64)) + "\n")

	values := make(map[string]uint64, len(results))
	for _, res := range results {
		values[res.Event.Name] = res.Delta
		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			nameStyle.Render(fmt.Sprintf("%-36s", res.Event.Name)),
			configStyle.Render(fmt.Sprintf("%10s", fmt.Sprintf("0x%x", res.Event.Config))),
			valueStyle.Render(fmt.Sprintf("%16s", formatCount(res.Delta)))))
	}

	for _, ratio := range ratios {
		num, okNum := values[ratio.num]
		den, okDen := values[ratio.den]
		if !okNum || !okDen || den == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n",
			nameStyle.Render(fmt.Sprintf("%-47s", ratio.label)),
			valueStyle.Render(fmt.Sprintf("%16s", fmt.Sprintf(ratio.format, ratio.scale*float64(num)/float64(den))))))
	}
	return sb.String()
}

var ratios = []struct {
	label    string
	num, den string
	scale    float64
	format   string
}{
	{"instructions per cycle", "PERF_COUNT_HW_INSTRUCTIONS", "PERF_COUNT_HW_CPU_CYCLES", 1, "%.2f"},
	{"branch miss rate", "PERF_COUNT_HW_BRANCH_MISSES", "PERF_COUNT_HW_BRANCH_INSTRUCTIONS", 100, "%.2f%%"},
	{"L1D read miss rate", "PERF_COUNT_L1D_READ_MISS", "PERF_COUNT_L1D_READ_ACCESS", 100, "%.2f%%"},
	{"LL read miss rate", "PERF_COUNT_LL_READ_MISS", "PERF_COUNT_LL_READ_ACCESS", 100, "%.2f%%"},
}

// formatCount formats n with thousands separators.
func formatCount(n uint64) string {
	s := fmt.Sprintf("%d", n)

	var result []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, s[i])
	}
	return string(result)
}
