package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/napolitain/selfprofile/profile"
)

func eventsCmd() *cobra.Command {
	var namesOnly bool
	c := &cobra.Command{
		Use:   "events",
		Short: "List the counters that can be selected",
		Long: `events lists every counter selectable by setting an environment variable of
the same name. Counters selected in the current environment are marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEvents(cmd.OutOrStdout(), os.LookupEnv, namesOnly)
		},
	}
	c.Flags().BoolVar(&namesOnly, "names", false, "print event names only")
	return c
}

func listEvents(w io.Writer, lookup func(string) (string, bool), namesOnly bool) error {
	if namesOnly {
		for _, e := range profile.Events() {
			if _, err := fmt.Fprintln(w, e.Name); err != nil {
				return err
			}
		}
		return nil
	}

	r := lipgloss.NewRenderer(w)
	if os.Getenv("NO_COLOR") != "" {
		r.SetColorProfile(termenv.Ascii)
	}
	var (
		headerStyle = r.NewStyle().Bold(true)
		nameStyle   = r.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
		dimStyle    = r.NewStyle().Foreground(lipgloss.Color("#666666"))
		markStyle   = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFE66D"))
	)

	selected := make(map[string]bool)
	for _, e := range profile.Select(lookup) {
		selected[e.Name] = true
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("  %-36s %-10s %s", "EVENT", "TYPE", "CONFIG")))
	for _, e := range profile.Events() {
		mark := " "
		if selected[e.Name] {
			mark = markStyle.Render("*")
		}
		_, err := fmt.Fprintf(w, "%s %s %s %s\n",
			mark,
			nameStyle.Render(fmt.Sprintf("%-36s", e.Name)),
			dimStyle.Render(fmt.Sprintf("%-10s", e.Type)),
			fmt.Sprintf("0x%x", e.Config))
		if err != nil {
			return err
		}
	}
	return nil
}
