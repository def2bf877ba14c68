package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boxwatch/boxwatch-api/internal/gapfill"
)

// GapfillCmd returns the gapfill command
func GapfillCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gapfill",
		Short: "Create boxes for synced suggestions that have none",
		Long: `Compare every location suggestion against the provisioned boxes and
create a box for each suggestion whose label and address match no box.

Each new box is geocoded and credited to the "system" volunteer. A failed
geocode or write skips that suggestion; the run always finishes with a tally.
Run it once at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			f := a.Filler()
			f.DryRun = dryRun
			tally, err := f.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load boxes or suggestions: %w", err)
			}
			printTally(cmd.OutOrStdout(), tally, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the boxes that would be created without writing")

	return cmd
}

func printTally(w io.Writer, t *gapfill.Tally, dryRun bool) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	verb := "CREATE "
	if dryRun {
		verb = "PLAN   "
	}
	for _, id := range t.BoxIDs {
		fmt.Fprintf(w, "  %s %s\n", green(verb), id)
	}

	fmt.Fprintf(w, "\nSuggestions: %d\n", t.Suggestions)
	fmt.Fprintf(w, "Matched:     %d\n", t.Matched)
	fmt.Fprintf(w, "Candidates:  %d\n", t.Candidates)
	if dryRun {
		fmt.Fprintf(w, "\n[DRY RUN] %s boxes would be created. Run without --dry-run to apply.\n", green(len(t.BoxIDs)))
		return
	}
	fmt.Fprintf(w, "Created:     %s\n", green(t.Created))
	fmt.Fprintf(w, "No geocode:  %s\n", yellow(t.SkippedGeocode))
	fmt.Fprintf(w, "Failed:      %s\n", red(t.Failed))
}
