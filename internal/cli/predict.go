package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/path-planner/internal/planner"
)

type predictOptions struct {
	fixture  string
	maxTerms int
	asJSON   bool
	verbose  bool
}

func newPredictCmd() *cobra.Command {
	opts := predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the remaining terms for a fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.fixture, "fixture", "f", "", "Path to the JSON fixture")
	cmd.Flags().IntVar(&opts.maxTerms, "max-terms", 0, "Safety ceiling on predicted terms (0 uses the engine default)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the raw prediction as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine diagnostics to stderr")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

func runPredict(out io.Writer, opts predictOptions) error {
	f, err := loadFixture(opts.fixture)
	if err != nil {
		return err
	}
	in, err := f.Input()
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
	}

	result, err := planner.NewOrchestrator(logger, planner.SchedulerConfig{MaxTerms: opts.maxTerms}).Predict(in)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printPlan(out, result, f.calendar(time.Now().Year()))
}

func printPlan(out io.Writer, result planner.Result, cal planner.Calendar) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, term := range result.Terms {
		marker := ""
		if i < result.FixedCount {
			marker = " (fixed)"
		}
		fmt.Fprintf(tw, "%s%s\n", cal.Label(i), marker)
		for _, s := range term {
			kind := "mandatory"
			if s.IsElective {
				kind = "elective"
			}
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%dh\n", s.Code, s.Name, kind, s.WorkloadHours())
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	schedule := result.Schedule
	fmt.Fprintf(out, "\nstatus: %s, terms: %d, elective hours: %d", schedule.Status, result.TermCount, schedule.ElectiveHours)
	if schedule.ElectiveShortfall > 0 {
		fmt.Fprintf(out, " (short by %dh)", schedule.ElectiveShortfall)
	}
	fmt.Fprintln(out)
	if year, term, ok := cal.Completion(result.TermCount); ok && schedule.Status == planner.StatusComplete {
		fmt.Fprintf(out, "expected completion: %d.%d\n", year, term)
	}
	for _, id := range schedule.Unresolved {
		fmt.Fprintf(out, "unresolved: %s\n", id)
	}
	for _, w := range schedule.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}
