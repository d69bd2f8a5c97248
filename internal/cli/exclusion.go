package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/path-planner/internal/planner"
)

func newCheckExclusionCmd() *cobra.Command {
	var fixture string
	cmd := &cobra.Command{
		Use:   "check-exclusion <subjectId>",
		Short: "Check whether an elective can be blacklisted",
		Long:  `Reports the secured and remaining elective hours if the subject were excluded. Exits non-zero when the exclusion would make the elective requirement unreachable.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckExclusion(cmd.OutOrStdout(), fixture, args[0])
		},
	}
	cmd.Flags().StringVarP(&fixture, "fixture", "f", "", "Path to the JSON fixture")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

func runCheckExclusion(out io.Writer, fixture, subjectID string) error {
	f, err := loadFixture(fixture)
	if err != nil {
		return err
	}
	in, err := f.Input()
	if err != nil {
		return err
	}

	var candidate *planner.Subject
	for i := range in.Catalog {
		if in.Catalog[i].ID == subjectID {
			candidate = &in.Catalog[i]
			break
		}
	}
	switch {
	case candidate == nil:
		return fmt.Errorf("%w: %s", planner.ErrUnknownSubject, subjectID)
	case !candidate.IsElective:
		return fmt.Errorf("%w: %s", planner.ErrNotElective, subjectID)
	}

	guard := planner.FeasibilityGuard{RequiredElectiveHours: f.RequiredElectiveHours}
	check := guard.Check(subjectID, in.Completed, in.Enrolled, in.Catalog, in.Blacklist)
	fmt.Fprintf(out, "%s: secured %dh + pool %dh, %dh required\n", candidate.Code, check.SecuredHours, check.PoolHours, check.RequiredHours)
	if !check.Allowed {
		return &planner.ExclusionError{Check: check}
	}
	fmt.Fprintln(out, "exclusion allowed")
	return nil
}
