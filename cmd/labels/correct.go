package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/referral-labels/internal/correction"
	"github.com/referral-labels/internal/store"
	"github.com/referral-labels/internal/telemetry"
)

func newCorrectCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var reviewer, server, token, lockPath string
	var approveAll bool

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Check partner addresses and review suggested corrections",
		Long: `Standardizes the addresses of the filtered partner offices and walks
through each suggested change. Answer y to accept, n to skip, a to accept
this and every remaining change, or q to stop reviewing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ctx.config.Features.CorrectionEnabled {
				return fmt.Errorf("address correction is disabled (features.correction_enabled)")
			}
			filters, err := flags.filters()
			if err != nil {
				return err
			}
			if reviewer == "" {
				reviewer = defaultReviewer()
			}
			runCtx := correction.WithActor(cmd.Context(), reviewer)

			st, err := ctx.openStore(runCtx)
			if err != nil {
				return err
			}
			records, err := st.ListOffices(runCtx)
			if err != nil {
				return err
			}

			var backend interface {
				correction.Requester
				correction.Applier
			}
			if server != "" {
				backend = correction.NewClient(server, token, nil)
			} else {
				svc, _, err := ctx.correctionService(runCtx, st)
				if err != nil {
					return err
				}
				backend = svc
			}

			if lockPath == "" {
				lockPath = defaultLockPath(ctx)
			}
			lock := store.NewRunLock(lockPath)
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer lock.Release()

			out := cmd.OutOrStdout()
			wf := correction.NewWorkflow(backend, backend, nil,
				correction.WithLogger(ctx.log()),
				correction.WithMetrics(telemetry.Default()),
				correction.WithProgress(func(p correction.Progress) {
					if p.Message != "" {
						fmt.Fprintf(out, "[%3d%%] %s\n", p.Percent, p.Message)
					}
				}))

			candidates, err := wf.Start(runCtx, records, filters)
			var empty *correction.EmptySelectionError
			if errors.As(err, &empty) {
				fmt.Fprintln(out, empty.Reason.Message())
				return nil
			}
			if err != nil {
				return err
			}

			renderCandidates(out, candidates)
			selected, quit := reviewCandidates(cmd.InOrStdin(), out, candidates, approveAll)
			if quit || len(selected) == 0 {
				wf.Dismiss()
				fmt.Fprintln(out, "No corrections applied.")
				return nil
			}

			outcome, err := wf.Apply(runCtx, selected)
			if err != nil {
				return err
			}
			if outcome.Partial() {
				fmt.Fprintf(out, "Updated %d of %d addresses (%d failed)\n", outcome.Updated, outcome.Total, outcome.Failed)
			} else {
				fmt.Fprintf(out, "Updated %d addresses\n", outcome.Updated)
			}
			ctx.log().Info("Correction review complete",
				zap.String("reviewer", reviewer),
				zap.Int("approved", len(selected)),
				zap.Int("updated", outcome.Updated))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Name recorded in the audit log (default $USER)")
	cmd.Flags().BoolVarP(&approveAll, "yes", "y", false, "Accept every suggested change without prompting")
	cmd.Flags().StringVar(&server, "server", "", "Use the correction API of a running labels server")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for --server")
	cmd.Flags().StringVar(&lockPath, "lock", "", "Lock file guarding concurrent runs")
	return cmd
}

func defaultReviewer() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func defaultLockPath(ctx *commandContext) string {
	if ctx.config.Database.Driver == "sqlite" && ctx.config.Database.Path != "" {
		return ctx.config.Database.Path + ".lock"
	}
	return filepath.Join(os.TempDir(), "referral-labels-correct.lock")
}

func renderCandidates(w io.Writer, candidates []correction.Candidate) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(tableStyle(w))
	t.AppendHeader(table.Row{"#", "Office", "Current address", "Suggested address", "Confidence", "Change"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 4, WidthMax: 40},
	})
	for i, c := range candidates {
		change := ""
		if c.Changed {
			change = "yes"
		}
		t.AppendRow(table.Row{i + 1, c.OfficeName, c.Original, c.Corrected, fmt.Sprintf("%.0f%%", c.Confidence*100), change})
	}
	t.Render()
}

// reviewCandidates prompts for each changed candidate and returns the
// approved office IDs. quit is set when the reviewer stopped with q.
func reviewCandidates(in io.Reader, out io.Writer, candidates []correction.Candidate, approveAll bool) (selected []string, quit bool) {
	changed := 0
	for _, c := range candidates {
		if c.Changed {
			changed++
		}
	}
	if changed == 0 {
		fmt.Fprintln(out, "All addresses are already standardized.")
		return nil, false
	}

	reader := bufio.NewReader(in)
	n := 0
	for _, c := range candidates {
		if !c.Changed {
			continue
		}
		n++
		if approveAll {
			selected = append(selected, c.OfficeID)
			continue
		}

		fmt.Fprintf(out, "\n=== Change %d of %d: %s ===\n", n, changed, c.OfficeName)
		fmt.Fprintf(out, "  current:   %s\n", c.Original)
		fmt.Fprintf(out, "  suggested: %s\n", c.Corrected)
		fmt.Fprint(out, "Apply? (y/n/a/q): ")

		response, err := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(response)) {
		case "y", "yes":
			selected = append(selected, c.OfficeID)
		case "a", "all":
			selected = append(selected, c.OfficeID)
			approveAll = true
		case "q", "quit":
			return nil, true
		}
		if err != nil {
			// Input ended; keep what was approved so far.
			break
		}
	}
	return selected, false
}
