package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/danielpatrickdp/digital-cow/internal/eval"
	"github.com/danielpatrickdp/digital-cow/internal/replay"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// errCheckFailed is returned after a failing report has been printed.
var errCheckFailed = errors.New("check failed")

// #region validate
func (a *app) newValidateCmd() *cobra.Command {
	var tolerance string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Generate the herd's chain and check its invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := eval.DefaultEvalConfig()
			if tolerance != "" {
				tol, err := decimal.NewFromString(tolerance)
				if err != nil {
					return fmt.Errorf("tolerance %q: %w", tolerance, err)
				}
				cfg.ConservationTolerance = tol
			}

			s, err := a.space(cmd.Context(), nil)
			if err != nil {
				return err
			}
			res, err := eval.NewEvalHarness(cfg).RunSpace(s)
			if err != nil {
				return err
			}

			if a.opts.jsonOut {
				if err := a.printJSON(res); err != nil {
					return err
				}
			} else {
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CHECK\tVALUE\tPASS")
				for _, m := range res.Metrics {
					fmt.Fprintf(w, "%s\t%g\t%v\n", m.Name, m.Value, m.Pass)
				}
				w.Flush()
				fmt.Fprintln(a.stdout, res.Reason)
			}
			if !res.Passed {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tolerance, "tolerance", "", "largest allowed deviation of a state's outgoing probability from 1")
	return cmd
}

// #endregion validate

// #region fixtures
func (a *app) newExportFixtureCmd() *cobra.Command {
	var (
		out         string
		format      string
		description string
	)
	cmd := &cobra.Command{
		Use:   "export-fixture",
		Short: "Write the herd's chain as a reference fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.space(cmd.Context(), nil)
			if err != nil {
				return err
			}
			f, err := replay.BuildFixture(s, description)
			if err != nil {
				return err
			}

			w := a.stdout
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create fixture: %w", err)
				}
				defer file.Close()
				w = file
			}
			if format == "yaml" {
				err = replay.WriteFixtureYAML(w, f)
			} else {
				err = replay.WriteFixture(w, f)
			}
			if err != nil {
				return err
			}
			a.logger.Info("fixture written", "states", len(f.States), "edges", len(f.Edges), "out", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	cmd.Flags().StringVar(&format, "format", "json", "fixture format (json, yaml)")
	cmd.Flags().StringVar(&description, "description", "", "free-text description stored in the fixture")
	return cmd
}

func (a *app) newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <fixture>...",
		Short: "Regenerate chains from fixtures and compare them digit for digit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				f, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				res, err := replay.Replay(f)
				if err != nil {
					return fmt.Errorf("replay %s: %w", path, err)
				}
				sum := replay.Summarize(res)
				status := "ok"
				if !res.Passed() {
					status = "FAIL"
					failed++
				}
				fmt.Fprintf(a.stdout, "%s  %s: %d states, %d edges checked, %d mismatches\n",
					status, path, sum.StatesChecked, sum.EdgesChecked, res.Total)
				for _, m := range res.Mismatches {
					fmt.Fprintf(a.stdout, "    %s\n", m)
				}
				if sum.Truncated {
					fmt.Fprintf(a.stdout, "    ... %d more\n", res.Total-len(res.Mismatches))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d fixtures: %w", failed, len(args), errCheckFailed)
			}
			return nil
		},
	}
}

// #endregion fixtures
