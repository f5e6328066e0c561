package main

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/graph"
	"github.com/danielpatrickdp/digital-cow/internal/logging"
	"github.com/spf13/cobra"
)

// #region generate
func (a *app) newGenerateCmd() *cobra.Command {
	var noStore bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the herd's chain and store it",
		Long: `Generate every reachable state and transition for the configured herd and save
the chain to the database. Saving a configuration that is already stored reuses it.
Each run is written to the generation log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noStore {
				s, err := a.space(cmd.Context(), nil)
				if err != nil {
					return err
				}
				n, err := s.EdgeCount()
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "states: %d\nedges:  %d\n", s.Len(), n)
				return nil
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			chains, err := graph.NewChainStore(store.DB())
			if err != nil {
				return err
			}

			rec := &logging.Recorder{DB: store.DB(), Logger: a.logger}
			s, err := a.space(cmd.Context(), rec)
			if err != nil {
				return err
			}

			start := time.Now()
			c, err := chains.SaveChain(cmd.Context(), s)
			entry := logging.GenerationEntry{
				CacheKey: cow.CacheKey(a.params, a.params.DaysInMilkLimit, a.params.LactationNumberLimit, a.prec()),
				States:   c.StateCount,
				Edges:    c.EdgeCount,
				Elapsed:  time.Since(start),
				Outcome:  logging.OutcomePersisted,
			}
			if err != nil {
				entry.Outcome = logging.OutcomeFailed
				entry.Error = err.Error()
			}
			if lerr := logging.LogGeneration(store.DB(), entry); lerr != nil {
				a.logger.Warn("generation log write failed", "error", lerr)
			}
			if err != nil {
				return err
			}

			a.logger.Info("chain stored", "chain", c.ID, "states", c.StateCount, "edges", c.EdgeCount)
			if a.opts.jsonOut {
				return a.printJSON(c)
			}
			fmt.Fprintf(a.stdout, "chain:  %s\nkey:    %s\nstates: %d\nedges:  %d\n", c.ID, c.CacheKey, c.StateCount, c.EdgeCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noStore, "dry-run", false, "generate and count without writing to the database")
	return cmd
}

// #endregion generate
