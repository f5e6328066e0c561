package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/graph"
	"github.com/spf13/cobra"
)

// #region inspect
func (a *app) newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect stored chains",
	}
	cmd.AddCommand(
		a.newInspectChainsCmd(),
		a.newInspectStatesCmd(),
		a.newInspectNeighborsCmd(),
		a.newInspectWalkCmd(),
		a.newInspectDeleteCmd(),
	)
	return cmd
}

// withChains opens the chain store for the duration of fn.
func (a *app) withChains(fn func(*graph.ChainStore) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	chains, err := graph.NewChainStore(store.DB())
	if err != nil {
		return err
	}
	return fn(chains)
}

func (a *app) newInspectChainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List stored chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withChains(func(g *graph.ChainStore) error {
				list, err := g.ListChains()
				if err != nil {
					return err
				}
				if a.opts.jsonOut {
					return a.printJSON(list)
				}
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CHAIN\tSTATES\tEDGES\tDIM\tLN\tCREATED")
				for _, c := range list {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", c.ID, c.StateCount, c.EdgeCount,
						c.DaysInMilkLimit, c.LactationNumberLimit, c.CreatedAt.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}
}

func (a *app) newInspectStatesCmd() *cobra.Command {
	var (
		chainID string
		phase   string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "states",
		Short: "List the states of a chain in generation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter dairy.LifePhase = -1
			if phase != "" {
				p, err := dairy.ParseLifePhase(phase)
				if err != nil {
					return err
				}
				filter = p
			}
			return a.withChains(func(g *graph.ChainStore) error {
				states, err := g.States(chainID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "INDEX\tPHASE\tDIM\tLN\tDP\tMILK")
				shown := 0
				for i, st := range states {
					if filter >= 0 && st.Phase != filter {
						continue
					}
					if limit > 0 && shown == limit {
						break
					}
					fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\n", i, st.Phase, st.DaysInMilk, st.LactationNumber, st.DaysPregnant, st.MilkOutput)
					shown++
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&chainID, "chain", "", "chain id")
	cmd.Flags().StringVar(&phase, "phase", "", "only show states in this life phase")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows (0 for all)")
	cmd.MarkFlagRequired("chain")
	return cmd
}

func (a *app) newInspectNeighborsCmd() *cobra.Command {
	var (
		chainID   string
		source    int
		minWeight float64
	)
	cmd := &cobra.Command{
		Use:   "neighbors",
		Short: "Show the one-day transitions out of a state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withChains(func(g *graph.ChainStore) error {
				edges, err := g.GetNeighbors(chainID, source, minWeight)
				if err != nil {
					return err
				}
				if a.opts.jsonOut {
					return a.printJSON(edges)
				}
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FROM\tTO\tPROBABILITY")
				for _, e := range edges {
					fmt.Fprintf(w, "%d\t%d\t%s\n", e.Source, e.Target, e.Probability)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&chainID, "chain", "", "chain id")
	cmd.Flags().IntVar(&source, "state", 0, "state index")
	cmd.Flags().Float64Var(&minWeight, "min-weight", 0, "skip transitions below this probability")
	cmd.MarkFlagRequired("chain")
	return cmd
}

func (a *app) newInspectWalkCmd() *cobra.Command {
	var (
		chainID   string
		entry     int
		depth     int
		maxNodes  int
		minWeight float64
	)
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Breadth-first walk from a state with path probabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withChains(func(g *graph.ChainStore) error {
				states, err := g.States(chainID)
				if err != nil {
					return err
				}
				if entry < 0 || entry >= len(states) {
					return fmt.Errorf("state %d: chain %s has %d states", entry, chainID, len(states))
				}
				res, err := g.Walk(chainID, entry, depth, minWeight, maxNodes)
				if err != nil {
					return err
				}
				if a.opts.jsonOut {
					return a.printJSON(res)
				}
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "INDEX\tSTATE\tPATH PROBABILITY")
				for i, idx := range res.Indices {
					fmt.Fprintf(w, "%d\t%s\t%s\n", idx, states[idx], res.Probabilities[i].StringFixed(10))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&chainID, "chain", "", "chain id")
	cmd.Flags().IntVar(&entry, "from", 0, "starting state index")
	cmd.Flags().IntVar(&depth, "depth", 5, "maximum days walked")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 20, "maximum states visited")
	cmd.Flags().Float64Var(&minWeight, "min-weight", 0, "skip transitions below this probability")
	cmd.MarkFlagRequired("chain")
	return cmd
}

func (a *app) newInspectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chain-id>",
		Short: "Delete a stored chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withChains(func(g *graph.ChainStore) error {
				if _, err := g.GetChain(args[0]); err != nil {
					return err
				}
				if err := g.DeleteChain(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

// #endregion inspect
