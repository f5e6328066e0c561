package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/danielpatrickdp/digital-cow/internal/chainrpc"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// #region remote
func (a *app) newRemoteCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query a running chain service",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "localhost:50051", "chain service address")

	// limits sends only the limit flags given explicitly; the server's herd fills the rest.
	limits := func(cmd *cobra.Command) chainrpc.Limits {
		var l chainrpc.Limits
		if cmd.Flags().Changed("dim-limit") {
			l.DaysInMilkLimit = a.opts.dimLimit
		}
		if cmd.Flags().Changed("ln-limit") {
			l.LactationNumberLimit = a.opts.lnLimit
		}
		if cmd.Flags().Changed("precision") {
			l.Precision = a.prec()
		}
		return l
	}

	describe := &cobra.Command{
		Use:   "describe",
		Short: "Show the size of the served chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := chainrpc.NewClient(addr)
			if err != nil {
				return err
			}
			defer c.Close()
			d, err := c.Describe(cmd.Context(), limits(cmd))
			if err != nil {
				return err
			}
			return a.printJSON(d)
		},
	}

	var sf stateFlags
	successors := &cobra.Command{
		Use:   "successors",
		Short: "List the one-day successors of a state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := dairy.NewState(sf.phase, sf.dim, sf.ln, sf.dp, decimal.Zero)
			if err != nil {
				return err
			}
			c, err := chainrpc.NewClient(addr)
			if err != nil {
				return err
			}
			defer c.Close()
			next, err := c.Successors(cmd.Context(), limits(cmd), from)
			if err != nil {
				return err
			}
			if a.opts.jsonOut {
				return a.printJSON(next)
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STATE\tPROBABILITY")
			for _, s := range next {
				fmt.Fprintf(w, "%s\t%s\n", s.State, s.Probability)
			}
			return w.Flush()
		},
	}
	sf.register(successors)

	cmd.AddCommand(describe, successors)
	return cmd
}

// #endregion remote
