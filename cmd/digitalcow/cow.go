package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/state"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// #region cow
func (a *app) newCowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cow",
		Short: "Record and browse versioned cow states",
	}
	cmd.AddCommand(
		a.newCowRecordCmd(),
		a.newCowListCmd(),
		a.newCowHistoryCmd(),
		a.newCowRollbackCmd(),
	)
	return cmd
}

// withStore opens the state store for the duration of fn.
func (a *app) withStore(fn func(*state.Store) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (a *app) newCowRecordCmd() *cobra.Command {
	var (
		sf    stateFlags
		cowID string
		note  string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a cow's current state as a new version",
		Long: `Record a cow's state. Without --cow a new cow is created. With --cow the cow's
active version is loaded and the state flags given replace its fields.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(store *state.Store) error {
				var (
					c      *cow.Cow
					herdID uuid.UUID
					err    error
				)
				if cowID == "" {
					cfg := sf.config()
					cfg.Precision = a.prec()
					if c, err = cow.New(cfg); err != nil {
						return err
					}
				} else {
					cur, err := store.GetCurrent(cowID)
					if err != nil {
						return err
					}
					if c, err = state.Restore(cur); err != nil {
						return err
					}
					if cur.HerdID != "" {
						if herdID, err = uuid.Parse(cur.HerdID); err != nil {
							return fmt.Errorf("herd id %q: %w", cur.HerdID, err)
						}
					}
					st := cur.State
					flags := cmd.Flags()
					if flags.Changed("phase") {
						if st.Phase, err = dairy.ParseLifePhase(sf.phase); err != nil {
							return err
						}
					}
					if flags.Changed("dim") {
						st.DaysInMilk = sf.dim
					}
					if flags.Changed("ln") {
						st.LactationNumber = sf.ln
					}
					if flags.Changed("dp") {
						st.DaysPregnant = sf.dp
					}
					if flags.Changed("age") {
						c.SetAge(sf.age)
					}
					if err := c.SetState(st); err != nil {
						return err
					}
				}

				opts := []cow.HerdOption{cow.WithLogger(a.logger)}
				if herdID != uuid.Nil {
					opts = append(opts, cow.WithHerdID(herdID))
				}
				h, err := cow.NewHerd(a.params, opts...)
				if err != nil {
					return err
				}
				if err := h.Add(c); err != nil {
					return err
				}

				rec, err := store.RecordState(c, note)
				if err != nil {
					return err
				}
				if a.opts.jsonOut {
					return a.printJSON(rec)
				}
				fmt.Fprintf(a.stdout, "cow:     %s\nversion: %s\nstate:   %s\n", rec.CowID, rec.VersionID, rec.State)
				return nil
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&cowID, "cow", "", "existing cow id")
	cmd.Flags().StringVar(&note, "note", "", "note stored with the version")
	return cmd
}

func (a *app) newCowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded cows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(store *state.Store) error {
				ids, err := store.ListCows()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "COW\tVERSION\tSTATE")
				for _, id := range ids {
					cur, err := store.GetCurrent(id)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", id, cur.VersionID, cur.State)
				}
				return w.Flush()
			})
		},
	}
}

func (a *app) newCowHistoryCmd() *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "history <cow-id>",
		Short: "Show a cow's versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *state.Store) error {
				history, err := store.History(args[0], last)
				if err != nil {
					return err
				}
				if len(history) == 0 {
					return fmt.Errorf("cow %s: %w", args[0], state.ErrVersionNotFound)
				}
				cur, err := store.GetCurrent(args[0])
				if err != nil && !errors.Is(err, state.ErrVersionNotFound) {
					return err
				}
				if a.opts.jsonOut {
					return a.printJSON(history)
				}
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "\tVERSION\tCREATED\tSTATE\tMILK\tGENERATION\tNOTE")
				for _, h := range history {
					mark := ""
					if h.VersionID == cur.VersionID {
						mark = "*"
					}
					gen := "-"
					if h.Outcome != "" {
						gen = fmt.Sprintf("%s (%d states)", h.Outcome, h.States)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", mark, h.VersionID,
						h.CreatedAt.Format("2006-01-02 15:04:05"), h.State, h.State.MilkOutput, gen, h.Note)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent versions")
	return cmd
}

func (a *app) newCowRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <cow-id> <version-id>",
		Short: "Make an earlier version the cow's active state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *state.Store) error {
				if err := store.Rollback(args[0], args[1]); err != nil {
					return err
				}
				a.logger.Info("cow rolled back", "cow", args[0], "version", args[1])
				fmt.Fprintf(a.stdout, "cow %s now at %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

// #endregion cow
