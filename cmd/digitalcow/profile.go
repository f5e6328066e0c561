package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/intake"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// stateFlags describe a cow's state on the command line.
type stateFlags struct {
	phase string
	dim   int
	ln    int
	dp    int
	age   int
}

func (f *stateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.phase, "phase", "Open", "life phase (Open, Pregnant, DoNotBreed, Exit)")
	cmd.Flags().IntVar(&f.dim, "dim", 0, "days in milk")
	cmd.Flags().IntVar(&f.ln, "ln", 0, "lactation number")
	cmd.Flags().IntVar(&f.dp, "dp", 0, "days pregnant")
	cmd.Flags().IntVar(&f.age, "age", 0, "age in days")
}

func (f *stateFlags) config() cow.Config {
	return cow.Config{Phase: f.phase, DaysInMilk: f.dim, LactationNumber: f.ln, DaysPregnant: f.dp, Age: f.age}
}

// #region profile
func (a *app) newProfileCmd() *cobra.Command {
	var (
		sf                     stateFlags
		cp, milkCP, phosphorus string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show yield, body weight, intake and excretion for one state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			diet := intake.DefaultDiet()
			for _, d := range []struct {
				flag, val string
				dst       *decimal.Decimal
			}{
				{"crude-protein", cp, &diet.CrudeProtein},
				{"milk-crude-protein", milkCP, &diet.MilkCrudeProtein},
				{"phosphorus", phosphorus, &diet.PhosphorusIntake},
			} {
				if d.val == "" {
					continue
				}
				v, err := decimal.NewFromString(d.val)
				if err != nil {
					return fmt.Errorf("--%s %q: %w", d.flag, d.val, err)
				}
				*d.dst = v
			}

			h, err := cow.NewHerd(a.params, cow.WithLogger(a.logger))
			if err != nil {
				return err
			}
			cfg := sf.config()
			cfg.Precision = a.prec()
			c, err := cow.New(cfg)
			if err != nil {
				return err
			}
			if err := h.Add(c); err != nil {
				return err
			}

			st := c.State()
			prof, err := intake.ProfileOf(st, c.Age(), a.params.VoluntaryWaitingPeriod(st.LactationNumber), diet, c.Precision())
			if err != nil {
				return err
			}
			if a.opts.jsonOut {
				return a.printJSON(prof)
			}

			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "state\t%s\n", st)
			fmt.Fprintf(w, "lactating\t%v\n", prof.Lactating)
			fmt.Fprintf(w, "milk (kg/d)\t%s\n", st.MilkOutput)
			fmt.Fprintf(w, "body weight (kg)\t%s\n", prof.BodyWeight)
			fmt.Fprintf(w, "dry matter intake (kg/d)\t%s\n", prof.DryMatterIntake)
			fmt.Fprintf(w, "nitrogen intake (g/d)\t%s\n", prof.NitrogenIntake)
			fmt.Fprintf(w, "manure nitrogen (g/d)\t%s\n", prof.ManureNitrogen)
			fmt.Fprintf(w, "urine nitrogen (g/d)\t%s\n", prof.Urine)
			fmt.Fprintf(w, "fecal nitrogen (g/d)\t%s\n", prof.Fecal)
			fmt.Fprintf(w, "total manure nitrogen (g/d)\t%s\n", prof.TotalManure)
			fmt.Fprintf(w, "milk nitrogen (g/d)\t%s\n", prof.Milk)
			fmt.Fprintf(w, "fecal phosphorus (g/d)\t%s\n", prof.FecalPhosphorus)
			return w.Flush()
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&cp, "crude-protein", "", "diet crude protein, % of dry matter")
	cmd.Flags().StringVar(&milkCP, "milk-crude-protein", "", "milk crude protein, %")
	cmd.Flags().StringVar(&phosphorus, "phosphorus", "", "phosphorus intake, g/d")
	return cmd
}

// #endregion profile
