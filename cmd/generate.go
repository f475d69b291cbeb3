package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		storeID uint64
		all     bool
		horizon int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Materialize dated availability from slot definitions",
		Long: "Creates availability rows for today through today+horizon.  Existing rows are left untouched,\n" +
			"so the command is safe to run on a schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (storeID != 0) {
				return errors.New("exactly one of --store or --all is required")
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := loadApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			engine := a.engine(nil)

			var n int
			if all {
				n, err = engine.GenerateAllStores(ctx, horizon)
			} else {
				n, err = engine.GenerateAvailability(ctx, storeID, horizon)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d availability rows\n", n)
			return err
		},
	}

	cmd.Flags().Uint64Var(&storeID, "store", 0, "store to generate for")
	cmd.Flags().BoolVar(&all, "all", false, "generate for every store with active slot definitions")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "days ahead of today to cover (0 uses GENERATION_HORIZON_DAYS)")
	return cmd
}
