package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/agrimate/internal/mandi"
	"github.com/sells-group/agrimate/internal/model"
)

var (
	mandiQuery  model.MandiQuery
	mandiAsJSON bool
)

var mandiCmd = &cobra.Command{
	Use:   "mandi",
	Short: "List current mandi prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("mandi"); err != nil {
			return err
		}

		env, err := initApp(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		resp := env.Mandi.Prices(ctx, mandiQuery)
		out := cmd.OutOrStdout()
		if mandiAsJSON {
			return printJSON(out, resp)
		}

		printMandiTable(cmd, resp)
		return nil
	},
}

func printMandiTable(cmd *cobra.Command, resp *model.MandiResponse) {
	out := cmd.OutOrStdout()
	printSimpleTable(out, []string{"Commodity", "Market", "State", "Variety", "Min", "Max", "Modal", "Date"}, func(add func(...string)) {
		for _, r := range resp.Records {
			add(r.Commodity, r.Market, r.State, r.Variety,
				formatRupees(r.MinPrice), formatRupees(r.MaxPrice), formatRupees(r.ModalPrice), r.ArrivalDate)
		}
	})
	fmt.Fprintf(out, "%d of %d records. Source: %s\n", resp.Count, resp.Total, resp.Source)
	if snap := mandi.Snapshot(resp.Records); snap != nil {
		fmt.Fprintf(out, "Average modal %s/quintal, range %s to %s\n",
			formatRupees(snap.AvgPrice), formatRupees(snap.MinPrice), formatRupees(snap.MaxPrice))
	}
}

func init() {
	mandiCmd.Flags().StringVar(&mandiQuery.Commodity, "commodity", "", "commodity filter (e.g. Wheat)")
	mandiCmd.Flags().StringVar(&mandiQuery.State, "state", "", "state filter")
	mandiCmd.Flags().StringVar(&mandiQuery.Market, "market", "", "market filter")
	mandiCmd.Flags().StringVar(&mandiQuery.District, "district", "", "district filter")
	mandiCmd.Flags().IntVar(&mandiQuery.Limit, "limit", 0, "maximum records (default from config)")
	mandiCmd.Flags().IntVar(&mandiQuery.Offset, "offset", 0, "records to skip")
	mandiCmd.Flags().BoolVar(&mandiAsJSON, "json", false, "print the raw response as JSON")
	rootCmd.AddCommand(mandiCmd)
}
