package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/agrimate/internal/model"
)

var (
	analyzeInput  model.FarmInput
	analyzeAsJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the yield optimizer for a crop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		if analyzeInput.Crop == "" {
			return eris.New("--crop is required")
		}

		env, err := initApp(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		res := env.Yield.Analyze(ctx, analyzeInput)
		out := cmd.OutOrStdout()
		if analyzeAsJSON {
			return printJSON(out, res)
		}

		rec := res.Recommendation
		fmt.Fprintf(out, "%s [%s] %s\n", rec.Action, rec.RiskLevel, rec.Headline)
		fmt.Fprintf(out, "%s\n\n", rec.Rationale)
		printSimpleTable(out, []string{"Metric", "Value"}, func(add func(...string)) {
			add("Confidence", formatFloat(rec.Confidence)+"%")
			add("Projected impact", formatRupees(rec.ProjectedImpact)+"/acre")
			add("Soil moisture", formatFloat(res.SoilMoisture)+"%")
			add("Yield projection", formatFloat(res.YieldProjection)+" q/ha")
			if res.Weather != nil {
				add("Weather", fmt.Sprintf("%s°C, %s, rain %s%%", formatFloat(res.Weather.Temperature), res.Weather.Condition, formatFloat(res.Weather.RainChance)))
			} else {
				add("Weather", "unavailable")
			}
			if res.Market != nil {
				add("Avg modal price", formatRupees(res.Market.AvgPrice)+"/quintal")
			} else {
				add("Avg modal price", "unavailable")
			}
		})
		if res.FullAnalysis != "" {
			fmt.Fprintf(out, "\n%s\n", res.FullAnalysis)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput.Crop, "crop", "", "crop name (e.g. Wheat)")
	analyzeCmd.Flags().Float64Var(&analyzeInput.Area, "area", 1, "area in hectares")
	analyzeCmd.Flags().StringVar(&analyzeInput.State, "state", "", "state")
	analyzeCmd.Flags().StringVar(&analyzeInput.SoilType, "soil", "Loamy", "soil type")
	analyzeCmd.Flags().BoolVar(&analyzeAsJSON, "json", false, "print the full analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
