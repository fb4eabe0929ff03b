package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/agrimate/internal/weather"
)

var (
	weatherCity   string
	weatherLat    string
	weatherLon    string
	weatherAsJSON bool
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show the 5-day forecast for a location",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("weather"); err != nil {
			return err
		}

		svc := weather.New(cfg.Weather)
		w, err := svc.Forecast(ctx, weather.Query{Lat: weatherLat, Lon: weatherLon, City: weatherCity})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if weatherAsJSON {
			return printJSON(out, w)
		}

		fmt.Fprintf(out, "%s, %s (%s)\n", w.Location.Name, w.Location.Region, w.Location.Localtime)
		fmt.Fprintf(out, "Now: %s°C, %s, humidity %s%%, wind %s km/h %s\n\n",
			formatFloat(w.Current.Temperature), w.Current.Condition.Text,
			formatFloat(w.Current.Humidity), formatFloat(w.Current.WindSpeed), w.Current.WindDir)

		printSimpleTable(out, []string{"Date", "Condition", "Min °C", "Max °C", "Rain %", "Precip mm"}, func(add func(...string)) {
			for _, d := range w.Forecast {
				add(d.Date, d.Condition.Text, formatFloat(d.MinTemp), formatFloat(d.MaxTemp),
					formatFloat(d.RainChance), formatFloat(d.TotalPrecip))
			}
		})

		for _, a := range w.Alerts {
			fmt.Fprintf(out, "\n⚠️  %s [%s]\n%s\n", a.Headline, a.Severity, a.Desc)
		}
		return nil
	},
}

func init() {
	weatherCmd.Flags().StringVar(&weatherCity, "city", "", "city name or PIN code")
	weatherCmd.Flags().StringVar(&weatherLat, "lat", "", "latitude")
	weatherCmd.Flags().StringVar(&weatherLon, "lon", "", "longitude")
	weatherCmd.Flags().BoolVar(&weatherAsJSON, "json", false, "print the normalized JSON")
	rootCmd.AddCommand(weatherCmd)
}
