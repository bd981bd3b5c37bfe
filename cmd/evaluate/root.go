package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/fibersight-alerts-service/internal/adapter/kafka"
	"github.com/couchcryptid/fibersight-alerts-service/internal/adapter/openweather"
	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "evaluate",
		Short:        "Inspect FiberSight forecast alert rules",
		SilenceUsage: true,
	}
	root.AddCommand(forecastCmd(), idCmd(), tailCmd())
	return root
}

func forecastCmd() *cobra.Command {
	var (
		file       string
		lat, lon   float64
		timezone   string
		fiberIDs   string
		asJSON     bool
		thresholds = domain.DefaultThresholds(30)
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print the alerts a forecast would raise",
		Long: "Evaluates a saved forecast response (--file) or the live forecast for " +
			"--lat/--lon using FORECAST_API_KEY. Nothing is written to the alert store.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := thresholds.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone: %w", err)
			}

			forecast, err := loadForecast(cmd.Context(), file, domain.Coordinates{Lat: lat, Lon: lon})
			if err != nil {
				return err
			}

			candidates := domain.EvaluateForecast(forecast, thresholds, domain.EvaluateOptions{
				Now:      domain.Now(),
				Location: loc,
				FiberID:  fiberIDs,
			})
			if asJSON {
				return writeCandidatesJSON(cmd.OutOrStdout(), candidates)
			}
			return writeCandidatesTable(cmd.OutOrStdout(), candidates)
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "", "saved forecast API response; live API when empty")
	f.Float64Var(&lat, "lat", 37.93368938103214, "site latitude")
	f.Float64Var(&lon, "lon", -7.7964679692230865, "site longitude")
	f.StringVar(&timezone, "timezone", sharedcfg.EnvOrDefault("FORECAST_TIMEZONE", "Europe/Lisbon"), "timezone for times in messages")
	f.StringVar(&fiberIDs, "fiber-ids", sharedcfg.EnvOrDefault("FIBER_IDS", "1, 2, 3"), "affected fibre lines")
	f.Float64Var(&thresholds.HighTemp, "high-temp", thresholds.HighTemp, "high temperature threshold (°C)")
	f.Float64Var(&thresholds.LowTemp, "low-temp", thresholds.LowTemp, "low temperature threshold (°C)")
	f.Float64Var(&thresholds.HighHumidity, "high-humidity", thresholds.HighHumidity, "high humidity threshold (%)")
	f.Float64Var(&thresholds.LowHumidity, "low-humidity", thresholds.LowHumidity, "low humidity threshold (%)")
	f.BoolVar(&asJSON, "json", false, "print alerts as JSON")
	return cmd
}

func loadForecast(ctx context.Context, file string, at domain.Coordinates) (domain.Forecast, error) {
	if file != "" {
		fh, err := os.Open(file)
		if err != nil {
			return domain.Forecast{}, err
		}
		defer fh.Close()
		return openweather.DecodeForecast(fh)
	}

	apiKey := os.Getenv("FORECAST_API_KEY")
	if apiKey == "" {
		return domain.Forecast{}, errors.New("FORECAST_API_KEY is required without --file")
	}
	client := openweather.NewClient(apiKey,
		sharedcfg.EnvOrDefault("FORECAST_BASE_URL", openweather.DefaultBaseURL),
		10*time.Second, observability.NewUnregisteredMetrics(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return client.Forecast(ctx, at)
}

func writeCandidatesJSON(w io.Writer, candidates []domain.Candidate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(domain.CandidateAlerts(candidates))
}

func writeCandidatesTable(w io.Writer, candidates []domain.Candidate) error {
	if len(candidates) == 0 {
		_, err := fmt.Fprintln(w, "no alerts")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tID\tTYPE\tNOTIFY\tMESSAGE")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", c.Rule, c.Alert.ID, c.Alert.Type, c.Notify, c.Alert.Message)
	}
	return tw.Flush()
}

func idCmd() *cobra.Command {
	var rule, prefix string
	cmd := &cobra.Command{
		Use:   "id MESSAGE",
		Short: "Compute the alert id for a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if prefix == "" {
				p := domain.Rule(rule).IDPrefix()
				if p == "" {
					return fmt.Errorf("unknown rule %q", rule)
				}
				prefix = p
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, domain.AlertID(prefix, args[0]))
			fmt.Fprintln(out, "hash="+strconv.FormatInt(domain.Hash(args[0]), 10))
			return nil
		},
	}
	cmd.Flags().StringVar(&rule, "rule", string(domain.RuleRain), "rule whose id prefix to use")
	cmd.Flags().StringVar(&prefix, "prefix", "", "explicit id prefix; overrides --rule")
	return cmd
}

func tailCmd() *cobra.Command {
	var brokers, topic, group string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow alerts published to the alert topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			reader := kafkaadapter.NewReader(sharedcfg.ParseBrokers(brokers), topic, group, logger)
			defer reader.Close()

			out := cmd.OutOrStdout()
			for {
				msg, err := reader.ReadAlert(cmd.Context())
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				a := msg.Alert
				fmt.Fprintf(out, "%s  %-20s %-28s %s\n", domain.FormatTimestamp(a.Timestamp), a.Type, a.ID, a.Message)
			}
		},
	}
	cmd.Flags().StringVar(&brokers, "brokers", sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"), "comma-separated Kafka brokers")
	cmd.Flags().StringVar(&topic, "topic", sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "fiber-alerts"), "alert topic")
	cmd.Flags().StringVar(&group, "group", "", "consumer group; partition 0 from the start when empty")
	return cmd
}
