package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"materials_market/internal/app"
	"materials_market/internal/config"
	"materials_market/internal/logger"
	"materials_market/internal/services"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Operational commands for the materials marketplace",
	Long: `invoicectl runs the scheduled and administrative jobs of the
materials marketplace against the configured storage.

Configuration is read from the environment (and .env when present), the
same way the API server reads it.`,
	Version:      version,
	SilenceUsage: true,
}

var markOverdueCmd = &cobra.Command{
	Use:   "mark-overdue",
	Short: "Move sent and partially paid invoices past their due date to overdue",
	Example: `  # Mark everything overdue as of now
  invoicectl mark-overdue

  # Evaluate against a fixed cutoff
  invoicectl mark-overdue --now 2026-03-31`,
	RunE: runMarkOverdue,
}

var setRateCmd = &cobra.Command{
	Use:   "set-rate <setting> <rate>",
	Short: "Persist a pricing rate (admin_margin or gst_rate)",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetRate,
}

func init() {
	rootCmd.AddCommand(markOverdueCmd, setRateCmd)

	markOverdueCmd.Flags().String("now", "", "Cutoff time (RFC3339 or YYYY-MM-DD, default: current time)")
	setRateCmd.Flags().Uint("actor", 1, "ID recorded as the creator of the setting")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*app.App, logrus.FieldLogger, error) {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func parseCutoff(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now value %q. Use RFC3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}

func runMarkOverdue(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("now")
	now, err := parseCutoff(raw)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Invoices.MarkOverdue(ctx, now)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"checked": result.Checked, "marked": len(result.Marked)}).Info("Overdue sweep finished")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runSetRate(cmd *cobra.Command, args []string) error {
	rate, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", args[1], err)
	}
	actorID, _ := cmd.Flags().GetUint("actor")

	ctx := cmd.Context()
	a, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := services.SavePricingRate(ctx, a.Repos.Settings, services.Actor{ID: actorID, Role: "admin"}, args[0], rate); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"setting": args[0], "rate": rate.String()}).Info("Pricing rate saved")
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], rate.String())
	return nil
}
