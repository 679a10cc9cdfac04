package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute performance metrics for a session",
	Long: `Compute performance metrics over the closed trades of a session.

The optional --start/--end flags restrict the computation to trades
entered inside the window (dates are interpreted as local midnight).

Examples:
  papertrader metrics --session 3
  papertrader metrics --session 3 --start 2026-01-01 --end 2026-02-01`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

var (
	metricsSessionID int64
	metricsStart     string
	metricsEnd       string
)

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().Int64VarP(&metricsSessionID, "session", "s", 0, "session ID (required)")
	metricsCmd.Flags().StringVar(&metricsStart, "start", "", "window start date YYYY-MM-DD (inclusive)")
	metricsCmd.Flags().StringVar(&metricsEnd, "end", "", "window end date YYYY-MM-DD (exclusive)")
	_ = metricsCmd.MarkFlagRequired("session")
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	start, err := parseDate(metricsStart)
	if err != nil {
		return err
	}
	end, err := parseDate(metricsEnd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := service.Performance(ctx, metricsSessionID, start, end)
	if err != nil {
		return err
	}

	fmt.Printf("Performance for session %d\n", metricsSessionID)
	fmt.Printf("  Trades:            %d (%d wins / %d losses)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Printf("  Win rate:          %.2f%%\n", m.WinRate)
	fmt.Printf("  Total PNL:         %.2f (%.2f%%)\n", m.TotalPNL, m.TotalROIPercentage)
	fmt.Printf("  Best/Worst ROI:    %.2f%% / %.2f%%\n", m.BestTradeROI, m.WorstTradeROI)
	fmt.Printf("  Avg win/loss:      %.2f / %.2f\n", m.AvgWinSize, m.AvgLossSize)
	fmt.Printf("  Largest win/loss:  %.2f / %.2f\n", m.LargestWin, m.LargestLoss)
	fmt.Printf("  Profit factor:     %.4f\n", m.ProfitFactor)
	fmt.Printf("  Risk/reward:       %.4f\n", m.RiskRewardRatio)
	fmt.Printf("  Expectancy:        %.2f\n", m.Expectancy)
	fmt.Printf("  Max drawdown:      %.2f\n", m.MaxDrawdown)
	fmt.Printf("  Max streaks:       %d wins / %d losses\n", m.MaxConsecutiveWins, m.MaxConsecutiveLosses)
	fmt.Printf("  Sharpe ratio:      %.4f\n", m.SharpeRatio)
	fmt.Printf("  Recovery factor:   %.4f\n", m.RecoveryFactor)
	fmt.Printf("  Avg duration:      %.2fh\n", m.AvgTradeDurationHours)
	return nil
}
