package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cryptoPaperTrader/internal/app"
	"cryptoPaperTrader/internal/domain"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Open, close and cancel simulated trades",
	Long: `Manage simulated trades inside a session.

Examples:
  papertrader trade open --session 3 --symbol BTCUSDT --side BUY
  papertrader trade open --session 3 --symbol ETHUSDT --side SELL --price 2500 --quantity 0.5
  papertrader trade close 12
  papertrader trade close 12 --price 65000
  papertrader trade cancel 12
  papertrader trade list --session 3`,
}

var tradeOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a simulated trade",
	Args:  cobra.NoArgs,
	RunE:  runTradeOpen,
}

var tradeCloseCmd = &cobra.Command{
	Use:   "close <trade-id>",
	Short: "Close an open trade and realize its P&L",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeClose,
}

var tradeCancelCmd = &cobra.Command{
	Use:   "cancel <trade-id>",
	Short: "Cancel an open trade without realizing P&L",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeCancel,
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the trades of a session",
	Args:  cobra.NoArgs,
	RunE:  runTradeList,
}

var (
	tradeSessionID  int64
	tradeSymbol     string
	tradeSide       string
	tradePrice      float64
	tradeQuantity   float64
	tradeStopLoss   float64
	tradeTakeProfit float64
	tradeExitPrice  float64
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeOpenCmd)
	tradeCmd.AddCommand(tradeCloseCmd)
	tradeCmd.AddCommand(tradeCancelCmd)
	tradeCmd.AddCommand(tradeListCmd)

	tradeOpenCmd.Flags().Int64VarP(&tradeSessionID, "session", "s", 0, "session ID (required)")
	tradeOpenCmd.Flags().StringVar(&tradeSymbol, "symbol", "", "trading symbol, e.g. BTCUSDT (required)")
	tradeOpenCmd.Flags().StringVar(&tradeSide, "side", "", "order side: BUY or SELL (required)")
	tradeOpenCmd.Flags().Float64Var(&tradePrice, "price", 0, "entry price (0 = current market price)")
	tradeOpenCmd.Flags().Float64VarP(&tradeQuantity, "quantity", "q", 0, "position size (0 = risk-based sizing)")
	tradeOpenCmd.Flags().Float64Var(&tradeStopLoss, "stop-loss", 0, "advisory stop-loss level")
	tradeOpenCmd.Flags().Float64Var(&tradeTakeProfit, "take-profit", 0, "advisory take-profit level")
	_ = tradeOpenCmd.MarkFlagRequired("session")
	_ = tradeOpenCmd.MarkFlagRequired("symbol")
	_ = tradeOpenCmd.MarkFlagRequired("side")

	tradeCloseCmd.Flags().Float64Var(&tradeExitPrice, "price", 0, "exit price (0 = current market price)")

	tradeListCmd.Flags().Int64VarP(&tradeSessionID, "session", "s", 0, "session ID (required)")
	_ = tradeListCmd.MarkFlagRequired("session")
}

func parseSide(s string) (domain.OrderSide, error) {
	side := domain.OrderSide(strings.ToUpper(s))
	if !side.IsValid() {
		return "", fmt.Errorf("invalid side %q (want BUY or SELL)", s)
	}
	return side, nil
}

func runTradeOpen(cmd *cobra.Command, args []string) error {
	side, err := parseSide(tradeSide)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	trade, err := service.OpenTrade(ctx, app.OpenTradeParams{
		SessionID:  tradeSessionID,
		Symbol:     tradeSymbol,
		Side:       side,
		EntryPrice: tradePrice,
		Quantity:   tradeQuantity,
		StopLoss:   tradeStopLoss,
		TakeProfit: tradeTakeProfit,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Opened trade %d: %s %s %.6f @ %.4f (notional %.2f)\n",
		trade.ID, trade.Side, trade.Symbol, trade.Quantity, trade.EntryPrice, trade.Notional())
	return nil
}

func runTradeClose(cmd *cobra.Command, args []string) error {
	tradeID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid trade id %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	trade, err := service.CloseTrade(ctx, tradeID, tradeExitPrice)
	if err != nil {
		return err
	}

	fmt.Printf("Closed trade %d @ %.4f: PNL %.2f (%.2f%%)\n",
		trade.ID, trade.ExitPrice, trade.PNL, trade.ROIPct)
	return nil
}

func runTradeCancel(cmd *cobra.Command, args []string) error {
	tradeID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid trade id %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	trade, err := service.CancelTrade(ctx, tradeID)
	if err != nil {
		return err
	}

	fmt.Printf("Cancelled trade %d (%s %s)\n", trade.ID, trade.Side, trade.Symbol)
	return nil
}

func runTradeList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	trades, err := service.SessionTrades(ctx, tradeSessionID)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("No trades found.")
		return nil
	}

	fmt.Printf("%-5s %-10s %-4s %-9s %12s %12s %12s %12s\n",
		"ID", "SYMBOL", "SIDE", "STATUS", "ENTRY", "EXIT", "PNL", "UNREAL")
	for _, t := range trades {
		fmt.Printf("%-5d %-10s %-4s %-9s %12.4f %12.4f %12.2f %12.2f\n",
			t.ID, t.Symbol, t.Side, t.Status, t.EntryPrice, t.ExitPrice, t.PNL, t.UnrealizedPNL)
	}
	return nil
}
