package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cryptoPaperTrader/internal/domain"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage paper trading sessions",
	Long: `Create, inspect and delete paper trading sessions.

Examples:
  papertrader session create --file session.yaml
  papertrader session list --active
  papertrader session get 3
  papertrader session delete 3`,
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session from a YAML spec file",
	Args:  cobra.NoArgs,
	RunE:  runSessionCreate,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionGetCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Show one session and its trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionGet,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its trade history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var (
	sessionSpecFile   string
	sessionActiveOnly bool
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionGetCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)

	sessionCreateCmd.Flags().StringVarP(&sessionSpecFile, "file", "f", "", "YAML session spec file (required)")
	_ = sessionCreateCmd.MarkFlagRequired("file")

	sessionListCmd.Flags().BoolVar(&sessionActiveOnly, "active", false, "only list active sessions")
}

// sessionSpec is the YAML shape of a session creation request.
type sessionSpec struct {
	Name     string `yaml:"name"`
	Strategy struct {
		Type   string                 `yaml:"type"`
		Params map[string]interface{} `yaml:"params"`
	} `yaml:"strategy"`
	TradingPairs    []string `yaml:"trading_pairs"`
	RiskPercentage  float64  `yaml:"risk_percentage"`
	InitialBalance  float64  `yaml:"initial_balance"`
	MaxPositionSize float64  `yaml:"max_position_size"`
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(sessionSpecFile)
	if err != nil {
		return fmt.Errorf("read spec file: %w", err)
	}

	var spec sessionSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("parse spec file: %w", err)
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := service.CreateSession(ctx, &domain.Session{
		Name: spec.Name,
		Strategy: domain.Strategy{
			Type:   spec.Strategy.Type,
			Params: spec.Strategy.Params,
		},
		TradingPairs:    spec.TradingPairs,
		RiskPercentage:  spec.RiskPercentage,
		InitialBalance:  spec.InitialBalance,
		MaxPositionSize: spec.MaxPositionSize,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created session %d (%s) with balance %.2f\n", session.ID, session.Name, session.CurrentBalance)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sessions, err := service.ListSessions(ctx, sessionActiveOnly)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("%-5s %-20s %-8s %12s %12s %12s\n", "ID", "NAME", "ACTIVE", "INITIAL", "BALANCE", "PNL")
	for _, s := range sessions {
		fmt.Printf("%-5d %-20s %-8t %12.2f %12.2f %12.2f\n",
			s.ID, s.Name, s.IsActive, s.InitialBalance, s.CurrentBalance, s.TotalPNL)
	}
	return nil
}

func runSessionGet(cmd *cobra.Command, args []string) error {
	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := service.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	trades, err := service.SessionTrades(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Printf("Session %d: %s\n", session.ID, session.Name)
	fmt.Printf("  Strategy:  %s\n", session.Strategy.Type)
	fmt.Printf("  Pairs:     %v\n", session.TradingPairs)
	fmt.Printf("  Risk:      %.2f%%  MaxPosition: %.2f\n", session.RiskPercentage, session.MaxPositionSize)
	fmt.Printf("  Balance:   %.2f (initial %.2f)\n", session.CurrentBalance, session.InitialBalance)
	fmt.Printf("  TotalPNL:  %.2f  Active: %t\n", session.TotalPNL, session.IsActive)
	fmt.Printf("  Trades:    %d\n", len(trades))
	for _, t := range trades {
		fmt.Printf("    #%-4d %-10s %-4s %-9s entry %.4f qty %.6f pnl %.2f\n",
			t.ID, t.Symbol, t.Side, t.Status, t.EntryPrice, t.Quantity, t.PNL)
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := service.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	fmt.Printf("Deleted session %d\n", sessionID)
	return nil
}
