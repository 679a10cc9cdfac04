package analytics

import (
	"math"
	"sort"
	"time"

	"cryptoPaperTrader/internal/domain"
)

// defaultAnnualizationDays is the Sharpe ratio annualization constant.
// 365 matches a market that trades every calendar day; it is a design
// choice, not a statistical law, and can be overridden via Config.
const defaultAnnualizationDays = 365

// Config holds tunables for the metrics engine.
type Config struct {
	// AnnualizationDays scales the per-trade Sharpe ratio to an annual
	// figure via sqrt(AnnualizationDays). Zero or negative selects the
	// default of 365.
	AnnualizationDays float64
}

// Engine derives performance reports from closed trades. It is pure:
// no stores, no clocks, no mutation of its input.
type Engine struct {
	annualizationDays float64
}

// New creates a metrics engine.
func New(cfg Config) *Engine {
	days := cfg.AnnualizationDays
	if days <= 0 {
		days = defaultAnnualizationDays
	}
	return &Engine{annualizationDays: days}
}

// PerformanceMetrics is the flat performance report for a session.
// Every divide-by-zero case has defined sentinel behavior: ratios with
// an empty denominator report +Inf when the numerator is positive and
// 0 otherwise. These sentinels are part of the contract.
type PerformanceMetrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent of closed trades with positive P&L

	TotalPNL           float64
	TotalROIPercentage float64
	BestTradeROI       float64
	WorstTradeROI      float64

	AvgTradeDurationHours float64
	AvgWinSize            float64 // mean winner P&L
	AvgLossSize           float64 // mean absolute loser P&L
	LargestWin            float64
	LargestLoss           float64 // absolute value

	ProfitFactor    float64 // gross wins / gross absolute losses
	RiskRewardRatio float64 // avg win / avg loss
	Expectancy      float64 // expected P&L per trade

	MaxDrawdown     float64 // peak-to-trough decline of cumulative P&L, percent of peak
	CurrentDrawdown float64 // reported equal to MaxDrawdown, see ComputeMetrics

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int

	SharpeRatio    float64
	RecoveryFactor float64 // total P&L / max drawdown fraction
}

// ComputeMetrics derives the performance report for a trade collection.
// Only CLOSED trades count; when start or end is non-zero, trades are
// further restricted to entry times within [start, end]. An empty
// selection yields an all-zero report, never an error.
//
// CurrentDrawdown is reported equal to MaxDrawdown: the engine keeps no
// separate since-last-peak tracking. Known simplification.
func (e *Engine) ComputeMetrics(trades []*domain.Trade, start, end time.Time) *PerformanceMetrics {
	m := &PerformanceMetrics{}

	closed := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status != domain.StatusClosed {
			continue
		}
		if !start.IsZero() && t.EntryTime.Before(start) {
			continue
		}
		if !end.IsZero() && t.EntryTime.After(end) {
			continue
		}
		closed = append(closed, t)
	}
	if len(closed) == 0 {
		return m
	}

	// Deterministic order for drawdown and streaks: entry time
	// ascending, ties broken by trade ID.
	sort.SliceStable(closed, func(i, j int) bool {
		if closed[i].EntryTime.Equal(closed[j].EntryTime) {
			return closed[i].ID < closed[j].ID
		}
		return closed[i].EntryTime.Before(closed[j].EntryTime)
	})

	var (
		grossWin, grossLoss   float64
		largestWin            float64
		largestLoss           float64
		totalDuration         time.Duration
		cumulative, peak      float64
		maxDrawdownFrac       float64
		streak                int // +n consecutive winners, -n consecutive losers
		returns               []float64
	)

	m.TotalTrades = len(closed)
	m.BestTradeROI = math.Inf(-1)
	m.WorstTradeROI = math.Inf(1)

	for _, t := range closed {
		m.TotalPNL += t.PNL
		m.TotalROIPercentage += t.ROIPct
		if t.ROIPct > m.BestTradeROI {
			m.BestTradeROI = t.ROIPct
		}
		if t.ROIPct < m.WorstTradeROI {
			m.WorstTradeROI = t.ROIPct
		}
		totalDuration += t.ExitTime.Sub(t.EntryTime)
		returns = append(returns, t.ROIPct/100)

		if t.PNL > 0 {
			m.WinningTrades++
			grossWin += t.PNL
			if t.PNL > largestWin {
				largestWin = t.PNL
			}
			if streak > 0 {
				streak++
			} else {
				streak = 1
			}
			if streak > m.MaxConsecutiveWins {
				m.MaxConsecutiveWins = streak
			}
		} else {
			m.LosingTrades++
			loss := math.Abs(t.PNL)
			grossLoss += loss
			if loss > largestLoss {
				largestLoss = loss
			}
			if streak < 0 {
				streak--
			} else {
				streak = -1
			}
			if -streak > m.MaxConsecutiveLosses {
				m.MaxConsecutiveLosses = -streak
			}
		}

		cumulative += t.PNL
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			if dd := (peak - cumulative) / peak; dd > maxDrawdownFrac {
				maxDrawdownFrac = dd
			}
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	m.AvgTradeDurationHours = totalDuration.Hours() / float64(m.TotalTrades)
	m.LargestWin = largestWin
	m.LargestLoss = largestLoss
	if m.WinningTrades > 0 {
		m.AvgWinSize = grossWin / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLossSize = grossLoss / float64(m.LosingTrades)
	}

	m.ProfitFactor = sentinelRatio(grossWin, grossLoss)
	m.RiskRewardRatio = sentinelRatio(m.AvgWinSize, m.AvgLossSize)

	winFrac := m.WinRate / 100
	m.Expectancy = winFrac*m.AvgWinSize - (1-winFrac)*m.AvgLossSize

	m.MaxDrawdown = maxDrawdownFrac * 100
	m.CurrentDrawdown = m.MaxDrawdown
	m.RecoveryFactor = sentinelRatio(m.TotalPNL, maxDrawdownFrac)

	m.SharpeRatio = e.sharpe(returns)

	return m
}

// sharpe computes the annualized Sharpe ratio of fractional per-trade
// returns. Fewer than two returns or a zero standard deviation yield 0.
func (e *Engine) sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return mean / stddev * math.Sqrt(e.annualizationDays)
}

// sentinelRatio divides with the contract's sentinel behavior: a zero
// denominator reports +Inf for a positive numerator and 0 otherwise.
func sentinelRatio(num, denom float64) float64 {
	if denom == 0 {
		if num > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return num / denom
}
