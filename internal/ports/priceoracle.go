package ports

import "context"

// PriceOracle supplies the current market price for a symbol. The
// engine never originates prices itself; implementations wrap an
// exchange REST client or a fixture for tests.
//
// GetPrice returns a positive price or an error wrapping
// ErrPriceUnavailable on unknown symbols or upstream failure. Calls
// must honor the context deadline.
type PriceOracle interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
}
