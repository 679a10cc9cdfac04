package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cryptoPaperTrader/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	defaultRequestTimeout = 5 * time.Second
)

// Client implements the ports.PriceOracle interface using the
// go-binance spot REST client. Only the public ticker-price endpoint is
// used; API keys are optional.
type Client struct {
	spot           *binance.Client
	logger         ports.Logger
	requestTimeout time.Duration
}

// Config holds configuration specific to the Binance price oracle.
// Endpoint selection is explicit here; nothing reads ambient global
// state inside the adapter.
type Config struct {
	APIKey         string
	SecretKey      string
	UseTestnet     bool
	Logger         ports.Logger
	RequestTimeout time.Duration // Upper bound per price lookup when the caller sets no deadline
}

// New creates a new Binance price oracle adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of the library's global testnet flag.
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance price oracle configured", map[string]interface{}{"baseURL": client.BaseURL})

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		spot:           client,
		logger:         cfg.Logger,
		requestTimeout: timeout,
	}, nil
}

// GetPrice retrieves the last ticker price for a symbol. Unknown
// symbols, upstream failures and non-positive quotes all surface as
// ports.ErrPriceUnavailable so batch callers can skip and continue.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", ports.ErrPriceUnavailable)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.priceError(ctx, err, symbol)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no ticker returned for %s", ports.ErrPriceUnavailable, symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable price %q for %s: %v", ports.ErrPriceUnavailable, prices[0].Price, symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: non-positive price %f for %s", ports.ErrPriceUnavailable, price, symbol)
	}

	c.logger.Debug(ctx, "Fetched ticker price", map[string]interface{}{"symbol": symbol, "price": price})
	return price, nil
}

// priceError maps transport and API failures onto the oracle contract.
func (c *Client) priceError(ctx context.Context, err error, symbol string) error {
	fields := map[string]interface{}{"symbol": symbol, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		c.logger.Warn(ctx, "Binance ticker price lookup failed", fields)
		return fmt.Errorf("%w: symbol %s: %v", ports.ErrPriceUnavailable, symbol, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn(ctx, "Binance ticker price lookup timed out", fields)
		return fmt.Errorf("%w: %w: symbol %s: %v", ports.ErrPriceUnavailable, ports.ErrTimeout, symbol, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w: symbol %s: %v", ports.ErrPriceUnavailable, ports.ErrContextCanceled, symbol, err)
	}

	c.logger.Warn(ctx, "Binance ticker price lookup failed", fields)
	return fmt.Errorf("%w: symbol %s: %v", ports.ErrPriceUnavailable, symbol, err)
}
