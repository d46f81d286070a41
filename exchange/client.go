// Package exchange downloads historical klines from public exchange REST
// endpoints.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/waterfall/market"
)

// PageLimit is the largest number of klines requested per call.
const PageLimit = 1000

var (
	ErrUnknownExchange = errors.New("unknown exchange")
	ErrStatus          = errors.New("unexpected http status")
)

// FetchObserver is told about every HTTP request the client makes.
type FetchObserver interface {
	ObserveFetch(exchange string, err error)
}

// Config selects the exchange and how hard the client may hit it.
type Config struct {
	Exchange          string // "binance" or "bybit"
	BaseURL           string // empty means the public production endpoint
	RequestsPerSecond float64
	Retries           int
	Timeout           time.Duration
}

// venue knows how to ask one exchange for klines and decode the answer.
type venue interface {
	name() string
	baseURL() string
	klinesURL(base, symbol string, tf time.Duration, start, end time.Time) (string, error)
	decode(body []byte) ([]market.Bar, error)
}

type Client struct {
	venue   venue
	base    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retries int
	backoff time.Duration
	log     zerolog.Logger
	obs     FetchObserver
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

func WithObserver(o FetchObserver) Option { return func(c *Client) { c.obs = o } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithBackoff sets the delay before the first retry. It doubles per attempt.
func WithBackoff(d time.Duration) Option { return func(c *Client) { c.backoff = d } }

func New(cfg Config, opts ...Option) (*Client, error) {
	var v venue
	switch strings.ToLower(cfg.Exchange) {
	case "binance":
		v = binance{}
	case "bybit":
		v = bybit{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExchange, cfg.Exchange)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		venue:   v,
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		retries: cfg.Retries,
		backoff: 500 * time.Millisecond,
		log:     zerolog.Nop(),
	}
	if c.base == "" {
		c.base = v.baseURL()
	}

	st := gobreaker.Settings{
		Name:     v.name(),
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker(st)

	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With().Str("exchange", v.name()).Logger()
	return c, nil
}

func (c *Client) Name() string { return c.venue.name() }

// Klines returns the closed bars of timeframe tf that open in
// [start, end), sorted and without duplicates. A bar still forming at end
// is dropped. Requests are paged PageLimit bars at a time.
func (c *Client) Klines(ctx context.Context, symbol, tf string, start, end time.Time) ([]market.Bar, error) {
	step, err := market.ParseTimeframe(tf)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, nil
	}

	var out []market.Bar
	window := step * PageLimit
	for cursor := start; cursor.Before(end); cursor = cursor.Add(window) {
		last := cursor.Add(window - time.Millisecond)
		if !last.Before(end) {
			last = end.Add(-time.Millisecond)
		}
		u, err := c.venue.klinesURL(c.base, symbol, step, cursor, last)
		if err != nil {
			return nil, err
		}
		body, err := c.get(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("%s klines %s %s from %s: %w", c.venue.name(), symbol, tf, cursor.Format(time.RFC3339), err)
		}
		bars, err := c.venue.decode(body)
		if err != nil {
			return nil, fmt.Errorf("%s klines %s: %w", c.venue.name(), symbol, err)
		}
		for _, b := range bars {
			if b.Time.Before(start) || b.Time.Add(step).After(end) {
				continue
			}
			out = append(out, b)
		}
		c.log.Debug().Str("symbol", symbol).Str("tf", tf).Time("from", cursor).Int("bars", len(bars)).Msg("kline page")
	}
	return market.Dedupe(out), nil
}

// Lookback fetches days of micro bars ending at now and days+5 of macro
// bars, so the macro context has history at the first micro bar.
func (c *Client) Lookback(ctx context.Context, symbol, microTF, macroTF string, days float64, now time.Time) (micro, macro []market.Bar, err error) {
	span := time.Duration(days * float64(24*time.Hour))
	micro, err = c.Klines(ctx, symbol, microTF, now.Add(-span), now)
	if err != nil {
		return nil, nil, err
	}
	macro, err = c.Klines(ctx, symbol, macroTF, now.Add(-span-5*24*time.Hour), now)
	if err != nil {
		return nil, nil, err
	}
	c.log.Info().Str("symbol", symbol).Int("micro", len(micro)).Int("macro", len(macro)).Msg("fetched")
	return micro, macro, nil
}

type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

// get performs one rate limited GET through the breaker, retrying
// transient failures with exponential backoff.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	delay := c.backoff
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("retrying kline request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err = c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var res any
		res, err = c.breaker.Execute(func() (any, error) {
			return c.do(ctx, url)
		})
		if c.obs != nil {
			c.obs.ObserveFetch(c.venue.name(), err)
		}
		if err == nil {
			return res.([]byte), nil
		}

		var p permanent
		if errors.As(err, &p) || errors.Is(err, gobreaker.ErrOpenState) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, err
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, permanent{err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, snippet(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent{err}
		}
		return nil, err
	}
	return body, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
