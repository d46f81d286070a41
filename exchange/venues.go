package exchange

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/waterfall/market"
)

type binance struct{}

func (binance) name() string    { return "binance" }
func (binance) baseURL() string { return "https://api.binance.com" }

func (binance) klinesURL(base, symbol string, tf time.Duration, start, end time.Time) (string, error) {
	interval, err := market.TimeframeString(tf)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(PageLimit))
	return base + "/api/v3/klines?" + q.Encode(), nil
}

// decode reads [[openTime, "open", "high", "low", "close", "volume", ...], ...].
func (binance) decode(body []byte) ([]market.Bar, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	return rowsToBars(rows)
}

type bybit struct{}

func (bybit) name() string    { return "bybit" }
func (bybit) baseURL() string { return "https://api.bybit.com" }

func (bybit) klinesURL(base, symbol string, tf time.Duration, start, end time.Time) (string, error) {
	var interval string
	switch {
	case tf == 7*24*time.Hour:
		interval = "W"
	case tf == 24*time.Hour:
		interval = "D"
	case tf%time.Minute == 0 && tf < 24*time.Hour:
		interval = strconv.Itoa(int(tf / time.Minute))
	default:
		return "", fmt.Errorf("bybit has no %s interval", tf)
	}
	q := url.Values{}
	q.Set("category", "spot")
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval)
	q.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(PageLimit))
	return base + "/v5/market/kline?" + q.Encode(), nil
}

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]json.RawMessage `json:"list"`
	} `json:"result"`
}

// decode reads the v5 envelope. The list is newest first; Klines sorts.
func (bybit) decode(body []byte) ([]market.Bar, error) {
	var r bybitResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	if r.RetCode != 0 {
		return nil, fmt.Errorf("bybit error %d: %s", r.RetCode, r.RetMsg)
	}
	return rowsToBars(r.Result.List)
}

func rowsToBars(rows [][]json.RawMessage) ([]market.Bar, error) {
	bars := make([]market.Bar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline %d: want at least 6 fields, got %d", i, len(row))
		}
		var v [6]float64
		for j := range v {
			x, err := number(row[j])
			if err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j, err)
			}
			v[j] = x
		}
		t := time.UnixMilli(int64(v[0])).UTC()
		bars = append(bars, market.NewBar(t, v[1], v[2], v[3], v[4], v[5]))
	}
	return bars, nil
}

// number accepts both JSON numbers and numeric strings.
func number(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	return strconv.ParseFloat(s, 64)
}
