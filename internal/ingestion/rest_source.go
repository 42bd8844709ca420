package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"smc-lab/internal/domain"
)

// RESTKlineSource fetches historical candles from an exchange REST API
// exposing the standard klines endpoint.
type RESTKlineSource struct {
	baseURL string
	client  *http.Client
	limit   int
}

// RESTKlineSourceOptions contains configuration for creating a RESTKlineSource.
type RESTKlineSourceOptions struct {
	BaseURL string
	Client  *http.Client
	// Limit is the per-request candle cap. Defaults to 1000.
	Limit int
}

// NewRESTKlineSource creates a new REST kline source.
func NewRESTKlineSource(opts RESTKlineSourceOptions) *RESTKlineSource {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := opts.Limit
	if limit == 0 {
		limit = 1000
	}
	return &RESTKlineSource{
		baseURL: opts.BaseURL,
		client:  client,
		limit:   limit,
	}
}

// Compile-time interface check.
var _ KlineSource = (*RESTKlineSource)(nil)

// Fetch returns candles for (symbol, timeframe) within [from, to],
// paging through the endpoint until the range is covered.
func (s *RESTKlineSource) Fetch(ctx context.Context, symbol string, tf domain.Timeframe, from, to int64) ([]domain.Candle, error) {
	var all []domain.Candle

	cursor := from
	for cursor <= to {
		page, err := s.fetchPage(ctx, symbol, tf, cursor, to)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)

		last := page[len(page)-1].OpenTimeMs
		if last <= cursor {
			break
		}
		cursor = last + 1

		if len(page) < s.limit {
			break
		}
	}

	return all, nil
}

// fetchPage requests one page of klines.
func (s *RESTKlineSource) fetchPage(ctx context.Context, symbol string, tf domain.Timeframe, from, to int64) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("startTime", strconv.FormatInt(from, 10))
	q.Set("endTime", strconv.FormatInt(to, 10))
	q.Set("limit", strconv.Itoa(s.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build klines request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch klines: unexpected status %d", resp.StatusCode)
	}

	// Each row: [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("decode klines: row has %d fields", len(row))
		}

		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("decode kline open time: %w", err)
		}

		vals := make([]float64, 5)
		for i := 1; i <= 5; i++ {
			var raw string
			if err := json.Unmarshal(row[i], &raw); err != nil {
				return nil, fmt.Errorf("decode kline field %d: %w", i, err)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("parse kline field %d: %w", i, err)
			}
			vals[i-1] = v
		}

		candles = append(candles, domain.Candle{
			Symbol:     symbol,
			Timeframe:  tf,
			OpenTimeMs: openTime,
			Open:       vals[0],
			High:       vals[1],
			Low:        vals[2],
			Close:      vals[3],
			Volume:     vals[4],
		})
	}

	return candles, nil
}
