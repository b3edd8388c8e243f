package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/market-alerts/internal/model"
)

// GetMarkets fetches a page of markets.
func (c *Client) GetMarkets(ctx context.Context, opts GetMarketsOptions) (*MarketsResponse, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.Exchange != "" {
		query.Set("exchange", opts.Exchange)
	}

	var resp MarketsResponse
	if err := c.get(ctx, "/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}

	return &resp, nil
}

// GetAllMarkets fetches every market by paginating through results.
func (c *Client) GetAllMarkets(ctx context.Context) ([]model.Market, error) {
	var all []model.Market
	opts := GetMarketsOptions{Limit: c.pageSize}

	for {
		resp, err := c.GetMarkets(ctx, opts)
		if err != nil {
			return nil, err
		}

		for _, m := range resp.Markets {
			all = append(all, m.ToModel())
		}

		if resp.Cursor == "" || resp.Cursor == opts.Cursor {
			break
		}
		opts.Cursor = resp.Cursor
	}

	return all, nil
}
