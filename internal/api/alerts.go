package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rickgao/market-alerts/internal/alert"
)

// CreateAlert posts a new alert.
func (c *Client) CreateAlert(ctx context.Context, req alert.CreateRequest) (alert.CreateResponse, error) {
	var resp alert.CreateResponse
	if err := c.send(ctx, http.MethodPost, "/alerts", req, &resp); err != nil {
		return alert.CreateResponse{}, fmt.Errorf("create alert %s: %w", req.UUID, err)
	}
	return resp, nil
}

// UpdateAlert replaces an alert's definition.
func (c *Client) UpdateAlert(ctx context.Context, uuid string, req alert.UpdateRequest) error {
	if err := c.send(ctx, http.MethodPut, alertPath(uuid), req, nil); err != nil {
		return fmt.Errorf("update alert %s: %w", uuid, err)
	}
	return nil
}

// DeleteAlert cancels an alert.
func (c *Client) DeleteAlert(ctx context.Context, uuid string) error {
	if err := c.send(ctx, http.MethodDelete, alertPath(uuid), nil, nil); err != nil {
		return fmt.Errorf("delete alert %s: %w", uuid, err)
	}
	return nil
}

// ListAlerts returns every alert the server holds for the user.
func (c *Client) ListAlerts(ctx context.Context) ([]alert.Descriptor, error) {
	var resp AlertsResponse
	if err := c.get(ctx, "/alerts", nil, &resp); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return resp.Alerts, nil
}

func alertPath(uuid string) string {
	return "/alerts/" + url.PathEscape(uuid)
}

var _ alert.Remote = (*Client)(nil)
