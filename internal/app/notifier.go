package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/alert"
)

// logNotifier presents notifications as log lines.
type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) Notify(_ context.Context, x alert.Notification) error {
	n.logger.Info(x.Title,
		zap.String("kind", string(x.Kind)),
		zap.String("alert", x.Alert),
		zap.String("body", x.Body),
	)
	return nil
}
