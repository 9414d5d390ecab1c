package app

import (
	"fmt"
	"log/slog"

	"ridebook/internal/config"
	"ridebook/internal/mq"
)

// NewPublisher connects to the event broker. It returns nil when publishing is
// disabled; notifications are then only logged.
func NewPublisher(cfg config.AMQPConfig, logger *slog.Logger) (*mq.Publisher, error) {
	if !cfg.Enabled {
		logger.Info("ride event publishing disabled")
		return nil, nil
	}

	pub, err := mq.Dial(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	logger.Info("connected to broker", "exchange", cfg.Exchange)
	return pub, nil
}
