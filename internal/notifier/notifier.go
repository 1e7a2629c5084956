// Package notifier defines the outbound notification contract for
// generated signals and tracking updates.
package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// Notifier delivers signals and plain messages to an external channel.
type Notifier interface {
	SendSignal(ctx context.Context, signal domain.Signal) error
	SendMessage(ctx context.Context, message string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendSignal(_ context.Context, signal domain.Signal) error {
	n.logger.Info("signal generated",
		zap.String("id", signal.ID),
		zap.String("symbol", signal.Symbol),
		zap.String("direction", string(signal.Direction)),
		zap.String("entry", signal.EntryPrice.String()),
		zap.String("tp1", signal.TP1.String()),
		zap.String("tp2", signal.TP2.String()),
		zap.String("tp3", signal.TP3.String()),
		zap.String("stop_loss", signal.StopLoss.String()),
		zap.Float64("confidence", signal.Confidence),
		zap.Float64("risk_reward", signal.RiskReward),
		zap.String("regime", string(signal.Regime)),
		zap.String("reasoning", signal.Reasoning))
	return nil
}

func (n *LogNotifier) SendMessage(_ context.Context, message string) error {
	n.logger.Info("notification", zap.String("message", message))
	return nil
}
