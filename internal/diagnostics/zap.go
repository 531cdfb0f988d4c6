package diagnostics

import (
	"go.uber.org/zap"

	"backtest-lab/internal/domain"
)

// ZapSink writes diagnostics to a zap logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink that logs through logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("diagnostics")}
}

// Report implements Sink.
func (s *ZapSink) Report(d domain.Diagnostic) {
	fields := []zap.Field{
		zap.String("code", string(d.Code)),
		zap.Int("bar", d.Bar),
		zap.Int64("date", d.Date),
	}
	if d.Asset != "" {
		fields = append(fields, zap.String("asset", d.Asset))
	}

	switch d.Level {
	case domain.LevelWarn:
		s.logger.Warn(d.Message, fields...)
	default:
		s.logger.Info(d.Message, fields...)
	}
}

var _ Sink = (*ZapSink)(nil)
