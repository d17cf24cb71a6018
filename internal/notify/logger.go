package notify

import "go.uber.org/zap"

// Logger writes notifications to a zap logger. Failures are logged at warn
// level, everything else at info; progress ticks go to debug.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a Sink backed by the given logger.
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("message", n.Message),
	}
	if n.Destructive() {
		l.logger.Warn(n.Title, fields...)
		return
	}
	l.logger.Info(n.Title, fields...)
}

func (l *Logger) Progress(p Progress) {
	l.logger.Debug("batch progress",
		zap.Int("completed", p.Completed),
		zap.Int("total", p.Total),
		zap.Float64("percent", p.Percent),
	)
}
