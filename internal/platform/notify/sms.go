package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSMSStrategy simulates an SMS provider by writing the message to the log.
// A real gateway integration would replace this behind the same interface.
type LogSMSStrategy struct {
	logger zerolog.Logger
}

func NewLogSMSStrategy(logger zerolog.Logger) *LogSMSStrategy {
	return &LogSMSStrategy{logger: logger}
}

func (s *LogSMSStrategy) Channel() Channel { return ChannelSMS }

func (s *LogSMSStrategy) Send(ctx context.Context, recipient, _ string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info().
		Str("channel", "sms").
		Str("recipient", recipient).
		Str("body", body).
		Msg("simulated sms delivery")
	return nil
}
