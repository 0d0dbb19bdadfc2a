package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier renders messages and writes them to the log instead of sending mail.
type LogNotifier struct {
	renderer *Renderer
	logger   zerolog.Logger
}

func NewLogNotifier(renderer *Renderer, logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{renderer: renderer, logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	email, err := n.renderer.Render(msg)
	if err != nil {
		return err
	}
	n.logger.Info().
		Str("kind", string(msg.Kind)).
		Str("to", email.To).
		Str("subject", email.Subject).
		Msg("notification delivered to log")
	n.logger.Debug().Str("to", email.To).Msg(email.Body)
	return nil
}
