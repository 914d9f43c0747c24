// Package notifier fans alert intents out to the enabled channels. Channel
// failures are logged and never propagate to the polling loop.
package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
)

// Intent is one notification to deliver: a subject, a full body, and a
// condensed body for OS toasts that cannot show much text.
type Intent struct {
	Subject string
	Body    string
	Short   string
}

// Channel delivers an intent over one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, intent Intent) error
}

// Dispatcher sends each intent to every configured channel in order.
type Dispatcher struct {
	channels []Channel
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, log: log}
}

// ForConfig builds a dispatcher with the channels the config enables. The
// mailer is shared so its queue and worker outlive individual dispatches.
func ForConfig(cfg config.Config, mailer *Mailer, log zerolog.Logger) *Dispatcher {
	var channels []Channel
	if cfg.TelegramEnabled() {
		channels = append(channels, NewTelegram(cfg, log))
	}
	if cfg.EmailEnabled() && mailer != nil {
		channels = append(channels, &mailChannel{mailer: mailer, cfg: cfg})
	}
	if cfg.EnableLocal {
		channels = append(channels, NewLocal(log))
	}
	return NewDispatcher(log, channels...)
}

// Dispatch delivers the intent on every channel, logging failures.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) {
	for _, ch := range d.channels {
		if err := ch.Send(ctx, intent); err != nil {
			d.log.Warn().Err(err).Str("channel", ch.Name()).Str("subject", intent.Subject).Msg("notification send failed")
			continue
		}
		d.log.Info().Str("channel", ch.Name()).Str("subject", intent.Subject).Msg("notification sent")
	}
}

// Channels reports how many transports are active.
func (d *Dispatcher) Channels() int {
	return len(d.channels)
}
