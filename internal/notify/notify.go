// Package notify delivers trade notifications to external channels.
// Delivery is best effort: a failing channel is logged and never blocks
// or fails trading.
package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"kraken-trader/internal/events"
)

// Notifier sends a message to a channel.
type Notifier interface {
	Send(message string) error
	Name() string
}

// Service fans notifications out to all configured channels and
// subscribes them to broker events.
type Service struct {
	channels []Notifier
	logger   zerolog.Logger
}

// NewService creates a notification service.
func NewService(logger zerolog.Logger, channels ...Notifier) *Service {
	return &Service{channels: channels, logger: logger}
}

// AddChannel registers an additional channel.
func (s *Service) AddChannel(n Notifier) {
	s.channels = append(s.channels, n)
}

// Notify sends the message to all channels. Failures are logged and
// swallowed.
func (s *Service) Notify(message string) {
	for _, ch := range s.channels {
		if err := ch.Send(message); err != nil {
			s.logger.Warn().
				Err(err).
				Str("channel", ch.Name()).
				Msg("Notification delivery failed")
		}
	}
}

// Attach subscribes the service to trade fills on the bus.
func (s *Service) Attach(bus *events.Bus) {
	if bus == nil {
		return
	}
	bus.Subscribe(events.EventTradeFilled, func(event events.Event) {
		s.Notify(formatFill(event.Data))
	})
}

func formatFill(data map[string]interface{}) string {
	symbol, _ := data["symbol"].(string)
	side, _ := data["side"].(string)
	kind, _ := data["type"].(string)
	size, _ := data["size"].(float64)
	price, _ := data["price"].(float64)
	return fmt.Sprintf("%s %s %.4f %s @ %.2f",
		kind, side, size, symbol, price)
}
