// Package notify provides the delivery strategies used by the notification
// domain: real SMTP email and a simulated SMS provider, selected by channel.
package notify

import (
	"context"
	"fmt"
)

// Channel identifies a delivery mechanism.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Strategy sends a rendered message to a recipient over one channel.
type Strategy interface {
	Channel() Channel
	Send(ctx context.Context, recipient, subject, body string) error
}

// Registry resolves strategies by channel.
type Registry struct {
	strategies map[Channel]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[Channel]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Channel()] = s
	}
	return r
}

// For returns the strategy registered for the channel.
func (r *Registry) For(ch Channel) (Strategy, error) {
	s, ok := r.strategies[ch]
	if !ok {
		return nil, fmt.Errorf("no strategy registered for channel %q", ch)
	}
	return s, nil
}
