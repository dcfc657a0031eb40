package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// Envelope carries a published payload together with its channel name.
type Envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

const subscriptionBuffer = 64

// Subscription receives envelopes for a set of channels. Per channel,
// envelopes arrive in publish order; a slow consumer whose buffer fills
// loses newer envelopes rather than blocking publishers.
type Subscription struct {
	C chan Envelope

	broker   *Broker
	channels []string
	once     sync.Once
}

// Close detaches the subscription from the broker and closes C. Safe to
// call concurrently with Publish: detach and close happen under the broker
// lock that publishes hold while sending.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
	})
}

// Broker is an in-process publisher with subscriber fan-out. It backs the
// WebSocket gateway and is the Publisher of record when Redis is absent.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*Subscription]struct{})}
}

// Publish marshals the payload and delivers it to every current subscriber
// of the channel. Best effort: a full subscriber buffer drops the envelope.
// The read lock is held across the sends so a racing Close cannot close a
// channel mid-send; the sends are non-blocking, so the hold is bounded.
func (b *Broker) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Channel: channel, Payload: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[channel] {
		select {
		case sub.C <- env:
		default:
		}
	}
	return nil
}

// Subscribe registers interest in the given channels.
func (b *Broker) Subscribe(channels ...string) *Subscription {
	sub := &Subscription{
		C:        make(chan Envelope, subscriptionBuffer),
		broker:   b,
		channels: channels,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range channels {
		if b.subs[channel] == nil {
			b.subs[channel] = make(map[*Subscription]struct{})
		}
		b.subs[channel][sub] = struct{}{}
	}
	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range sub.channels {
		delete(b.subs[channel], sub)
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
	}
	close(sub.C)
}

// multiPublisher forwards each publish to all underlying publishers and
// reports the first error after every target was attempted.
type multiPublisher struct {
	targets []Publisher
}

// MultiPublisher combines publishers, e.g. the in-process broker plus Redis.
func MultiPublisher(targets ...Publisher) Publisher {
	return &multiPublisher{targets: targets}
}

func (m *multiPublisher) Publish(ctx context.Context, channel string, payload any) error {
	var firstErr error
	for _, target := range m.targets {
		if err := target.Publish(ctx, channel, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
