package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/observability"
)

const (
	subscriberBufferSize = 32
	recentEventWindow    = 512
)

// Publisher announces row-level changes.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Feed is a push-notify-then-pull change feed.
type Feed interface {
	Publisher
	Subscribe(filter Filter) (<-chan Event, func())
	Start(ctx context.Context)
}

// Options configures cross-node fan-out. Both transports are optional.
type Options struct {
	Redis   *redis.Client
	NATS    *nats.Conn
	Channel string
}

type feed struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	decoder      *EventDecoder
	broker       *broker
	seen         *recentIDs
	nodeID       string
	logger       zerolog.Logger
	now          func() time.Time
}

type broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]Filter
}

// NewFeed constructs the change feed.
func NewFeed(opts Options, logger zerolog.Logger) (Feed, error) {
	decoder, err := NewEventDecoder()
	if err != nil {
		return nil, err
	}

	channel := strings.TrimSpace(opts.Channel)
	if channel == "" {
		channel = "roommate"
	}

	return &feed{
		redis:        opts.Redis,
		redisChannel: channel + ":changes",
		nats:         opts.NATS,
		natsSubject:  strings.ReplaceAll(channel, ":", ".") + ".changes",
		decoder:      decoder,
		broker:       &broker{subscribers: make(map[chan Event]Filter)},
		seen:         newRecentIDs(recentEventWindow),
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "realtime_feed").Logger(),
		now:          time.Now,
	}, nil
}

func (f *feed) Start(ctx context.Context) {
	if f.redis != nil {
		go f.consumeRedis(ctx)
	}
	if f.nats != nil {
		go f.consumeNATS(ctx)
	}
}

func (f *feed) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = f.now().UTC()
	}
	event.Source = f.nodeID

	f.broker.broadcast(event)
	observability.RealtimeEventsPublished().WithLabelValues(event.Table, "local").Inc()

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if f.redis != nil {
		if err := f.redis.Publish(ctx, f.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.nats != nil {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (f *feed) Subscribe(filter Filter) (<-chan Event, func()) {
	channel := make(chan Event, subscriberBufferSize)
	f.broker.subscribe(channel, filter)
	observability.RealtimeSubscribers().Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.broker.unsubscribe(channel)
			observability.RealtimeSubscribers().Dec()
		})
	}

	return channel, cancel
}

func (f *feed) consumeRedis(ctx context.Context) {
	pubsub := f.redis.Subscribe(ctx, f.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			f.logger.Error().Err(err).Msg("change feed redis subscription closed")
			return
		}
		f.handleRemote([]byte(msg.Payload), "redis")
	}
}

func (f *feed) consumeNATS(ctx context.Context) {
	sub, err := f.nats.Subscribe(f.natsSubject, func(msg *nats.Msg) {
		f.handleRemote(msg.Data, "nats")
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to nats change subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain change feed nats subscription")
		}
	}()
}

// handleRemote delivers an event received from another node. Own echoes are dropped and an
// event arriving over both transports is delivered once.
func (f *feed) handleRemote(payload []byte, transport string) {
	event, err := f.decoder.Decode(payload)
	if err != nil {
		observability.RealtimeEventsRejected().WithLabelValues(transport).Inc()
		f.logger.Warn().Err(err).Str("transport", transport).Msg("dropping invalid change event")
		return
	}

	if event.Source == f.nodeID || !f.seen.add(event.ID) {
		return
	}

	observability.RealtimeEventsPublished().WithLabelValues(event.Table, transport).Inc()
	f.broker.broadcast(event)
}

func (b *broker) subscribe(ch chan Event, filter Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = filter
}

func (b *broker) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *broker) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, filter := range b.subscribers {
		if !filter.Matches(event) {
			continue
		}
		select {
		case ch <- event:
		default:
		}
	}
}

type recentIDs struct {
	mu    sync.Mutex
	index map[string]struct{}
	ring  []string
	next  int
}

func newRecentIDs(size int) *recentIDs {
	return &recentIDs{index: make(map[string]struct{}, size), ring: make([]string, size)}
}

// add records id and reports whether it was not seen within the window.
func (r *recentIDs) add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return false
	}
	if evicted := r.ring[r.next]; evicted != "" {
		delete(r.index, evicted)
	}
	r.ring[r.next] = id
	r.index[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
	return true
}
