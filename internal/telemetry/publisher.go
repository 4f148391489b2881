package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/leaderboard"
)

const (
	DefaultTopic  = "trivia.events"
	defaultBuffer = 256
)

// Lifecycle events forwarded to the event log. Ticks and per-question
// renders stay local.
var forwarded = map[app.EventType]bool{
	app.EventGameStarted:    true,
	app.EventAnswered:       true,
	app.EventHelperApplied:  true,
	app.EventLevelCompleted: true,
	app.EventGameOver:       true,
	leaderboard.EventLoaded: true,
}

type Config struct {
	Brokers []string
	Topic   string
	Buffer  int
}

// Publisher forwards lifecycle events to Kafka, or to an in-process channel
// when no brokers are configured. Publish never blocks: events are buffered
// and dropped when the buffer is full, and publish failures are only logged.
type Publisher struct {
	pub     message.Publisher
	local   *gochannel.GoChannel
	topic   string
	log     zerolog.Logger
	dropped atomic.Int64

	mu       sync.RWMutex
	closed   bool
	queue    chan app.Event
	finished chan struct{}
}

func NewPublisher(cfg Config, log zerolog.Logger) (*Publisher, error) {
	log = log.With().Str("component", "telemetry").Logger()
	wmLogger := NewLoggerAdapter(log)
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}

	p := &Publisher{
		topic:    cfg.Topic,
		log:      log,
		queue:    make(chan app.Event, cfg.Buffer),
		finished: make(chan struct{}),
	}
	if len(cfg.Brokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		p.pub = pub
	} else {
		p.local = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(cfg.Buffer)}, wmLogger)
		p.pub = p.local
	}

	go p.run()
	return p, nil
}

// Publish implements app.EventSink.
func (p *Publisher) Publish(e app.Event) {
	if !forwarded[e.Type] {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.dropped.Add(1)
	}
}

// Subscribe streams published events when running without Kafka.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if p.local == nil {
		return nil, fmt.Errorf("subscribe: events are published to kafka topic %s", p.topic)
	}
	return p.local.Subscribe(ctx, p.topic)
}

// Dropped counts events lost to a full buffer.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close flushes buffered events and closes the underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.finished
	return p.pub.Close()
}

func (p *Publisher) run() {
	defer close(p.finished)
	for e := range p.queue {
		p.send(e)
	}
}

func (p *Publisher) send(e app.Event) {
	raw, err := json.Marshal(e)
	if err != nil {
		p.log.Debug().Err(err).Str("event_type", string(e.Type)).Msg("encode event failed")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	msg.Metadata.Set("event_type", string(e.Type))
	msg.Metadata.Set("session_id", e.SessionID)
	msg.Metadata.Set("timestamp", e.At.Format(time.RFC3339))
	if err := p.pub.Publish(p.topic, msg); err != nil {
		p.log.Debug().Err(err).Str("event_type", string(e.Type)).Msg("publish event failed")
	}
}

// LogStream writes every message from msgs to log at debug level until msgs
// closes or ctx is done.
func LogStream(ctx context.Context, msgs <-chan *message.Message, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			log.Debug().
				Str("event_type", msg.Metadata.Get("event_type")).
				Str("session_id", msg.Metadata.Get("session_id")).
				RawJSON("event", msg.Payload).
				Msg("telemetry event")
			msg.Ack()
		}
	}
}
