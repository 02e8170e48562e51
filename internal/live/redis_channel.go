package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/partnest/sparesync/pkg/logger"
)

const defaultBufferSize = 16

type pubsubClient interface {
	Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error)
	LiveChannel(class, userID string, qualifiers ...string) string
}

// RedisChannel opens streams on Redis pub/sub.
type RedisChannel struct {
	client pubsubClient
	buffer int
	logg   *logger.Logger
}

// NewRedisChannel builds a Channel on top of client, usually *redis.Client.
func NewRedisChannel(client pubsubClient, buffer int, logg *logger.Logger) (*RedisChannel, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisChannel{client: client, buffer: buffer, logg: logg}, nil
}

// Name returns the pub/sub channel for topic.
func (c *RedisChannel) Name(topic Topic) string {
	return c.client.LiveChannel(topic.Class.String(), topic.UserID.String(), topic.Qualifiers()...)
}

// Open subscribes to topic's channel.
func (c *RedisChannel) Open(ctx context.Context, topic Topic) (Stream, error) {
	if err := topic.Validate(); err != nil {
		return nil, err
	}
	name := c.Name(topic)
	ps, err := c.client.Subscribe(ctx, name)
	if err != nil {
		return nil, err
	}
	logCtx := c.logg.WithFields(ctx, map[string]any{"channel": name, "class": topic.Class.String()})
	return newMessageStream(topic, ps.Channel(), ps.Close, c.buffer, c.logg, logCtx), nil
}

// messageStream adapts a go-redis message channel into a Stream.
type messageStream struct {
	topic    Topic
	out      chan Snapshot
	done     chan struct{}
	finished chan struct{}
	closer   func() error
	once     sync.Once
	closeErr error
}

func newMessageStream(topic Topic, msgs <-chan *goredis.Message, closer func() error, buffer int, logg *logger.Logger, logCtx context.Context) *messageStream {
	if logg == nil {
		logg = logger.Nop()
	}
	s := &messageStream{
		topic:    topic,
		out:      make(chan Snapshot, buffer),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		closer:   closer,
	}
	go s.pump(msgs, logg, logCtx)
	return s
}

func (s *messageStream) pump(msgs <-chan *goredis.Message, logg *logger.Logger, logCtx context.Context) {
	defer close(s.finished)
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logg.Warn(logg.WithField(logCtx, "error", err.Error()), "live.decode.failed")
				continue
			}
			if env.Class != s.topic.Class {
				logg.Warn(logg.WithField(logCtx, "payload_class", env.Class.String()), "live.class.mismatch")
				continue
			}
			snap := Snapshot{Class: env.Class, Data: env.Data, ReceivedAt: time.Now()}
			select {
			case s.out <- snap:
			case <-s.done:
				return
			}
		}
	}
}

func (s *messageStream) Snapshots() <-chan Snapshot {
	return s.out
}

func (s *messageStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			s.closeErr = s.closer()
		}
		<-s.finished
	})
	return s.closeErr
}
