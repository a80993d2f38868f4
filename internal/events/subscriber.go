package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Handler func(ctx context.Context, event Event) error

// StreamClient is the subset of the redis client a Subscriber needs.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

type Subscriber struct {
	client        StreamClient
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	retryInterval time.Duration
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	// RetryInterval is both how often pending messages are reclaimed and
	// how long a message must sit unacknowledged before it is retried.
	RetryInterval time.Duration
}

func NewSubscriber(client StreamClient, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = 30 * time.Second
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryInterval: config.RetryInterval,
	}
}

// Start blocks until ctx is cancelled. Messages whose handler fails stay
// pending and are claimed again once they have been idle for RetryInterval,
// including those left behind by a consumer that went away.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("Subscriber started: stream=%s, group=%s, consumer=%s", s.stream, s.group, s.consumer)

	var nextClaim time.Time
	for {
		select {
		case <-ctx.Done():
			log.Printf("Subscriber stopping: %s", s.stream)
			return ctx.Err()
		default:
			if now := time.Now(); !now.Before(nextClaim) {
				nextClaim = now.Add(s.retryInterval)
				if err := s.claimPending(ctx); err != nil && ctx.Err() == nil {
					log.Printf("Error reclaiming pending messages on %s: %v", s.stream, err)
				}
			}
			if err := s.readMessages(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("Error reading %s: %v", s.stream, err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			s.process(ctx, message)
		}
	}

	return nil
}

// claimPending takes over messages that have been pending for at least
// retryInterval and runs them through the handler again.
func (s *Subscriber) claimPending(ctx context.Context) error {
	start := "0-0"
	for {
		messages, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.retryInterval,
			Start:    start,
			Count:    s.batchSize,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim pending messages: %w", err)
		}

		for _, message := range messages {
			s.process(ctx, message)
		}
		if len(messages) == 0 || next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
}

func (s *Subscriber) process(ctx context.Context, message redis.XMessage) {
	event, err := decodeMessage(message)
	if err != nil {
		// Malformed entries can never succeed; ack them so they do not pile up.
		log.Printf("Dropping message %s: %v", message.ID, err)
		s.ack(ctx, message.ID)
		return
	}
	if err := s.handler(ctx, event); err != nil {
		log.Printf("Failed to process message %s (%s): %v", message.ID, event.Type, err)
		return
	}
	s.ack(ctx, message.ID)
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		log.Printf("Failed to ACK message %s: %v", id, err)
	}
}

func decodeMessage(message redis.XMessage) (Event, error) {
	var event Event
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return event, fmt.Errorf("invalid message format")
	}
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	event.ID = message.ID
	return event, nil
}
