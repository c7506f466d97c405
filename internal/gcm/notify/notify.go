// Package notify delivers registration results back to the requesting app, either through a
// one-shot reply channel supplied with the request or by broadcast.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"device-checkin/internal/gcm/domain"
)

// ErrAlreadyReplied is returned when a one-shot reply channel is used twice.
var ErrAlreadyReplied = errors.New("notify: reply already delivered")

// ReplyChannel delivers a payload directly to the requester.
type ReplyChannel interface {
	Reply(ctx context.Context, payload domain.Payload) error
}

// Broadcaster delivers a payload to whoever listens for target (the app package).
type Broadcaster interface {
	Broadcast(ctx context.Context, target string, payload domain.Payload) error
}

// Envelope is the broadcast wire form.
type Envelope struct {
	Target    string         `json:"target"`
	Payload   domain.Payload `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Marshal returns the JSON encoding of a broadcast for target.
func Marshal(target string, payload domain.Payload) ([]byte, error) {
	return json.Marshal(Envelope{Target: target, Payload: payload, CreatedAt: time.Now().UTC()})
}

// ErrNoTarget is returned by Unmarshal for an envelope without a target package.
var ErrNoTarget = errors.New("notify: broadcast has no target")

// Unmarshal decodes a broadcast envelope. Envelopes without a target are rejected with
// ErrNoTarget since no app can receive them.
func Unmarshal(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("notify: decode broadcast: %w", err)
	}
	if env.Target == "" {
		return env, ErrNoTarget
	}
	return env, nil
}

// OneShot is a ReplyChannel that accepts a single payload and hands it to one waiter.
type OneShot struct {
	once sync.Once
	ch   chan domain.Payload
}

// NewOneShot returns an empty one-shot reply channel.
func NewOneShot() *OneShot {
	return &OneShot{ch: make(chan domain.Payload, 1)}
}

// Reply stores payload. It never blocks; only the first call succeeds.
func (o *OneShot) Reply(ctx context.Context, payload domain.Payload) error {
	err := ErrAlreadyReplied
	o.once.Do(func() {
		o.ch <- payload
		err = nil
	})
	return err
}

// Wait blocks until a payload arrives or ctx is done.
func (o *OneShot) Wait(ctx context.Context) (domain.Payload, error) {
	select {
	case p := <-o.ch:
		return p, nil
	case <-ctx.Done():
		return domain.Payload{}, ctx.Err()
	}
}

// ReplyFunc adapts a function to ReplyChannel.
type ReplyFunc func(ctx context.Context, payload domain.Payload) error

func (f ReplyFunc) Reply(ctx context.Context, payload domain.Payload) error {
	return f(ctx, payload)
}

// LogBroadcaster writes broadcasts to the process log. Used when no broker is configured.
type LogBroadcaster struct{}

func (LogBroadcaster) Broadcast(ctx context.Context, target string, payload domain.Payload) error {
	b, err := Marshal(target, payload)
	if err != nil {
		return err
	}
	log.Printf("notify: broadcast %s", b)
	return nil
}
