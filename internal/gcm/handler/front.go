// Package handler is the entry point for register and unregister intents: it resolves the
// calling app, dispatches to the registration service and delivers the result.
package handler

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"device-checkin/internal/gcm/domain"
	"device-checkin/internal/gcm/notify"
	"device-checkin/internal/gcm/policy"
	"device-checkin/internal/gcm/service"
	"device-checkin/internal/telemetry"
)

var (
	// ErrQueueFull is returned by Submit when the intent queue has no free slot.
	ErrQueueFull = errors.New("handler: intent queue full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("handler: front stopped")
)

// AppResolver turns a caller capability into the app identity it was issued for.
type AppResolver interface {
	Resolve(ctx context.Context, caller string) (domain.AppIdentity, error)
}

// SenderPolicy decides whether an app may register for a sender.
type SenderPolicy interface {
	Evaluate(ctx context.Context, app domain.AppIdentity, sender string) (policy.Decision, error)
}

// Registrar performs registrations. *service.Service implements it.
type Registrar interface {
	Register(ctx context.Context, app domain.AppIdentity, sender, senderInfo string) (string, error)
	Unregister(ctx context.Context, app domain.AppIdentity) error
}

// Intent is one inbound request. Reply is optional; without it the result is broadcast.
type Intent struct {
	ID         string
	Action     string
	Sender     string
	SenderInfo string
	Caller     string
	Reply      notify.ReplyChannel
}

type action int

const (
	actionIgnored action = iota
	actionRegister
	actionUnregister
)

func parseAction(s string) action {
	switch {
	case strings.EqualFold(s, domain.ActionRegister), strings.EqualFold(s, "register"):
		return actionRegister
	case strings.EqualFold(s, domain.ActionUnregister), strings.EqualFold(s, "unregister"):
		return actionUnregister
	}
	return actionIgnored
}

func (a action) String() string {
	switch a {
	case actionRegister:
		return "register"
	case actionUnregister:
		return "unregister"
	}
	return "ignored"
}

// Front handles intents. It never lets an error or panic escape to the caller.
type Front struct {
	registrar   Registrar
	resolver    AppResolver
	policy      SenderPolicy
	broadcaster notify.Broadcaster

	queue   chan Intent
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// NewFront returns a front with a queue of queueSize intents. policy may be nil (allow all).
func NewFront(registrar Registrar, resolver AppResolver, policy SenderPolicy, broadcaster notify.Broadcaster, queueSize int) *Front {
	if broadcaster == nil {
		broadcaster = notify.LogBroadcaster{}
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Front{
		registrar:   registrar,
		resolver:    resolver,
		policy:      policy,
		broadcaster: broadcaster,
		queue:       make(chan Intent, queueSize),
	}
}

// Start launches workers that drain the queue until Stop is called.
func (f *Front) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			for in := range f.queue {
				f.Handle(ctx, in)
			}
		}()
	}
}

// Submit enqueues an intent without blocking.
func (f *Front) Submit(in Intent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.stopped {
		return ErrStopped
	}
	select {
	case f.queue <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued intents to finish.
func (f *Front) Stop() {
	f.mu.Lock()
	if !f.stopped {
		f.stopped = true
		close(f.queue)
	}
	f.mu.Unlock()
	f.wg.Wait()
}

// Handle processes one intent to completion.
func (f *Front) Handle(ctx context.Context, in Intent) {
	act := parseAction(in.Action)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handler: intent %s (%s) panicked: %v", in.ID, act, r)
			telemetry.RecordIntent(act.String(), "dropped")
		}
	}()
	if act == actionIgnored {
		log.Printf("handler: intent %s ignored: unknown action %q", in.ID, in.Action)
		telemetry.RecordIntent(act.String(), "ignored")
		return
	}

	app, err := f.resolver.Resolve(ctx, in.Caller)
	if err != nil {
		log.Printf("handler: intent %s: resolve caller: %v", in.ID, err)
		f.deliver(ctx, act, in, "", domain.Payload{Action: domain.ActionRegistration, IntentID: in.ID, Error: domain.ErrCodeAuthFailed})
		return
	}

	var payload domain.Payload
	switch act {
	case actionRegister:
		payload = f.register(ctx, in, app)
	case actionUnregister:
		payload = f.unregister(ctx, in, app)
	}
	f.deliver(ctx, act, in, app.PackageName, payload)
}

func (f *Front) register(ctx context.Context, in Intent, app domain.AppIdentity) domain.Payload {
	payload := domain.Payload{Action: domain.ActionRegistration, Package: app.PackageName, IntentID: in.ID}
	if f.policy != nil {
		d, err := f.policy.Evaluate(ctx, app, in.Sender)
		switch {
		case err != nil:
			log.Printf("handler: intent %s: sender policy evaluation failed: %v, allowing", in.ID, err)
		case !d.Allowed:
			payload.Error = domain.ErrCodeInvalidSender
			return payload
		}
	}
	token, err := f.registrar.Register(ctx, app, in.Sender, in.SenderInfo)
	if err != nil {
		log.Printf("handler: intent %s: register %s: %v", in.ID, app.PackageName, err)
		if code, ok := service.ErrorCode(err); ok && code != "" {
			payload.Error = code
			return payload
		}
	}
	if token == "" {
		payload.Error = domain.ErrCodeServiceNotAvailable
		return payload
	}
	payload.RegistrationID = token
	return payload
}

func (f *Front) unregister(ctx context.Context, in Intent, app domain.AppIdentity) domain.Payload {
	payload := domain.Payload{Action: domain.ActionRegistration, Package: app.PackageName, IntentID: in.ID}
	if err := f.registrar.Unregister(ctx, app); err != nil {
		log.Printf("handler: intent %s: unregister %s: %v", in.ID, app.PackageName, err)
		payload.Error = domain.ErrCodeServiceNotAvailable
		return payload
	}
	payload.Unregistered = true
	return payload
}

// deliver prefers the intent's reply channel and falls back to broadcast when it is absent or
// fails. Without a resolved target the broadcast is skipped.
func (f *Front) deliver(ctx context.Context, act action, in Intent, target string, payload domain.Payload) {
	if in.Reply != nil {
		err := in.Reply.Reply(ctx, payload)
		if err == nil {
			telemetry.RecordIntent(act.String(), "reply")
			return
		}
		log.Printf("handler: intent %s: reply failed: %v, falling back to broadcast", in.ID, err)
	}
	if target == "" {
		log.Printf("handler: intent %s: no reply channel and no target, dropping result", in.ID)
		telemetry.RecordIntent(act.String(), "dropped")
		return
	}
	if err := f.broadcaster.Broadcast(ctx, target, payload); err != nil {
		log.Printf("handler: intent %s: broadcast failed: %v", in.ID, err)
		telemetry.RecordIntent(act.String(), "dropped")
		return
	}
	telemetry.RecordIntent(act.String(), "broadcast")
}

var _ Registrar = (*service.Service)(nil)
