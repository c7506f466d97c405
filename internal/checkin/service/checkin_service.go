// Package service implements the check-in orchestrator: it builds requests from device facts and
// the stored identity, runs the exchange, and writes the resulting identity through to storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"device-checkin/internal/checkin/domain"
	"device-checkin/internal/checkin/repository"
	"device-checkin/internal/checkin/wire"
	"device-checkin/internal/telemetry"
)

// ErrCheckinFailed matches every error returned by a failed check-in exchange.
var ErrCheckinFailed = errors.New("checkin failed")

// CheckinFailedError wraps the transport or codec error that failed a check-in.
// The stored identity is never modified when this error is returned.
type CheckinFailedError struct {
	Err error
}

func (e *CheckinFailedError) Error() string {
	return fmt.Sprintf("checkin failed: %v", e.Err)
}

func (e *CheckinFailedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCheckinFailed) true for every CheckinFailedError.
func (e *CheckinFailedError) Is(target error) bool {
	return target == ErrCheckinFailed
}

// Transport sends an encoded check-in request and returns the encoded response.
type Transport interface {
	Checkin(ctx context.Context, body []byte) ([]byte, error)
}

// Service runs check-ins and owns all writes of the device identity. A single mutex serializes
// load-exchange-save so concurrent check-ins cannot break the device-id/token pairing.
type Service struct {
	repo      repository.Repository
	facts     domain.FactsProvider
	transport Transport
	emitter   telemetry.EventEmitter
	nowF      func() time.Time

	mu sync.Mutex
}

// NewService returns a check-in service. emitter may be nil.
func NewService(repo repository.Repository, facts domain.FactsProvider, transport Transport, emitter telemetry.EventEmitter) *Service {
	return &Service{
		repo:      repo,
		facts:     facts,
		transport: transport,
		emitter:   emitter,
		nowF:      time.Now,
	}
}

// Current returns the stored identity without contacting the server.
func (s *Service) Current(ctx context.Context) (domain.DeviceIdentity, error) {
	return s.repo.Load(ctx)
}

// Run checks in with the stored identity and persists the result. The exchange is detached from
// ctx cancellation: a caller that gives up does not roll back an identity the server already issued.
func (s *Service) Run(ctx context.Context, creds []domain.AccountCredential) (domain.DeviceIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runLocked(context.WithoutCancel(ctx), creds)
}

// EnsureIdentity returns the stored identity, running a bootstrap check-in first if the device has
// never checked in. Concurrent callers trigger at most one check-in.
func (s *Service) EnsureIdentity(ctx context.Context) (domain.DeviceIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.repo.Load(ctx)
	if err != nil {
		return domain.DeviceIdentity{}, fmt.Errorf("load identity: %w", err)
	}
	if id.IsSet() {
		return id, nil
	}
	return s.runLocked(context.WithoutCancel(ctx), nil)
}

func (s *Service) runLocked(ctx context.Context, creds []domain.AccountCredential) (domain.DeviceIdentity, error) {
	prev, err := s.repo.Load(ctx)
	if err != nil {
		return domain.DeviceIdentity{}, fmt.Errorf("load identity: %w", err)
	}
	facts, err := s.facts.Facts(ctx)
	if err != nil {
		return prev, fmt.Errorf("device facts: %w", err)
	}
	next, _, err := s.Checkin(ctx, facts, prev, creds)
	if err != nil {
		return prev, err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return prev, fmt.Errorf("save identity: %w", err)
	}
	log.Printf("checkin: device %d checked in (authenticated=%t)", next.DeviceID, next.Authenticated())
	return next, nil
}

// Checkin performs one exchange and returns the identity folded from the response. It does not
// persist anything; on error the returned identity is id unchanged.
func (s *Service) Checkin(ctx context.Context, facts domain.DeviceFacts, id domain.DeviceIdentity, creds []domain.AccountCredential) (domain.DeviceIdentity, *wire.CheckinResponse, error) {
	mode := "bootstrap"
	if id.Authenticated() {
		mode = "authenticated"
	}
	ctx, span := otel.Tracer("device-checkin/checkin").Start(ctx, "checkin.Checkin")
	defer span.End()
	span.SetAttributes(attribute.String("checkin.mode", mode))
	start := s.nowF()

	resp, err := s.exchange(ctx, BuildRequest(facts, id, creds))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkin failed")
		telemetry.RecordCheckin(mode, "error", s.nowF().Sub(start))
		s.emit(ctx, id.DeviceID, "error")
		return id, nil, &CheckinFailedError{Err: err}
	}
	next := Fold(id, resp, s.nowF())
	telemetry.RecordCheckin(mode, "ok", s.nowF().Sub(start))
	s.emit(ctx, next.DeviceID, "ok")
	return next, resp, nil
}

func (s *Service) exchange(ctx context.Context, req *wire.CheckinRequest) (*wire.CheckinResponse, error) {
	body, err := wire.MarshalCheckinRequest(req)
	if err != nil {
		return nil, err
	}
	raw, err := s.transport.Checkin(ctx, body)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalCheckinResponse(raw)
}

func (s *Service) emit(ctx context.Context, deviceID int64, outcome string) {
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type:     telemetry.EventCheckin,
		Source:   "checkin_service",
		Outcome:  outcome,
		DeviceID: deviceID,
	})
}

// Fold applies a check-in response to prev. A response carrying a device id different from prev's
// is an identity reset: device id and security token are replaced together, the token becoming 0
// if the response has none. With the same (or no) device id, a returned token replaces the old one.
// A token without any device id is ignored. Digest is adopted when present; the check-in time is
// always recorded.
func Fold(prev domain.DeviceIdentity, resp *wire.CheckinResponse, now time.Time) domain.DeviceIdentity {
	next := prev
	switch {
	case resp.AndroidID != nil && *resp.AndroidID != 0 && int64(*resp.AndroidID) != prev.DeviceID:
		next.DeviceID = int64(*resp.AndroidID)
		next.SecurityToken = 0
		if resp.SecurityToken != nil {
			next.SecurityToken = *resp.SecurityToken
		}
	case resp.SecurityToken != nil && prev.DeviceID != 0:
		next.SecurityToken = *resp.SecurityToken
	}
	if resp.Digest != nil {
		next.Digest = *resp.Digest
	}
	next.LastCheckinMs = now.UnixMilli()
	return next
}
