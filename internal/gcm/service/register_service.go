// Package service obtains push registration tokens for apps using the device's checked-in identity.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	checkindomain "device-checkin/internal/checkin/domain"
	"device-checkin/internal/gcm/domain"
	"device-checkin/internal/gcm/wire"
	"device-checkin/internal/telemetry"
)

// RegistrationFailedError is returned when the register endpoint answers with an error code.
type RegistrationFailedError struct {
	Code string
}

func (e *RegistrationFailedError) Error() string {
	return "registration failed: " + e.Code
}

// ErrorCode returns the server-supplied reason if err is a RegistrationFailedError.
func ErrorCode(err error) (string, bool) {
	var rf *RegistrationFailedError
	if errors.As(err, &rf) {
		return rf.Code, true
	}
	return "", false
}

// IdentitySource returns the checked-in identity, checking in first when needed.
type IdentitySource interface {
	EnsureIdentity(ctx context.Context) (checkindomain.DeviceIdentity, error)
}

// Transport sends an encoded registration form.
type Transport interface {
	Register(ctx context.Context, body []byte, header http.Header) ([]byte, error)
}

// Service is safe for concurrent use by multiple apps.
type Service struct {
	identity  IdentitySource
	transport Transport
	emitter   telemetry.EventEmitter
}

// NewService returns a registration service. emitter may be nil.
func NewService(identity IdentitySource, transport Transport, emitter telemetry.EventEmitter) *Service {
	return &Service{identity: identity, transport: transport, emitter: emitter}
}

// Register returns a push token for app and sender. There is no retry and no de-duplication;
// repeated calls each reach the server.
func (s *Service) Register(ctx context.Context, app domain.AppIdentity, sender, senderInfo string) (string, error) {
	ctx, span := otel.Tracer("device-checkin/gcm").Start(ctx, "gcm.Register")
	defer span.End()
	span.SetAttributes(attribute.String("gcm.app", app.PackageName), attribute.String("gcm.sender", sender))
	start := time.Now()

	token, err := s.register(ctx, app, sender, senderInfo)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if code, ok := ErrorCode(err); ok {
			outcome = code
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "register failed")
	}
	telemetry.RecordRegistration(metricOutcome(outcome), time.Since(start))
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type:    telemetry.EventRegister,
		Source:  "gcm_service",
		Outcome: outcome,
		App:     app.PackageName,
		Sender:  sender,
	})
	return token, err
}

// metricOutcome bounds the outcome label: server codes outside the documented set become "other".
func metricOutcome(outcome string) string {
	switch {
	case outcome == "ok", outcome == "error", domain.KnownErrorCode(outcome):
		return outcome
	}
	return "other"
}

func (s *Service) register(ctx context.Context, app domain.AppIdentity, sender, senderInfo string) (string, error) {
	if err := app.Validate(); err != nil {
		return "", err
	}
	id, err := s.identity.EnsureIdentity(ctx)
	if err != nil {
		return "", fmt.Errorf("ensure identity: %w", err)
	}
	body, header, err := wire.EncodeRegisterRequest(&wire.RegisterRequest{
		App:             app.PackageName,
		SignatureDigest: app.SignatureDigest,
		VersionCode:     app.VersionCode,
		Sender:          sender,
		Info:            senderInfo,
		DeviceID:        id.DeviceID,
		SecurityToken:   id.SecurityToken,
	})
	if err != nil {
		return "", err
	}
	raw, err := s.transport.Register(ctx, body, header)
	if err != nil {
		return "", fmt.Errorf("register %s: %w", app.PackageName, err)
	}
	resp, err := wire.DecodeRegisterResponse(raw)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &RegistrationFailedError{Code: resp.Error}
	}
	return resp.Token, nil
}

// Unregister accepts the request and returns nil. No server-side unregistration is performed;
// the app's token stays valid until the server expires it.
func (s *Service) Unregister(ctx context.Context, app domain.AppIdentity) error {
	log.Printf("gcm: unregister for %s accepted; no server-side unregistration is performed", app.PackageName)
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type:    telemetry.EventUnregister,
		Source:  "gcm_service",
		Outcome: "noop",
		App:     app.PackageName,
	})
	return nil
}
