package domain

import "errors"

// Error codes delivered to callers in the {error} payload. Codes returned by the register
// endpoint are passed through as-is; these are the ones produced locally.
const (
	ErrCodeServiceNotAvailable = "SERVICE_NOT_AVAILABLE"
	ErrCodeInvalidSender       = "INVALID_SENDER"
	ErrCodeInvalidParameters   = "INVALID_PARAMETERS"
	ErrCodeAuthFailed          = "AUTHENTICATION_FAILED"
)

// knownErrorCodes are the codes the register endpoint is documented to return.
var knownErrorCodes = map[string]bool{
	ErrCodeServiceNotAvailable: true,
	ErrCodeInvalidSender:       true,
	ErrCodeInvalidParameters:   true,
	ErrCodeAuthFailed:          true,
	"ACCOUNT_MISSING":          true,
	"PHONE_REGISTRATION_ERROR": true,
	"TOO_MANY_REGISTRATIONS":   true,
}

// KnownErrorCode reports whether code is one of the documented registration error codes.
func KnownErrorCode(code string) bool {
	return knownErrorCodes[code]
}

// Intent actions accepted by the front. Matching is case-insensitive.
const (
	ActionRegister     = "com.google.android.c2dm.intent.REGISTER"
	ActionUnregister   = "com.google.android.c2dm.intent.UNREGISTER"
	ActionRegistration = "com.google.android.c2dm.intent.REGISTRATION"
)

// ErrInvalidApp is returned when an app identity lacks a package name.
var ErrInvalidApp = errors.New("app identity requires a package name")

// AppIdentity identifies the requesting application as resolved from its caller capability.
type AppIdentity struct {
	PackageName     string
	SignatureDigest string
	VersionCode     int32
}

// Validate checks the fields the register endpoint requires.
func (a AppIdentity) Validate() error {
	if a.PackageName == "" {
		return ErrInvalidApp
	}
	return nil
}

// Payload is what the caller receives: exactly one of RegistrationID or Error is set.
type Payload struct {
	Action         string `json:"action"`
	Package        string `json:"package,omitempty"`
	IntentID       string `json:"intent_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	Error          string `json:"error,omitempty"`
	Unregistered   bool   `json:"unregistered,omitempty"`
}

// OK reports whether the payload carries a registration id or a successful unregistration.
func (p Payload) OK() bool {
	return p.Error == "" && (p.RegistrationID != "" || p.Unregistered)
}
