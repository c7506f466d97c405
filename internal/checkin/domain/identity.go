package domain

import "errors"

// ErrInvalidIdentity is returned when an identity violates the device-id/security-token pairing.
var ErrInvalidIdentity = errors.New("security token set without device id")

// DeviceIdentity is the persisted, server-assigned identity of this device.
// It is a value type; callers replace it wholesale rather than mutating fields in place.
type DeviceIdentity struct {
	// DeviceID is the server-assigned android id; 0 until the first successful check-in.
	DeviceID int64
	// SecurityToken is granted by the server; once non-zero every check-in is authenticated.
	SecurityToken uint64
	// Digest is echoed back on the next check-in so the server can compute deltas.
	Digest string
	// LastCheckinMs is the wall-clock time (ms) of the last successful check-in; 0 initially.
	LastCheckinMs int64
}

// IsSet reports whether the device has completed at least one check-in.
func (d DeviceIdentity) IsSet() bool {
	return d.DeviceID != 0
}

// Authenticated reports whether check-ins should run in authenticated (fragment=1) mode.
func (d DeviceIdentity) Authenticated() bool {
	return d.SecurityToken != 0
}

// Validate enforces that a security token never exists without a device id.
func (d DeviceIdentity) Validate() error {
	if d.SecurityToken != 0 && d.DeviceID == 0 {
		return ErrInvalidIdentity
	}
	return nil
}

// AccountCredential is an (account name, auth token) pair passed to the server untouched.
type AccountCredential struct {
	Name      string
	AuthToken string
}
