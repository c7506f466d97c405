// Package wire encodes push registration requests as the register endpoint's form body and
// parses its line-oriented key=value replies.
package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// UserAgent is sent with every registration request.
const UserAgent = "Android-GCM/1.5"

var (
	// ErrMissingApp is returned when a request has no app package name.
	ErrMissingApp = errors.New("wire: register request requires app")
	// ErrNotCheckedIn is returned when a request has no device id.
	ErrNotCheckedIn = errors.New("wire: register request requires a checked-in device")
)

// RegisterRequest carries everything the register endpoint needs for one app/sender pair.
type RegisterRequest struct {
	App             string
	SignatureDigest string
	VersionCode     int32
	Sender          string
	// Info is optional sender info; omitted when empty.
	Info          string
	DeviceID      int64
	SecurityToken uint64
}

// RegisterResponse holds exactly one of Token or Error.
type RegisterResponse struct {
	Token string
	Error string
}

// DecodeError reports a register reply that carries neither a token nor an error code.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode register response %q: %v", e.Body, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var errNoResult = errors.New("neither token nor Error present")

// EncodeRegisterRequest returns the urlencoded form body and the headers that authenticate it.
func EncodeRegisterRequest(r *RegisterRequest) ([]byte, http.Header, error) {
	if r == nil || r.App == "" {
		return nil, nil, ErrMissingApp
	}
	if r.DeviceID == 0 {
		return nil, nil, ErrNotCheckedIn
	}
	device := strconv.FormatInt(r.DeviceID, 10)
	form := url.Values{}
	form.Set("app", r.App)
	form.Set("app_ver", strconv.FormatInt(int64(r.VersionCode), 10))
	if r.SignatureDigest != "" {
		form.Set("cert", r.SignatureDigest)
	}
	form.Set("device", device)
	form.Set("sender", r.Sender)
	if r.Info != "" {
		form.Set("info", r.Info)
	}

	h := http.Header{}
	h.Set("Authorization", "AidLogin "+device+":"+strconv.FormatUint(r.SecurityToken, 10))
	h.Set("app", r.App)
	h.Set("User-Agent", UserAgent)
	return []byte(form.Encode()), h, nil
}

// DecodeRegisterResponse parses key=value lines. Unknown keys are ignored; if both token and
// Error are present the error wins.
func DecodeRegisterResponse(b []byte) (*RegisterResponse, error) {
	var resp RegisterResponse
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "token":
			resp.Token = value
		case "Error":
			resp.Error = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &DecodeError{Body: string(b), Err: err}
	}
	if resp.Error != "" {
		return &RegisterResponse{Error: resp.Error}, nil
	}
	if resp.Token == "" {
		return nil, &DecodeError{Body: string(b), Err: errNoResult}
	}
	return &resp, nil
}
