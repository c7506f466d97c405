package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"

	checkindomain "device-checkin/internal/checkin/domain"
	"device-checkin/internal/checkin/facts"
	"device-checkin/internal/checkin/repository"
	checkinservice "device-checkin/internal/checkin/service"
	checkinwire "device-checkin/internal/checkin/wire"
	"device-checkin/internal/gcm/domain"
	"device-checkin/internal/transport"
)

// fakeServer answers both check-in and register calls and records what it saw.
type fakeServer struct {
	mu           sync.Mutex
	checkins     int
	registers    []url.Values
	headers      []http.Header
	registerBody string
	registerErr  error
	checkinResp  *checkinwire.CheckinResponse
}

func (f *fakeServer) Checkin(ctx context.Context, body []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkins++
	return checkinwire.MarshalCheckinResponse(f.checkinResp)
}

func (f *fakeServer) Register(ctx context.Context, body []byte, header http.Header) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	f.registers = append(f.registers, form)
	f.headers = append(f.headers, header)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return []byte(f.registerBody), nil
}

var testApp = domain.AppIdentity{
	PackageName:     "com.example.chat",
	SignatureDigest: "38918a453d07199354f8b19af05ec6562ced5788",
	VersionCode:     7,
}

func newStack(t *testing.T, initial checkindomain.DeviceIdentity, srv *fakeServer) (*Service, repository.Repository) {
	t.Helper()
	repo := repository.NewMemoryRepository(initial)
	profile := checkindomain.DeviceFacts{Build: checkindomain.Build{Fingerprint: "test/fp"}}
	checkin := checkinservice.NewService(repo, facts.Static(profile), srv, nil)
	return NewService(checkin, srv, nil), repo
}

func TestRegister_ReturnsToken(t *testing.T) {
	srv := &fakeServer{registerBody: "token=TOKEN123"}
	svc, _ := newStack(t, checkindomain.DeviceIdentity{DeviceID: 12345, SecurityToken: 999}, srv)

	token, err := svc.Register(context.Background(), testApp, "sender-1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token != "TOKEN123" {
		t.Errorf("token = %q, want TOKEN123", token)
	}
	if srv.checkins != 0 {
		t.Errorf("checkins = %d, want 0 for a checked-in device", srv.checkins)
	}
	form := srv.registers[0]
	if form.Get("app") != testApp.PackageName || form.Get("cert") != testApp.SignatureDigest || form.Get("app_ver") != "7" {
		t.Errorf("form app fields = %v", form)
	}
	if form.Get("sender") != "sender-1" || form.Get("device") != "12345" {
		t.Errorf("form sender/device = %v", form)
	}
	if got := srv.headers[0].Get("Authorization"); got != "AidLogin 12345:999" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestRegister_ServerErrorCode(t *testing.T) {
	initial := checkindomain.DeviceIdentity{DeviceID: 12345, SecurityToken: 999, Digest: "abc", LastCheckinMs: 5}
	srv := &fakeServer{registerBody: "Error=SERVICE_NOT_AVAILABLE"}
	svc, repo := newStack(t, initial, srv)

	_, err := svc.Register(context.Background(), testApp, "sender-1", "")
	var rf *RegistrationFailedError
	if !errors.As(err, &rf) {
		t.Fatalf("err = %v, want *RegistrationFailedError", err)
	}
	if rf.Code != domain.ErrCodeServiceNotAvailable {
		t.Errorf("Code = %q, want %q", rf.Code, domain.ErrCodeServiceNotAvailable)
	}
	if code, ok := ErrorCode(err); !ok || code != domain.ErrCodeServiceNotAvailable {
		t.Errorf("ErrorCode = %q, %t", code, ok)
	}
	after, _ := repo.Load(context.Background())
	if after != initial {
		t.Errorf("identity = %+v, want %+v", after, initial)
	}
}

func TestRegister_BootstrapsIdentityOnce(t *testing.T) {
	srv := &fakeServer{
		registerBody: "token=T",
		checkinResp: &checkinwire.CheckinResponse{
			AndroidID:     checkinwire.Uint64(12345),
			SecurityToken: checkinwire.Uint64(999),
		},
	}
	svc, repo := newStack(t, checkindomain.DeviceIdentity{}, srv)

	for i := 0; i < 3; i++ {
		if _, err := svc.Register(context.Background(), testApp, "s", ""); err != nil {
			t.Fatalf("Register #%d: %v", i, err)
		}
	}
	if srv.checkins != 1 {
		t.Errorf("checkins = %d, want exactly 1", srv.checkins)
	}
	if got := srv.headers[0].Get("Authorization"); got != "AidLogin 12345:999" {
		t.Errorf("Authorization after bootstrap = %q", got)
	}
	stored, _ := repo.Load(context.Background())
	if stored.DeviceID != 12345 || stored.SecurityToken != 999 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestRegister_TransportErrorPropagates(t *testing.T) {
	srv := &fakeServer{registerErr: &transport.Error{Unavailable: true, Err: errors.New("dial")}}
	svc, _ := newStack(t, checkindomain.DeviceIdentity{DeviceID: 1, SecurityToken: 2}, srv)

	_, err := svc.Register(context.Background(), testApp, "s", "")
	if !transport.IsUnavailable(err) {
		t.Errorf("err = %v, want unavailable transport error", err)
	}
	if _, ok := ErrorCode(err); ok {
		t.Error("transport failure must not look like a server error code")
	}
}

func TestRegister_InvalidApp(t *testing.T) {
	srv := &fakeServer{registerBody: "token=T"}
	svc, _ := newStack(t, checkindomain.DeviceIdentity{DeviceID: 1}, srv)
	if _, err := svc.Register(context.Background(), domain.AppIdentity{}, "s", ""); !errors.Is(err, domain.ErrInvalidApp) {
		t.Errorf("err = %v, want ErrInvalidApp", err)
	}
	if len(srv.registers) != 0 {
		t.Error("no register call expected for an invalid app")
	}
}

func TestUnregister_IsAcceptedNoop(t *testing.T) {
	srv := &fakeServer{}
	svc, _ := newStack(t, checkindomain.DeviceIdentity{DeviceID: 1}, srv)
	if err := svc.Unregister(context.Background(), testApp); err != nil {
		t.Errorf("Unregister: %v", err)
	}
	if len(srv.registers) != 0 || srv.checkins != 0 {
		t.Error("Unregister must not contact the server")
	}
}

func TestMetricOutcome(t *testing.T) {
	tests := []struct {
		outcome string
		want    string
	}{
		{"ok", "ok"},
		{"error", "error"},
		{domain.ErrCodeServiceNotAvailable, domain.ErrCodeServiceNotAvailable},
		{"PHONE_REGISTRATION_ERROR", "PHONE_REGISTRATION_ERROR"},
		{"DEVICE_QUOTA_0x7f3a", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		if got := metricOutcome(tt.outcome); got != tt.want {
			t.Errorf("metricOutcome(%q) = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}
