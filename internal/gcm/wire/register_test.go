package wire

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeRegisterRequest(t *testing.T) {
	body, h, err := EncodeRegisterRequest(&RegisterRequest{
		App:             "com.example.chat",
		SignatureDigest: "38918a453d07199354f8b19af05ec6562ced5788",
		VersionCode:     42,
		Sender:          "123456789",
		DeviceID:        12345,
		SecurityToken:   999,
	})
	require.NoError(t, err)

	form, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	require.Equal(t, "com.example.chat", form.Get("app"))
	require.Equal(t, "42", form.Get("app_ver"))
	require.Equal(t, "38918a453d07199354f8b19af05ec6562ced5788", form.Get("cert"))
	require.Equal(t, "12345", form.Get("device"))
	require.Equal(t, "123456789", form.Get("sender"))
	_, hasInfo := form["info"]
	require.False(t, hasInfo, "info must be omitted when empty")

	require.Equal(t, "AidLogin 12345:999", h.Get("Authorization"))
	require.Equal(t, "com.example.chat", h.Get("app"))
	require.Equal(t, UserAgent, h.Get("User-Agent"))
}

func TestEncodeRegisterRequest_InfoAndHighBitToken(t *testing.T) {
	body, h, err := EncodeRegisterRequest(&RegisterRequest{
		App: "a", Sender: "s", Info: "extra", DeviceID: 1, SecurityToken: 1 << 63,
	})
	require.NoError(t, err)
	form, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	require.Equal(t, "extra", form.Get("info"))
	require.Equal(t, "AidLogin 1:9223372036854775808", h.Get("Authorization"))
}

func TestEncodeRegisterRequest_Invalid(t *testing.T) {
	_, _, err := EncodeRegisterRequest(nil)
	require.ErrorIs(t, err, ErrMissingApp)
	_, _, err = EncodeRegisterRequest(&RegisterRequest{Sender: "s", DeviceID: 1})
	require.ErrorIs(t, err, ErrMissingApp)
	_, _, err = EncodeRegisterRequest(&RegisterRequest{App: "a", Sender: "s"})
	require.ErrorIs(t, err, ErrNotCheckedIn)
}

func TestDecodeRegisterResponse(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want RegisterResponse
	}{
		{"token", "token=TOKEN123", RegisterResponse{Token: "TOKEN123"}},
		{"token with trailing newline", "token=TOKEN123\n", RegisterResponse{Token: "TOKEN123"}},
		{"error", "Error=SERVICE_NOT_AVAILABLE", RegisterResponse{Error: "SERVICE_NOT_AVAILABLE"}},
		{"unknown keys ignored", "deleted=1\nfoo\ntoken=abc=def\n", RegisterResponse{Token: "abc=def"}},
		{"error wins", "token=T\nError=PHONE_REGISTRATION_ERROR", RegisterResponse{Error: "PHONE_REGISTRATION_ERROR"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeRegisterResponse([]byte(tc.body))
			require.NoError(t, err)
			require.Equal(t, tc.want, *got)
		})
	}
}

func TestDecodeRegisterResponse_NoResult(t *testing.T) {
	for _, body := range []string{"", "hello", "token=", "other=1"} {
		got, err := DecodeRegisterResponse([]byte(body))
		require.Nil(t, got)
		var de *DecodeError
		require.True(t, errors.As(err, &de), "body %q: err = %v", body, err)
	}
}
