package service

import (
	"device-checkin/internal/checkin/domain"
	"device-checkin/internal/checkin/wire"
)

// PackageVersionCode is the services version the check-in reports itself as.
const PackageVersionCode int32 = 6599436

// MACAddressTypeWifi tags a wifi MAC in the request's macAddressType list.
const MACAddressTypeWifi = "wifi"

// BuildRequest assembles a check-in request from device facts, the current identity and the
// account credentials. It never mutates its inputs.
//
// A non-zero security token switches the request to authenticated mode (fragment 1); otherwise the
// token is omitted and fragment is 0. Locale, serial, time zone, user serial number, logging id,
// user name and OTA certs are intentionally left unset.
func BuildRequest(facts domain.DeviceFacts, id domain.DeviceIdentity, creds []domain.AccountCredential) *wire.CheckinRequest {
	checkin := wire.Checkin{
		Build:         buildMessage(facts.Build),
		LastCheckinMs: wire.Int64(id.LastCheckinMs),
		CellOperator:  optString(facts.Phone.CellOperator),
		SimOperator:   optString(facts.Phone.SimOperator),
		Roaming:       optString(facts.Phone.Roaming),
	}
	opts := wire.RequestOptions{
		AndroidID:           wire.Int64(id.DeviceID),
		Digest:              optString(id.Digest),
		MEID:                optString(facts.Ident.MEID),
		ESN:                 optString(facts.Ident.ESN),
		AccountCookies:      AccountCookies(creds),
		Version:             wire.Int32(wire.ProtocolVersion),
		DeviceConfiguration: deviceConfigMessage(facts.Config),
	}
	if facts.Ident.WifiMAC != "" {
		opts.MACAddresses = []string{facts.Ident.WifiMAC}
		opts.MACAddressTypes = []string{MACAddressTypeWifi}
	}
	var fragment int32
	if id.Authenticated() {
		opts.SecurityToken = wire.Uint64(id.SecurityToken)
		fragment = 1
	}
	return wire.NewCheckinRequest(checkin, fragment, opts)
}

// AccountCookies interleaves "[name]" and the auth token for every credential, in input order.
func AccountCookies(creds []domain.AccountCredential) []string {
	if len(creds) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(creds))
	for _, c := range creds {
		out = append(out, "["+c.Name+"]", c.AuthToken)
	}
	return out
}

func buildMessage(b domain.Build) *wire.Build {
	return &wire.Build{
		Fingerprint:        optString(b.Fingerprint),
		Hardware:           optString(b.Hardware),
		Brand:              optString(b.Brand),
		Radio:              optString(b.Radio),
		Bootloader:         optString(b.Bootloader),
		Time:               wire.Int64(b.TimeMs / 1000),
		PackageVersionCode: wire.Int32(PackageVersionCode),
		Device:             optString(b.Device),
		SDKVersion:         wire.Int32(b.SDK),
		Model:              optString(b.Model),
		Manufacturer:       optString(b.Manufacturer),
		Product:            optString(b.Product),
		OTAInstalled:       wire.Bool(false),
	}
}

func deviceConfigMessage(c domain.Configuration) *wire.DeviceConfig {
	return &wire.DeviceConfig{
		TouchScreen:          wire.Int32(c.TouchScreen),
		KeyboardType:         wire.Int32(c.KeyboardType),
		Navigation:           wire.Int32(c.Navigation),
		ScreenLayout:         wire.Int32(c.ScreenLayout),
		HasHardKeyboard:      wire.Bool(c.HasHardKeyboard),
		HasFiveWayNavigation: wire.Bool(c.HasFiveWayNavigation),
		DensityDPI:           wire.Int32(c.DensityDPI),
		GLESVersion:          wire.Int32(c.GLESVersion),
		SharedLibraries:      cloneStrings(c.SharedLibraries),
		AvailableFeatures:    cloneStrings(c.AvailableFeatures),
		NativePlatforms:      cloneStrings(c.NativePlatforms),
		WidthPixels:          wire.Int32(c.WidthPixels),
		HeightPixels:         wire.Int32(c.HeightPixels),
		Locales:              cloneStrings(c.Locales),
		GLExtensions:         cloneStrings(c.GLExtensions),
	}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return wire.String(s)
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
