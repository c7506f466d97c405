package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// MarshalCheckinRequest encodes req. Fields are written in ascending field-number order.
func MarshalCheckinRequest(req *CheckinRequest) ([]byte, error) {
	if req == nil {
		return nil, ErrNilMessage
	}
	var b []byte
	b = appendString(b, 1, req.IMEI)
	b = appendInt64(b, 2, req.AndroidID)
	b = appendString(b, 3, req.Digest)
	b = appendMessage(b, 4, appendCheckin(nil, &req.Checkin))
	b = appendString(b, 5, req.DesiredBuild)
	b = appendString(b, 6, req.Locale)
	b = appendInt64(b, 7, req.LoggingID)
	b = appendString(b, 8, req.MarketCheckin)
	b = appendStrings(b, 9, req.MACAddresses)
	b = appendString(b, 10, req.MEID)
	b = appendStrings(b, 11, req.AccountCookies)
	b = appendString(b, 12, req.TimeZone)
	b = appendFixed64(b, 13, req.SecurityToken)
	b = appendInt32(b, 14, req.Version)
	b = appendStrings(b, 15, req.OTACerts)
	b = appendString(b, 16, req.Serial)
	b = appendString(b, 17, req.ESN)
	if req.DeviceConfiguration != nil {
		b = appendMessage(b, 18, appendDeviceConfig(nil, req.DeviceConfiguration))
	}
	b = appendStrings(b, 19, req.MACAddressTypes)
	b = appendInt32(b, 20, &req.Fragment)
	b = appendString(b, 21, req.UserName)
	b = appendInt32(b, 22, req.UserSerialNumber)
	return b, nil
}

// MarshalCheckinResponse encodes resp. Used by tests and fakes that play the server side.
func MarshalCheckinResponse(resp *CheckinResponse) ([]byte, error) {
	if resp == nil {
		return nil, ErrNilMessage
	}
	var b []byte
	b = appendBool(b, 1, resp.StatsOK)
	for i := range resp.Intents {
		b = appendMessage(b, 2, appendIntent(nil, &resp.Intents[i]))
	}
	b = appendInt64(b, 3, resp.TimeMs)
	b = appendString(b, 4, resp.Digest)
	for _, s := range resp.Settings {
		var sb []byte
		sb = protowire.AppendTag(sb, 1, protowire.BytesType)
		sb = protowire.AppendBytes(sb, s.Name)
		sb = protowire.AppendTag(sb, 2, protowire.BytesType)
		sb = protowire.AppendBytes(sb, s.Value)
		b = appendMessage(b, 5, sb)
	}
	b = appendBool(b, 6, resp.MarketOK)
	b = appendFixed64(b, 7, resp.AndroidID)
	b = appendFixed64(b, 8, resp.SecurityToken)
	b = appendBool(b, 9, resp.SettingsDiff)
	b = appendStrings(b, 10, resp.DeleteSettings)
	b = appendString(b, 11, resp.VersionInfo)
	b = appendString(b, 12, resp.DeviceDataVersionInfo)
	return b, nil
}

func appendCheckin(b []byte, c *Checkin) []byte {
	if c.Build != nil {
		b = appendMessage(b, 1, appendBuild(nil, c.Build))
	}
	b = appendInt64(b, 2, c.LastCheckinMs)
	for _, e := range c.Events {
		var eb []byte
		eb = appendString(eb, 1, e.Tag)
		eb = appendString(eb, 2, e.Value)
		eb = appendInt64(eb, 3, e.TimeMs)
		b = appendMessage(b, 3, eb)
	}
	for _, s := range c.Stats {
		var sb []byte
		sb = appendString(sb, 1, s.Tag)
		sb = appendInt32(sb, 2, s.Count)
		if s.Sum != nil {
			sb = protowire.AppendTag(sb, 3, protowire.Fixed32Type)
			sb = protowire.AppendFixed32(sb, math.Float32bits(*s.Sum))
		}
		b = appendMessage(b, 4, sb)
	}
	b = appendStrings(b, 5, c.RequestedGroup)
	b = appendString(b, 6, c.CellOperator)
	b = appendString(b, 7, c.SimOperator)
	b = appendString(b, 8, c.Roaming)
	b = appendInt32(b, 9, c.UserNumber)
	return b
}

func appendBuild(b []byte, m *Build) []byte {
	b = appendString(b, 1, m.Fingerprint)
	b = appendString(b, 2, m.Hardware)
	b = appendString(b, 3, m.Brand)
	b = appendString(b, 4, m.Radio)
	b = appendString(b, 5, m.Bootloader)
	b = appendString(b, 6, m.ClientID)
	b = appendInt64(b, 7, m.Time)
	b = appendInt32(b, 8, m.PackageVersionCode)
	b = appendString(b, 9, m.Device)
	b = appendInt32(b, 10, m.SDKVersion)
	b = appendString(b, 11, m.Model)
	b = appendString(b, 12, m.Manufacturer)
	b = appendString(b, 13, m.Product)
	b = appendBool(b, 14, m.OTAInstalled)
	return b
}

func appendDeviceConfig(b []byte, m *DeviceConfig) []byte {
	b = appendInt32(b, 1, m.TouchScreen)
	b = appendInt32(b, 2, m.KeyboardType)
	b = appendInt32(b, 3, m.Navigation)
	b = appendInt32(b, 4, m.ScreenLayout)
	b = appendBool(b, 5, m.HasHardKeyboard)
	b = appendBool(b, 6, m.HasFiveWayNavigation)
	b = appendInt32(b, 7, m.DensityDPI)
	b = appendInt32(b, 8, m.GLESVersion)
	b = appendStrings(b, 9, m.SharedLibraries)
	b = appendStrings(b, 10, m.AvailableFeatures)
	b = appendStrings(b, 11, m.NativePlatforms)
	b = appendInt32(b, 12, m.WidthPixels)
	b = appendInt32(b, 13, m.HeightPixels)
	b = appendStrings(b, 14, m.Locales)
	b = appendStrings(b, 15, m.GLExtensions)
	return b
}

func appendIntent(b []byte, m *Intent) []byte {
	b = appendString(b, 1, m.Action)
	b = appendString(b, 2, m.DataURI)
	b = appendString(b, 3, m.MIMEType)
	b = appendString(b, 4, m.JavaClass)
	return b
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendString(b []byte, num protowire.Number, v *string) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *v)
}

func appendStrings(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

// int32 fields are sign-extended to 64 bits, matching protobuf int32 encoding.
func appendInt32(b []byte, num protowire.Number, v *int32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(*v)))
}

func appendInt64(b []byte, num protowire.Number, v *int64) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(*v))
}

func appendFixed64(b []byte, num protowire.Number, v *uint64) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, *v)
}

func appendBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(*v))
}
