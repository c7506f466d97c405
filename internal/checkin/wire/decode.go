package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// UnmarshalCheckinRequest decodes a CheckinRequest. Unknown fields are skipped.
func UnmarshalCheckinRequest(b []byte) (*CheckinRequest, error) {
	var m CheckinRequest
	err := walk("CheckinRequest", b, func(f field) error {
		switch f.num {
		case 1:
			setString(&m.IMEI, f)
		case 2:
			setInt64(&m.AndroidID, f)
		case 3:
			setString(&m.Digest, f)
		case 4:
			if f.typ == protowire.BytesType {
				c, err := decodeCheckin(f.b)
				if err != nil {
					return err
				}
				m.Checkin = *c
			}
		case 5:
			setString(&m.DesiredBuild, f)
		case 6:
			setString(&m.Locale, f)
		case 7:
			setInt64(&m.LoggingID, f)
		case 8:
			setString(&m.MarketCheckin, f)
		case 9:
			addString(&m.MACAddresses, f)
		case 10:
			setString(&m.MEID, f)
		case 11:
			addString(&m.AccountCookies, f)
		case 12:
			setString(&m.TimeZone, f)
		case 13:
			setFixed64(&m.SecurityToken, f)
		case 14:
			setInt32(&m.Version, f)
		case 15:
			addString(&m.OTACerts, f)
		case 16:
			setString(&m.Serial, f)
		case 17:
			setString(&m.ESN, f)
		case 18:
			if f.typ == protowire.BytesType {
				dc, err := decodeDeviceConfig(f.b)
				if err != nil {
					return err
				}
				m.DeviceConfiguration = dc
			}
		case 19:
			addString(&m.MACAddressTypes, f)
		case 20:
			if f.typ == protowire.VarintType {
				m.Fragment = int32(f.u)
			}
		case 21:
			setString(&m.UserName, f)
		case 22:
			setInt32(&m.UserSerialNumber, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UnmarshalCheckinResponse decodes a CheckinResponse. Unknown fields are skipped so the server may
// add fields without breaking older clients. On error no partial message is returned.
func UnmarshalCheckinResponse(b []byte) (*CheckinResponse, error) {
	var m CheckinResponse
	err := walk("CheckinResponse", b, func(f field) error {
		switch f.num {
		case 1:
			setBool(&m.StatsOK, f)
		case 2:
			if f.typ == protowire.BytesType {
				in, err := decodeIntent(f.b)
				if err != nil {
					return err
				}
				m.Intents = append(m.Intents, *in)
			}
		case 3:
			setInt64(&m.TimeMs, f)
		case 4:
			setString(&m.Digest, f)
		case 5:
			if f.typ == protowire.BytesType {
				s, err := decodeSetting(f.b)
				if err != nil {
					return err
				}
				m.Settings = append(m.Settings, *s)
			}
		case 6:
			setBool(&m.MarketOK, f)
		case 7:
			setFixed64(&m.AndroidID, f)
		case 8:
			setFixed64(&m.SecurityToken, f)
		case 9:
			setBool(&m.SettingsDiff, f)
		case 10:
			addString(&m.DeleteSettings, f)
		case 11:
			setString(&m.VersionInfo, f)
		case 12:
			setString(&m.DeviceDataVersionInfo, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeCheckin(b []byte) (*Checkin, error) {
	var m Checkin
	err := walk("Checkin", b, func(f field) error {
		switch f.num {
		case 1:
			if f.typ == protowire.BytesType {
				bd, err := decodeBuild(f.b)
				if err != nil {
					return err
				}
				m.Build = bd
			}
		case 2:
			setInt64(&m.LastCheckinMs, f)
		case 3:
			if f.typ == protowire.BytesType {
				var e Event
				err := walk("Checkin.Event", f.b, func(g field) error {
					switch g.num {
					case 1:
						setString(&e.Tag, g)
					case 2:
						setString(&e.Value, g)
					case 3:
						setInt64(&e.TimeMs, g)
					}
					return nil
				})
				if err != nil {
					return err
				}
				m.Events = append(m.Events, e)
			}
		case 4:
			if f.typ == protowire.BytesType {
				var s Statistic
				err := walk("Checkin.Statistic", f.b, func(g field) error {
					switch g.num {
					case 1:
						setString(&s.Tag, g)
					case 2:
						setInt32(&s.Count, g)
					case 3:
						if g.typ == protowire.Fixed32Type {
							s.Sum = Float32(math.Float32frombits(uint32(g.u)))
						}
					}
					return nil
				})
				if err != nil {
					return err
				}
				m.Stats = append(m.Stats, s)
			}
		case 5:
			addString(&m.RequestedGroup, f)
		case 6:
			setString(&m.CellOperator, f)
		case 7:
			setString(&m.SimOperator, f)
		case 8:
			setString(&m.Roaming, f)
		case 9:
			setInt32(&m.UserNumber, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeBuild(b []byte) (*Build, error) {
	var m Build
	err := walk("Checkin.Build", b, func(f field) error {
		switch f.num {
		case 1:
			setString(&m.Fingerprint, f)
		case 2:
			setString(&m.Hardware, f)
		case 3:
			setString(&m.Brand, f)
		case 4:
			setString(&m.Radio, f)
		case 5:
			setString(&m.Bootloader, f)
		case 6:
			setString(&m.ClientID, f)
		case 7:
			setInt64(&m.Time, f)
		case 8:
			setInt32(&m.PackageVersionCode, f)
		case 9:
			setString(&m.Device, f)
		case 10:
			setInt32(&m.SDKVersion, f)
		case 11:
			setString(&m.Model, f)
		case 12:
			setString(&m.Manufacturer, f)
		case 13:
			setString(&m.Product, f)
		case 14:
			setBool(&m.OTAInstalled, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeDeviceConfig(b []byte) (*DeviceConfig, error) {
	var m DeviceConfig
	err := walk("DeviceConfig", b, func(f field) error {
		switch f.num {
		case 1:
			setInt32(&m.TouchScreen, f)
		case 2:
			setInt32(&m.KeyboardType, f)
		case 3:
			setInt32(&m.Navigation, f)
		case 4:
			setInt32(&m.ScreenLayout, f)
		case 5:
			setBool(&m.HasHardKeyboard, f)
		case 6:
			setBool(&m.HasFiveWayNavigation, f)
		case 7:
			setInt32(&m.DensityDPI, f)
		case 8:
			setInt32(&m.GLESVersion, f)
		case 9:
			addString(&m.SharedLibraries, f)
		case 10:
			addString(&m.AvailableFeatures, f)
		case 11:
			addString(&m.NativePlatforms, f)
		case 12:
			setInt32(&m.WidthPixels, f)
		case 13:
			setInt32(&m.HeightPixels, f)
		case 14:
			addString(&m.Locales, f)
		case 15:
			addString(&m.GLExtensions, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeIntent(b []byte) (*Intent, error) {
	var m Intent
	err := walk("CheckinResponse.Intent", b, func(f field) error {
		switch f.num {
		case 1:
			setString(&m.Action, f)
		case 2:
			setString(&m.DataURI, f)
		case 3:
			setString(&m.MIMEType, f)
		case 4:
			setString(&m.JavaClass, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeSetting(b []byte) (*Setting, error) {
	m := Setting{Name: []byte{}, Value: []byte{}}
	err := walk("CheckinResponse.Setting", b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			m.Name = append([]byte{}, f.b...)
		case 2:
			m.Value = append([]byte{}, f.b...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// field is one decoded tag/value pair. Scalars land in u, length-delimited payloads in b.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

// walk iterates the fields of one message encoding. Groups and other unknown wire types are
// consumed and passed to fn with an empty value so callers can ignore them.
func walk(message string, b []byte, fn func(field) error) error {
	off := 0
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return &DecodeError{Message: message, Offset: off, Err: protowire.ParseError(n)}
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		var m int
		switch typ {
		case protowire.VarintType:
			f.u, m = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, m = protowire.ConsumeFixed32(b)
			f.u = uint64(v)
		case protowire.Fixed64Type:
			f.u, m = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.b, m = protowire.ConsumeBytes(b)
		default:
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return &DecodeError{Message: message, Offset: off + n, Err: protowire.ParseError(m)}
		}
		if err := fn(f); err != nil {
			return err
		}
		b = b[m:]
		off += n + m
	}
	return nil
}

// Setters ignore fields whose wire type does not match the schema, treating them as unknown.

func setString(dst **string, f field) {
	if f.typ == protowire.BytesType {
		s := string(f.b)
		*dst = &s
	}
}

func addString(dst *[]string, f field) {
	if f.typ == protowire.BytesType {
		*dst = append(*dst, string(f.b))
	}
}

func setInt32(dst **int32, f field) {
	if f.typ == protowire.VarintType {
		v := int32(f.u)
		*dst = &v
	}
}

func setInt64(dst **int64, f field) {
	if f.typ == protowire.VarintType {
		v := int64(f.u)
		*dst = &v
	}
}

func setFixed64(dst **uint64, f field) {
	if f.typ == protowire.Fixed64Type {
		v := f.u
		*dst = &v
	}
}

func setBool(dst **bool, f field) {
	if f.typ == protowire.VarintType {
		v := protowire.DecodeBool(f.u)
		*dst = &v
	}
}
