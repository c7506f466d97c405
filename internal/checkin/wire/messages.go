// Package wire encodes and decodes check-in protocol messages in protobuf wire format.
//
// Messages are plain Go values. Optional scalar fields are pointers and are omitted from the
// encoding when nil; repeated fields are omitted when empty. Field numbers follow the server's
// check-in schema and must not be renumbered.
package wire

// ProtocolVersion is the check-in protocol version sent in every request.
const ProtocolVersion int32 = 3

// Build is the Checkin.Build sub-message.
type Build struct {
	Fingerprint        *string
	Hardware           *string
	Brand              *string
	Radio              *string
	Bootloader         *string
	ClientID           *string
	Time               *int64
	PackageVersionCode *int32
	Device             *string
	SDKVersion         *int32
	Model              *string
	Manufacturer       *string
	Product            *string
	OTAInstalled       *bool
}

// Event is a Checkin.Event entry.
type Event struct {
	Tag    *string
	Value  *string
	TimeMs *int64
}

// Statistic is a Checkin.Statistic entry.
type Statistic struct {
	Tag   *string
	Count *int32
	Sum   *float32
}

// Checkin is the required Checkin sub-message of a request.
type Checkin struct {
	Build          *Build
	LastCheckinMs  *int64
	Events         []Event
	Stats          []Statistic
	RequestedGroup []string
	CellOperator   *string
	SimOperator    *string
	Roaming        *string
	UserNumber     *int32
}

// DeviceConfig is the device configuration sub-message of a request.
type DeviceConfig struct {
	TouchScreen          *int32
	KeyboardType         *int32
	Navigation           *int32
	ScreenLayout         *int32
	HasHardKeyboard      *bool
	HasFiveWayNavigation *bool
	DensityDPI           *int32
	GLESVersion          *int32
	SharedLibraries      []string
	AvailableFeatures    []string
	NativePlatforms      []string
	WidthPixels          *int32
	HeightPixels         *int32
	Locales              []string
	GLExtensions         []string
}

// RequestOptions holds the optional top-level fields of a CheckinRequest.
type RequestOptions struct {
	IMEI                *string
	AndroidID           *int64
	Digest              *string
	DesiredBuild        *string
	Locale              *string
	LoggingID           *int64
	MarketCheckin       *string
	MACAddresses        []string
	MEID                *string
	AccountCookies      []string
	TimeZone            *string
	SecurityToken       *uint64
	Version             *int32
	OTACerts            []string
	Serial              *string
	ESN                 *string
	DeviceConfiguration *DeviceConfig
	MACAddressTypes     []string
	UserName            *string
	UserSerialNumber    *int32
}

// CheckinRequest is the body POSTed to the check-in endpoint.
type CheckinRequest struct {
	Checkin  Checkin
	Fragment int32
	RequestOptions
}

// NewCheckinRequest returns a request with the required fields set and the optional ones taken from opts.
func NewCheckinRequest(checkin Checkin, fragment int32, opts RequestOptions) *CheckinRequest {
	return &CheckinRequest{Checkin: checkin, Fragment: fragment, RequestOptions: opts}
}

// Intent is a server directive carried in a CheckinResponse. Extras are not decoded.
type Intent struct {
	Action    *string
	DataURI   *string
	MIMEType  *string
	JavaClass *string
}

// Setting is a gservices key/value pair pushed by the server. Both fields are always on the wire,
// so a nil slice encodes like an empty one and decoding always yields non-nil slices.
type Setting struct {
	Name  []byte
	Value []byte
}

// CheckinResponse is the decoded check-in reply. Every field is optional.
type CheckinResponse struct {
	StatsOK               *bool
	Intents               []Intent
	TimeMs                *int64
	Digest                *string
	Settings              []Setting
	MarketOK              *bool
	AndroidID             *uint64
	SecurityToken         *uint64
	SettingsDiff          *bool
	DeleteSettings        []string
	VersionInfo           *string
	DeviceDataVersionInfo *string
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Int32 returns a pointer to v.
func Int32(v int32) *int32 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Uint64 returns a pointer to v.
func Uint64(v uint64) *uint64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }
