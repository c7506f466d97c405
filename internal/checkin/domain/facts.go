package domain

import "context"

// Build describes the firmware build of the device.
type Build struct {
	Fingerprint  string `toml:"fingerprint"`
	Hardware     string `toml:"hardware"`
	Brand        string `toml:"brand"`
	Radio        string `toml:"radio"`
	Bootloader   string `toml:"bootloader"`
	Device       string `toml:"device"`
	Model        string `toml:"model"`
	Manufacturer string `toml:"manufacturer"`
	Product      string `toml:"product"`
	SDK          int32  `toml:"sdk"`
	// TimeMs is the build time in milliseconds; the wire carries seconds.
	TimeMs int64 `toml:"time_ms"`
}

// Configuration describes the hardware/software configuration of the device.
type Configuration struct {
	TouchScreen          int32    `toml:"touch_screen"`
	KeyboardType         int32    `toml:"keyboard_type"`
	Navigation           int32    `toml:"navigation"`
	ScreenLayout         int32    `toml:"screen_layout"`
	HasHardKeyboard      bool     `toml:"has_hard_keyboard"`
	HasFiveWayNavigation bool     `toml:"has_five_way_navigation"`
	DensityDPI           int32    `toml:"density_dpi"`
	GLESVersion          int32    `toml:"gl_es_version"`
	SharedLibraries      []string `toml:"shared_libraries"`
	AvailableFeatures    []string `toml:"available_features"`
	NativePlatforms      []string `toml:"native_platforms"`
	WidthPixels          int32    `toml:"width_pixels"`
	HeightPixels         int32    `toml:"height_pixels"`
	Locales              []string `toml:"locales"`
	GLExtensions         []string `toml:"gl_extensions"`
}

// PhoneInfo carries carrier state.
type PhoneInfo struct {
	CellOperator string `toml:"cell_operator"`
	SimOperator  string `toml:"sim_operator"`
	Roaming      string `toml:"roaming"`
}

// Identifier holds hardware identifiers. WifiMAC is empty when not available.
type Identifier struct {
	WifiMAC string `toml:"wifi_mac"`
	MEID    string `toml:"meid"`
	ESN     string `toml:"esn"`
}

// DeviceFacts is the read-only snapshot of device state supplied to each check-in.
type DeviceFacts struct {
	Build  Build         `toml:"build"`
	Config Configuration `toml:"config"`
	Phone  PhoneInfo     `toml:"phone"`
	Ident  Identifier    `toml:"ident"`
}

// FactsProvider supplies device facts. Implementations must return a fresh value each call.
type FactsProvider interface {
	Facts(ctx context.Context) (DeviceFacts, error)
}
