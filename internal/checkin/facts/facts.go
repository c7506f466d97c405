// Package facts supplies device facts from a TOML device profile.
package facts

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"device-checkin/internal/checkin/domain"
)

// ErrIncompleteProfile is returned when a profile lacks the build fingerprint.
var ErrIncompleteProfile = errors.New("facts: profile has no build fingerprint")

// Static returns the same facts on every call.
type Static domain.DeviceFacts

// Facts returns a copy of the static facts.
func (s Static) Facts(ctx context.Context) (domain.DeviceFacts, error) {
	return clone(domain.DeviceFacts(s)), nil
}

// FileProvider reads a TOML profile on every call so edits take effect without a restart.
type FileProvider struct {
	Path string
}

// NewFileProvider returns a provider for the profile at path after checking that it parses.
func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{Path: path}
	if _, err := p.Facts(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

// Facts parses the profile file.
func (p *FileProvider) Facts(ctx context.Context) (domain.DeviceFacts, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return domain.DeviceFacts{}, fmt.Errorf("facts: read profile: %w", err)
	}
	return Parse(string(raw))
}

// Parse decodes a TOML device profile.
func Parse(data string) (domain.DeviceFacts, error) {
	var f domain.DeviceFacts
	md, err := toml.Decode(data, &f)
	if err != nil {
		return domain.DeviceFacts{}, fmt.Errorf("facts: parse profile: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return domain.DeviceFacts{}, fmt.Errorf("facts: unknown profile key %q", undecoded[0].String())
	}
	if f.Build.Fingerprint == "" {
		return domain.DeviceFacts{}, ErrIncompleteProfile
	}
	return f, nil
}

func clone(f domain.DeviceFacts) domain.DeviceFacts {
	c := f.Config
	c.SharedLibraries = append([]string(nil), c.SharedLibraries...)
	c.AvailableFeatures = append([]string(nil), c.AvailableFeatures...)
	c.NativePlatforms = append([]string(nil), c.NativePlatforms...)
	c.Locales = append([]string(nil), c.Locales...)
	c.GLExtensions = append([]string(nil), c.GLExtensions...)
	f.Config = c
	return f
}
