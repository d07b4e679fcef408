package browser

import (
	"fmt"
	"os"
	"path/filepath"
)

// profileMarker is the subdirectory Chrome creates inside a user data dir
// after the first successful launch.
const profileMarker = "Default"

// Profile is a persisted Chrome user data directory. Its cookies are the
// only thing that keeps an operator logged in between runs.
type Profile struct {
	Dir string
}

func NewProfile(dir string) (*Profile, error) {
	p := &Profile{Dir: dir}
	if err := p.ensure(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) ensure() error {
	if err := os.MkdirAll(p.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	return nil
}

// Exists reports whether a browser has populated the profile.
func (p *Profile) Exists() bool {
	info, err := os.Stat(filepath.Join(p.Dir, profileMarker))
	return err == nil && info.IsDir()
}

// Clear wipes the profile and leaves an empty directory behind. Calling it
// on an already empty profile is a no-op.
func (p *Profile) Clear() error {
	if err := os.RemoveAll(p.Dir); err != nil {
		return fmt.Errorf("failed to remove profile: %w", err)
	}
	return p.ensure()
}
