package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
)

// Format is a manifest encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var ErrUnknownFormat = errors.New("manifest: unknown format")

// Manifest lists the frames a host process serves.
type Manifest struct {
	Containers []string `yaml:"containers" toml:"containers"`
	Frames     []Frame  `yaml:"frames" toml:"frames"`
}

// Frame is one embedded guest.
type Frame struct {
	ID        string   `yaml:"id" toml:"id"`
	Container string   `yaml:"container" toml:"container"`
	Origin    string   `yaml:"origin" toml:"origin"`
	Src       string   `yaml:"src,omitempty" toml:"src,omitempty"`
	Classes   []string `yaml:"classes,omitempty" toml:"classes,omitempty"`

	// Script is a JavaScript file defining the host-side effects for this
	// frame. Relative paths resolve against the manifest's directory.
	Script string `yaml:"script,omitempty" toml:"script,omitempty"`

	// Unknown overrides the unknown-effect policy: report, drop or strict.
	Unknown string `yaml:"unknown,omitempty" toml:"unknown,omitempty"`
}

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads, parses and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: load %s: %w", path, err)
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range m.Frames {
		if s := m.Frames[i].Script; s != "" && !filepath.IsAbs(s) {
			m.Frames[i].Script = filepath.Join(dir, s)
		}
	}
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every frame and normalizes origins in place.
func (m *Manifest) Validate() error {
	for _, c := range m.Containers {
		if err := utils.ValidateID(c); err != nil {
			return fmt.Errorf("container %q: %w", c, err)
		}
	}

	seen := make(map[string]bool, len(m.Frames))
	for i := range m.Frames {
		f := &m.Frames[i]
		if err := utils.ValidateID(f.ID); err != nil {
			return fmt.Errorf("frames[%d].id: %w", i, err)
		}
		if seen[f.ID] {
			return fmt.Errorf("frames[%d].id: duplicate %q", i, f.ID)
		}
		seen[f.ID] = true

		if err := utils.ValidateID(f.Container); err != nil {
			return fmt.Errorf("frame %q container: %w", f.ID, err)
		}
		origin, err := utils.Origin(f.Origin)
		if err != nil {
			return fmt.Errorf("frame %q origin: %w", f.ID, err)
		}
		if f.Src == "" {
			f.Src = f.Origin
		} else if err := utils.ValidateURL(f.Src); err != nil {
			return fmt.Errorf("frame %q src: %w", f.ID, err)
		}
		f.Origin = origin
		if err := utils.ValidateClasses(f.Classes); err != nil {
			return fmt.Errorf("frame %q classes: %w", f.ID, err)
		}
		if _, err := effect.ParseUnknownPolicy(f.Unknown); err != nil {
			return fmt.Errorf("frame %q: %w", f.ID, err)
		}
	}
	return nil
}

// Frame returns the frame with id.
func (m *Manifest) Frame(id string) (Frame, bool) {
	for _, f := range m.Frames {
		if f.ID == id {
			return f, true
		}
	}
	return Frame{}, false
}

// AllContainers returns declared containers and those frames reference,
// sorted and without duplicates.
func (m *Manifest) AllContainers() []string {
	set := make(map[string]struct{})
	for _, c := range m.Containers {
		set[c] = struct{}{}
	}
	for _, f := range m.Frames {
		set[f.Container] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Origins returns the distinct frame origins in manifest order.
func (m *Manifest) Origins() []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range m.Frames {
		if !seen[f.Origin] {
			seen[f.Origin] = true
			out = append(out, f.Origin)
		}
	}
	return out
}
