// Package paper holds presets for common receipt and label media.
package paper

import (
	"fmt"
	"sort"
	"strings"
)

// Profile describes a paper size and the printer head that prints on it.
type Profile struct {
	Name        string
	Description string

	// Paper dimensions in millimeters.
	WidthMM  float64
	HeightMM float64

	// Default margins and print width in millimeters. A zero print width
	// means "derive from paper width and margins".
	MarginXMM    float64
	MarginYMM    float64
	PrintWidthMM float64

	// Printer head characteristics.
	DPI           int // Dots per inch
	PrintableDots int // Dots across the head, 0 when unknown
}

// Available paper profiles
var profiles = map[string]Profile{
	"58mm": {
		Name:          "58mm",
		Description:   "58mm thermal receipt roll",
		WidthMM:       58,
		HeightMM:      130,
		PrintWidthMM:  48,
		DPI:           203,
		PrintableDots: 384,
	},
	"80mm": {
		Name:          "80mm",
		Description:   "80mm thermal receipt roll",
		WidthMM:       80,
		HeightMM:      130,
		PrintWidthMM:  72,
		DPI:           203,
		PrintableDots: 576,
	},
	"112mm": {
		Name:          "112mm",
		Description:   "112mm wide thermal roll",
		WidthMM:       112,
		HeightMM:      130,
		PrintWidthMM:  104,
		DPI:           203,
		PrintableDots: 832,
	},
	"label-68x130": {
		Name:        "label-68x130",
		Description: "68x130mm die-cut label",
		WidthMM:     68,
		HeightMM:    130,
		MarginXMM:   4,
		DPI:         203,
	},
	"label-72x130": {
		Name:          "label-72x130",
		Description:   "72x130mm label with 68mm print area",
		WidthMM:       72,
		HeightMM:      130,
		MarginXMM:     4,
		PrintWidthMM:  68,
		DPI:           203,
		PrintableDots: 576,
	},
}

// DefaultProfile is used when no paper is named.
const DefaultProfile = "label-72x130"

// GetProfile returns the profile with the given name (case-insensitive).
func GetProfile(name string) (Profile, error) {
	profile, exists := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !exists {
		return Profile{}, fmt.Errorf("unknown paper profile: %s (available: %s)", name, strings.Join(ListProfiles(), ", "))
	}
	return profile, nil
}

// ListProfiles returns the names of all profiles, sorted.
func ListProfiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxPrintableWidth returns the head width in dots, or 0 when unknown.
func (p Profile) MaxPrintableWidth() int {
	return p.PrintableDots
}

// Validate checks that the profile describes printable paper.
func (p Profile) Validate() error {
	if p.WidthMM <= 0 || p.HeightMM <= 0 {
		return fmt.Errorf("paper size must be positive, got %gx%gmm", p.WidthMM, p.HeightMM)
	}
	if p.DPI <= 0 {
		return fmt.Errorf("printer resolution must be positive, got %d dpi", p.DPI)
	}
	if p.PrintableDots < 0 {
		return fmt.Errorf("printable dots cannot be negative, got %d", p.PrintableDots)
	}
	return nil
}
