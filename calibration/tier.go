package calibration

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Tier is a camera resolution preset. The numeric values match the resolution index used by
// the camera's own tooling (0 = 2K ... 3 = VGA).
type Tier int

const (
	// TierFull is the 2K preset.
	TierFull Tier = iota
	// TierHigh is the full HD preset.
	TierHigh
	// TierStandard is the HD (720p) preset.
	TierStandard
	// TierLow is the VGA preset.
	TierLow
)

type tierSpec struct {
	name   string
	suffix string
	width  int
	height int
}

var tierSpecs = [...]tierSpec{
	TierFull:     {"full", "2K", 2208, 1242},
	// Nodes built for the original ZED wrapper publish 1720 as the FHD width; 1920 is the
	// sensor's actual mode.
	TierHigh:     {"high", "FHD", 1920, 1080},
	TierStandard: {"standard", "HD", 1280, 720},
	TierLow:      {"low", "VGA", 672, 376},
}

// Tiers lists every tier from largest to smallest.
func Tiers() []Tier {
	return []Tier{TierFull, TierHigh, TierStandard, TierLow}
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	return t >= TierFull && t <= TierLow
}

func (t Tier) String() string {
	if !t.Valid() {
		return "Tier(" + strconv.Itoa(int(t)) + ")"
	}
	return tierSpecs[t].name
}

// Suffix is the calibration file section suffix for the tier, e.g. "HD".
func (t Tier) Suffix() string {
	if !t.Valid() {
		return ""
	}
	return tierSpecs[t].suffix
}

// Width is the image width in pixels.
func (t Tier) Width() int {
	if !t.Valid() {
		return 0
	}
	return tierSpecs[t].width
}

// Height is the image height in pixels.
func (t Tier) Height() int {
	if !t.Valid() {
		return 0
	}
	return tierSpecs[t].height
}

// TierFromIndex maps the camera's numeric resolution index to a Tier.
func TierFromIndex(index int) (Tier, error) {
	t := Tier(index)
	if !t.Valid() {
		return 0, errors.Errorf("resolution index %d out of range [0, 3]", index)
	}
	return t, nil
}

// ParseTier accepts a section suffix ("2K", "FHD", "HD", "VGA"), a tier name ("full", "high",
// "standard", "low") or a numeric index. Matching is case-insensitive.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	if index, err := strconv.Atoi(s); err == nil {
		return TierFromIndex(index)
	}
	for _, t := range Tiers() {
		if strings.EqualFold(s, t.Suffix()) || strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown resolution %q", s)
}

// UnmarshalYAML lets configuration files name the tier by suffix, name or index.
func (t *Tier) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseTier(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML writes the tier as its section suffix.
func (t Tier) MarshalYAML() (interface{}, error) {
	if !t.Valid() {
		return nil, errors.Errorf("invalid tier %d", int(t))
	}
	return t.Suffix(), nil
}
