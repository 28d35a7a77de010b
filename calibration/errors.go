package calibration

import (
	"fmt"
)

// ConfigMissingError is returned when a required calibration key is absent.
type ConfigMissingError struct {
	Section string
	Key     string
}

// NewConfigMissingError is used when section.key is not in the calibration store.
func NewConfigMissingError(section, key string) error {
	return &ConfigMissingError{Section: section, Key: key}
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("calibration parameter %s.%s not found", e.Section, e.Key)
}

// BaselineMissingError is returned when neither spelling of the baseline key is present.
type BaselineMissingError struct {
	Section string
	Keys    []string
}

// NewBaselineMissingError is used when no baseline key variant exists in section.
func NewBaselineMissingError(section string, keys ...string) error {
	return &BaselineMissingError{Section: section, Keys: keys}
}

func (e *BaselineMissingError) Error() string {
	return fmt.Sprintf("baseline parameter not found in section %s (tried %v)", e.Section, e.Keys)
}
