package calibration

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Store is a parsed calibration file: sections of key/value pairs. Keys are case-sensitive.
// Values may be strings (as read from text) or numbers (as built in code).
type Store struct {
	sections map[string]map[string]interface{}
}

// NewStore copies tree into a new Store.
func NewStore(tree map[string]map[string]interface{}) *Store {
	sections := make(map[string]map[string]interface{}, len(tree))
	for name, kv := range tree {
		section := make(map[string]interface{}, len(kv))
		for k, v := range kv {
			section[k] = v
		}
		sections[name] = section
	}
	return &Store{sections: sections}
}

// Lookup returns the raw value of section.key.
func (s *Store) Lookup(section, key string) (interface{}, bool) {
	if s == nil {
		return nil, false
	}
	kv, ok := s.sections[section]
	if !ok {
		return nil, false
	}
	v, ok := kv[key]
	return v, ok
}

// Has reports whether section.key is present.
func (s *Store) Has(section, key string) bool {
	_, ok := s.Lookup(section, key)
	return ok
}

// Float returns section.key as a float64. An absent key yields a *ConfigMissingError; a present
// but non-numeric value yields a wrapped parse error.
func (s *Store) Float(section, key string) (float64, error) {
	raw, ok := s.Lookup(section, key)
	if !ok {
		return 0, NewConfigMissingError(section, key)
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "calibration parameter %s.%s is not a number", section, key)
	}
	return v, nil
}

// Sections returns the section names in sorted order.
func (s *Store) Sections() []string {
	if s == nil {
		return nil
	}
	names := lo.Keys(s.sections)
	sort.Strings(names)
	return names
}
