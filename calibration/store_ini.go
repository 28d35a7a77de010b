package calibration

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// LoadStoreINI reads a calibration file in INI format from disk.
func LoadStoreINI(path string) (*Store, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading calibration file %q", path)
	}
	return storeFromINI(cfg), nil
}

// ParseStoreINI parses calibration file contents in INI format.
func ParseStoreINI(data []byte) (*Store, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing calibration data")
	}
	return storeFromINI(cfg), nil
}

func storeFromINI(cfg *ini.File) *Store {
	tree := make(map[string]map[string]interface{})
	for _, section := range cfg.Sections() {
		keys := section.Keys()
		// ini.v1 always materializes the unnamed default section.
		if section.Name() == ini.DefaultSection && len(keys) == 0 {
			continue
		}
		kv := make(map[string]interface{}, len(keys))
		for _, key := range keys {
			kv[key.Name()] = key.String()
		}
		tree[section.Name()] = kv
	}
	return &Store{sections: tree}
}
