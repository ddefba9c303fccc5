package loader

import (
	"encoding/json"
	"os"
)

// Manifest is the pkg.json package descriptor. NativeModules names the
// package members that resolve as shared libraries under lib/.
type Manifest struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Description   string   `json:"description,omitempty"`
	NativeModules []string `json:"native_modules,omitempty"`
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IsNative reports whether the manifest declares name as a native module.
func (m *Manifest) IsNative(name string) bool {
	for _, n := range m.NativeModules {
		if n == name {
			return true
		}
	}
	return false
}
