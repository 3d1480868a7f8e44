// Package secrets resolves provider credentials from a mounted secrets file
// with environment-variable fallback.
package secrets

import (
	"encoding/json"
	"os"
)

type Store struct {
	values map[string]string
}

// NewStore loads the JSON secrets file at path if it exists. A missing or
// unreadable file is not an error: lookups fall back to the environment.
func NewStore(path string) *Store {
	s := &Store{values: map[string]string{}}
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	_ = json.Unmarshal(data, &s.values)
	return s
}

func (s *Store) Get(name string) string {
	if v, ok := s.values[name]; ok && v != "" {
		return v
	}
	return os.Getenv(name)
}
