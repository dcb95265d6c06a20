package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/riskradar/internal/domain"
)

type sitesFile struct {
	Sites []domain.Site `yaml:"sites"`
}

// LoadSites reads the monitored site list from a YAML file.
func LoadSites(path string) ([]domain.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}
	defer f.Close()
	return ReadSites(f)
}

// ReadSites decodes and validates a site list. Names must be unique and
// coordinates in range.
func ReadSites(r io.Reader) ([]domain.Site, error) {
	var sf sitesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode sites: %w", err)
	}
	if len(sf.Sites) == 0 {
		return nil, errors.New("sites file defines no sites")
	}

	seen := make(map[string]bool, len(sf.Sites))
	for i, s := range sf.Sites {
		if s.Name == "" {
			return nil, fmt.Errorf("site %d: name is required", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("site %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if err := s.Point().Validate(); err != nil {
			return nil, fmt.Errorf("site %q: %w", s.Name, err)
		}
	}
	return sf.Sites, nil
}
