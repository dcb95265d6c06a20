package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// Store persists artifacts under a directory:
//
//	<hazard>_model_<version>.json    full artifact
//	<hazard>_summary_<version>.yaml  human-readable metrics summary
//	<hazard>_latest.json             pointer to the newest version
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

type latestPointer struct {
	Version   string    `json:"version"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the YAML companion written next to each artifact.
type Summary struct {
	Hazard        domain.HazardType   `yaml:"hazard"`
	Version       string              `yaml:"version"`
	CreatedAt     time.Time           `yaml:"created_at"`
	TrainingRange DateRange           `yaml:"training_range"`
	Threshold     float64             `yaml:"threshold"`
	Metrics       Metrics             `yaml:"metrics"`
	TopFeatures   []FeatureImportance `yaml:"top_features"`
	Forest        ForestParams        `yaml:"forest"`
	Params        domain.HazardParams `yaml:"params"`
}

// Save writes the artifact, its summary, and advances the latest pointer.
// Existing versions are never overwritten.
func (s *Store) Save(a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	modelName := fmt.Sprintf("%s_model_%s.json", a.Hazard, a.Version)
	modelPath := filepath.Join(s.dir, modelName)
	if _, err := os.Stat(modelPath); err == nil {
		return fmt.Errorf("artifact %s already exists", modelName)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := writeFileAtomic(modelPath, data); err != nil {
		return err
	}

	top := a.Importances
	if len(top) > 10 {
		top = top[:10]
	}
	summary, err := yaml.Marshal(Summary{
		Hazard:        a.Hazard,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		TrainingRange: a.TrainingRange,
		Threshold:     a.Threshold,
		Metrics:       a.Metrics,
		TopFeatures:   top,
		Forest:        a.Forest.Params,
		Params:        a.Params,
	})
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	summaryPath := filepath.Join(s.dir, fmt.Sprintf("%s_summary_%s.yaml", a.Hazard, a.Version))
	if err := writeFileAtomic(summaryPath, summary); err != nil {
		return err
	}

	pointer, err := json.MarshalIndent(latestPointer{Version: a.Version, Model: modelName, CreatedAt: a.CreatedAt}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal latest pointer: %w", err)
	}
	return writeFileAtomic(s.latestPath(a.Hazard), pointer)
}

// Load returns the latest artifact for a hazard, or ErrModelArtifactMissing.
func (s *Store) Load(h domain.HazardType) (*Artifact, error) {
	data, err := os.ReadFile(s.latestPath(h))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no %s model in %s", domain.ErrModelArtifactMissing, h, s.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read latest %s pointer: %w", h, err)
	}
	var ptr latestPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, fmt.Errorf("decode latest %s pointer: %w", h, err)
	}
	return s.LoadVersion(h, ptr.Version)
}

// LoadVersion returns a specific artifact version.
func (s *Store) LoadVersion(h domain.HazardType, version string) (*Artifact, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_model_%s.json", h, version))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s model version %s", domain.ErrModelArtifactMissing, h, version)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}
	if a.Hazard != h {
		return nil, fmt.Errorf("artifact %s is for %s, not %s", filepath.Base(path), a.Hazard, h)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Versions lists stored versions for a hazard, oldest first by file modification time.
func (s *Store) Versions(h domain.HazardType) ([]string, error) {
	prefix := fmt.Sprintf("%s_model_", h)
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	type versioned struct {
		version string
		mod     time.Time
	}
	var found []versioned
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		found = append(found, versioned{
			version: strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"),
			mod:     info.ModTime(),
		})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].mod.Before(found[j].mod) })

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.version
	}
	return out, nil
}

func (s *Store) latestPath(h domain.HazardType) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_latest.json", h))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
