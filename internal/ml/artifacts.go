package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// ModelVersion is one entry in the artifact directory's version registry.
type ModelVersion struct {
	ModelID   string    `json:"model_id"`
	Version   string    `json:"version"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Metrics   Metrics   `json:"metrics"`
	IsActive  bool      `json:"is_active"`
}

// ArtifactStore persists trained models as JSON files under a directory,
// with a registry file tracking versions and the active one. Writes go to a
// temp file first and are renamed into place, so a crash mid-save never
// corrupts the previously active artifact.
type ArtifactStore struct {
	dir          string
	registryFile string
	versions     []ModelVersion
}

func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	s := &ArtifactStore{
		dir:          dir,
		registryFile: filepath.Join(dir, "model_versions.json"),
	}
	if err := s.loadRegistry(); err != nil {
		log.Warn().Err(err).Msg("failed to load model registry, starting fresh")
		s.versions = nil
	}
	return s, nil
}

// Save writes the model artifact and marks it active in the registry.
func (s *ArtifactStore) Save(m *Model, metrics Metrics) (ModelVersion, error) {
	data, err := m.Marshal()
	if err != nil {
		return ModelVersion{}, err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("lotto_model_%s.json", m.Version))
	if err := writeAtomic(path, data); err != nil {
		return ModelVersion{}, fmt.Errorf("write model artifact: %w", err)
	}

	v := ModelVersion{
		ModelID:   m.ModelID,
		Version:   m.Version,
		Path:      path,
		CreatedAt: m.CreatedAt,
		Metrics:   metrics,
		IsActive:  true,
	}
	for i := range s.versions {
		s.versions[i].IsActive = false
	}
	s.versions = append(s.versions, v)
	sort.Slice(s.versions, func(i, j int) bool {
		return s.versions[i].CreatedAt.After(s.versions[j].CreatedAt)
	})
	if err := s.saveRegistry(); err != nil {
		return ModelVersion{}, err
	}

	log.Info().
		Str("version", v.Version).
		Str("path", path).
		Float64("accuracy", metrics.Accuracy).
		Msg("model artifact saved")
	return v, nil
}

// LoadActive reads the currently active model. Returns ErrModelNotFound
// when no version is active or the registry is empty.
func (s *ArtifactStore) LoadActive() (*Model, ModelVersion, error) {
	v, ok := s.ActiveVersion()
	if !ok {
		return nil, ModelVersion{}, ErrModelNotFound
	}
	data, err := os.ReadFile(v.Path)
	if err != nil {
		return nil, ModelVersion{}, fmt.Errorf("read model artifact %s: %w", v.Path, err)
	}
	m, err := UnmarshalModel(data)
	if err != nil {
		return nil, ModelVersion{}, err
	}
	return m, v, nil
}

// ActiveVersion reports the registry entry marked active.
func (s *ArtifactStore) ActiveVersion() (ModelVersion, bool) {
	for _, v := range s.versions {
		if v.IsActive {
			return v, true
		}
	}
	return ModelVersion{}, false
}

// Versions returns the registry newest first.
func (s *ArtifactStore) Versions() []ModelVersion {
	out := make([]ModelVersion, len(s.versions))
	copy(out, s.versions)
	return out
}

// RollbackToPrevious activates the version created immediately before the
// active one.
func (s *ArtifactStore) RollbackToPrevious() error {
	activeIdx := -1
	for i, v := range s.versions {
		if v.IsActive {
			activeIdx = i
			break
		}
	}
	if activeIdx < 0 {
		return fmt.Errorf("no active model to roll back from")
	}
	if activeIdx+1 >= len(s.versions) {
		return fmt.Errorf("no previous model version available")
	}
	s.versions[activeIdx].IsActive = false
	s.versions[activeIdx+1].IsActive = true
	if err := s.saveRegistry(); err != nil {
		return err
	}
	log.Warn().
		Str("from", s.versions[activeIdx].Version).
		Str("to", s.versions[activeIdx+1].Version).
		Msg("rolled back active model")
	return nil
}

// CleanupOld removes artifact files beyond the keep newest versions. The
// active version is always kept.
func (s *ArtifactStore) CleanupOld(keep int) error {
	if keep < 1 {
		keep = 1
	}
	if len(s.versions) <= keep {
		return nil
	}
	kept := s.versions[:keep]
	for _, v := range s.versions[keep:] {
		if v.IsActive {
			kept = append(kept, v)
			continue
		}
		if err := os.Remove(v.Path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", v.Path).Msg("failed to remove old model artifact")
		}
	}
	s.versions = kept
	return s.saveRegistry()
}

func (s *ArtifactStore) loadRegistry() error {
	data, err := os.ReadFile(s.registryFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.versions)
}

func (s *ArtifactStore) saveRegistry() error {
	data, err := json.MarshalIndent(s.versions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model registry: %w", err)
	}
	if err := writeAtomic(s.registryFile, data); err != nil {
		return fmt.Errorf("write model registry: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
