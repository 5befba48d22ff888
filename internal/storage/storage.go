package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/hf-pick/internal/validate"
)

// ManifestName is the file written into each download directory.
const ManifestName = ".hf-pick.json"

// Run records one download or conversion step executed in the directory.
type Run struct {
	ID           string    `json:"id" validate:"required,uuid4"`
	Step         string    `json:"step" validate:"required,oneof=download convert"`
	ModelID      string    `json:"model_id" validate:"required,repo_id"`
	Target       string    `json:"target,omitempty"`
	Quantization string    `json:"quantization,omitempty"`
	Attempts     int       `json:"attempts" validate:"gte=0"`
	Succeeded    bool      `json:"succeeded"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Data represents the structure of the manifest file.
type Data struct {
	ModelID  string `json:"model_id,omitempty" validate:"omitempty,repo_id"`
	Revision string `json:"revision,omitempty"`
	Runs     []Run  `json:"runs" validate:"dive"`
}

// Storage handles the loading and saving of the manifest file.
type Storage struct {
	Path string `validate:"required,filepath"`
	Data Data
}

// NewStorage opens the manifest in dir, returning an empty one if none exists yet.
func NewStorage(dir string) (*Storage, error) {
	expandedDir, err := ExpandTilde(dir)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		Path: filepath.Join(expandedDir, ManifestName),
		Data: Data{Runs: []Run{}},
	}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("manifest path %s: %w", s.Path, err)
	}

	if err := s.Load(); err != nil {
		// If the file doesn't exist, we can ignore the error.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return s, nil
}

// NewOrExistingStorage returns existing storage if the manifest exists, or
// creates and writes a new one otherwise.
func NewOrExistingStorage(dir string) (*Storage, error) {
	s, err := NewStorage(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		if err := s.Save(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) Load() error {
	logrus.Debug("Loading manifest from: ", s.Path)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s.Data); err != nil {
		return err
	}

	// Validate loaded data and self-heal when possible.
	if err := validate.Struct(s.Data); err != nil {
		changed := false
		if s.Data.ModelID != "" && validate.Var(s.Data.ModelID, "repo_id") != nil {
			logrus.Warn("Invalid model_id found in manifest; clearing.")
			s.Data.ModelID = ""
			changed = true
		}
		kept := s.Data.Runs[:0]
		for _, r := range s.Data.Runs {
			if validate.Struct(r) != nil {
				changed = true
				continue
			}
			kept = append(kept, r)
		}
		s.Data.Runs = kept
		if changed {
			logrus.Warn("Dropped invalid entries from manifest.")
			if err := s.Save(); err != nil {
				return err
			}
		}
	}
	if s.Data.Runs == nil {
		s.Data.Runs = []Run{}
	}
	return nil
}

// Save writes the manifest to the file.
func (s *Storage) Save() error {
	logrus.Debug("Saving manifest to: ", s.Path)
	// Ensure parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0o644)
}

// Record assigns the run an ID, appends it, and saves.
func (s *Storage) Record(r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := validate.Struct(r); err != nil {
		return r, err
	}
	s.Data.Runs = append(s.Data.Runs, r)
	return r, s.Save()
}

// LastSuccess returns the most recent successful run of step, if any.
func (s *Storage) LastSuccess(step string) (Run, bool) {
	for i := len(s.Data.Runs) - 1; i >= 0; i-- {
		if r := s.Data.Runs[i]; r.Step == step && r.Succeeded {
			return r, true
		}
	}
	return Run{}, false
}

// ExpandTilde expands the tilde in a path to the user's home directory.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
