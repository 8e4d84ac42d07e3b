package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leandrodaf/posemidi/internal/pose"
)

// FormatVersion identifies the layout of persisted configuration files.
// Files written with another version are not loaded.
const FormatVersion = 1

const maxFileSize = 1 << 20

// ErrVersionMismatch is returned when a persisted file has another FormatVersion.
var ErrVersionMismatch = errors.New("tracking config version mismatch")

type storedConfig struct {
	Version   int                     `json:"version"`
	Threshold *float64                `json:"threshold,omitempty"`
	Tracking  map[pose.Landmark]Entry `json:"tracking"`
}

// Save writes the configuration to path as indented JSON.
func (s *Store) Save(path string) error {
	cleanPath, err := checkPath(path)
	if err != nil {
		return err
	}

	threshold := s.Threshold()
	stored := storedConfig{
		Version:   FormatVersion,
		Threshold: &threshold,
		Tracking:  make(map[pose.Landmark]Entry, pose.LandmarkCount),
	}
	for i, e := range s.Entries() {
		stored.Tracking[pose.Landmark(i)] = e
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tracking config: %w", err)
	}
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	tmp := cleanPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tracking config: %w", err)
	}
	if err := os.Rename(tmp, cleanPath); err != nil {
		return fmt.Errorf("failed to replace tracking config: %w", err)
	}
	return nil
}

// Load replaces the configuration with the contents of path. Landmarks and a
// threshold absent from the file keep their current value. Nothing is applied unless every
// entry in the file is valid.
func (s *Store) Load(path string) error {
	cleanPath, err := checkPath(path)
	if err != nil {
		return err
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat tracking config: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("tracking config too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read tracking config: %w", err)
	}

	var stored storedConfig
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse tracking config: %w", err)
	}
	if stored.Version != FormatVersion {
		return fmt.Errorf("%w: file has %d, want %d", ErrVersionMismatch, stored.Version, FormatVersion)
	}
	for l, e := range stored.Tracking {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%s: %w", l, err)
		}
	}
	// A file without a threshold keeps the current one.
	if stored.Threshold != nil {
		if err := s.SetThreshold(*stored.Threshold); err != nil {
			return err
		}
	}
	for _, l := range pose.Landmarks() {
		if e, ok := stored.Tracking[l]; ok {
			if _, err := s.Set(l, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPath(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return "", fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	return cleanPath, nil
}
