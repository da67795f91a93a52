package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/cwbudde/coeffbench/internal/bench"
)

// FSStore implements Store on the filesystem. Baselines are stored as
// <baseDir>/baselines/<name>/baseline.json next to samples.jsonl.
//
// Writes go through a temp file and a rename, so readers never observe a
// partially written baseline.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem store rooted at baseDir, creating the
// directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

func (fs *FSStore) baselineDir(name string) string {
	return filepath.Join(fs.baseDir, "baselines", name)
}

func (fs *FSStore) baselinePath(name string) string {
	return filepath.Join(fs.baselineDir(name), "baseline.json")
}

// SaveBaseline atomically saves b under b.Name.
func (fs *FSStore) SaveBaseline(b *Baseline) error {
	if b == nil {
		return fmt.Errorf("baseline cannot be nil")
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid baseline: %w", err)
	}

	dir := fs.baselineDir(b.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize baseline: %w", err)
	}

	finalPath := fs.baselinePath(b.Name)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp baseline file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename baseline file: %w", err)
	}

	slog.Debug("Baseline saved", "name", b.Name, "id", b.ID, "path", finalPath)
	return nil
}

// LoadBaseline reads the baseline saved under name.
func (fs *FSStore) LoadBaseline(name string) (*Baseline, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	path := fs.baselinePath(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Name: name}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read baseline file: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to deserialize baseline: %w", err)
	}

	slog.Debug("Baseline loaded", "name", name, "path", path)
	return &b, nil
}

// ListBaselines returns metadata for every readable baseline, newest
// first. Corrupted entries are logged and skipped.
func (fs *FSStore) ListBaselines() ([]BaselineInfo, error) {
	root := filepath.Join(fs.baseDir, "baselines")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return []BaselineInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read baselines directory: %w", err)
	}

	infos := []BaselineInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := os.Stat(fs.baselinePath(name)); os.IsNotExist(err) {
			continue
		}
		b, err := fs.LoadBaseline(name)
		if err != nil {
			slog.Warn("Failed to load baseline for listing", "name", name, "error", err)
			continue
		}
		infos = append(infos, b.ToInfo())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})

	slog.Debug("Listed baselines", "count", len(infos))
	return infos, nil
}

// DeleteBaseline removes the baseline directory with all its files.
func (fs *FSStore) DeleteBaseline(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	dir := fs.baselineDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{Name: name}
	} else if err != nil {
		return fmt.Errorf("failed to stat baseline directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove baseline directory: %w", err)
	}

	slog.Debug("Baseline deleted", "name", name, "path", dir)
	return nil
}

// SaveRun stores results as the baseline name, replacing its sample
// trace with the raw samples of every result.
func SaveRun(fs *FSStore, name string, host bench.Host, cfg bench.Config, results []bench.Result) (*Baseline, error) {
	b := NewBaseline(name, host, cfg, results)
	if err := fs.SaveBaseline(b); err != nil {
		return nil, err
	}

	w, err := NewSampleWriter(fs.baseDir, name)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if err := w.WriteResult(r); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	slog.Info("Baseline saved", "name", name, "id", b.ID, "benchmarks", len(results))
	return b, nil
}

// OpenSamples opens the raw sample trace saved with baseline name.
func (fs *FSStore) OpenSamples(name string) (*SampleReader, error) {
	return NewSampleReader(fs.baseDir, name)
}
