package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FormatVersion is bumped whenever the artifact layout or any artifact
// schema changes incompatibly. Load refuses artifacts from a different
// version instead of guessing.
const FormatVersion = 1

// Artifact file names inside a saved pipeline directory. Each fitted
// sub-component is a separate file so a corruption fails loudly with the
// exact artifact named, instead of poisoning one monolithic blob.
const (
	metadataFile   = "metadata.json"
	scalerFile     = "scaler.json"
	combinerFile   = "combiner.json"
	calibratorFile = "calibrator.json"
)

// Metadata is the small record written alongside the artifacts: format
// version for forward-compatibility checks, a fresh artifact id per save,
// and a snapshot of the config the pipeline was fit with.
type Metadata struct {
	FormatVersion int       `json:"format_version"`
	ArtifactID    string    `json:"artifact_id"`
	CreatedAt     time.Time `json:"created_at"`
	Config        Config    `json:"config"`
}

// Save serializes the config and every fitted sub-component into dir, one
// named JSON file each. Saving an unfitted pipeline is a caller error.
func (p *Pipeline) Save(dir string) error {
	if p.fitted == nil {
		return ErrNotFitted
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pipeline save: %w", err)
	}

	meta := Metadata{
		FormatVersion: FormatVersion,
		ArtifactID:    uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Config:        p.cfg,
	}
	artifacts := map[string]any{
		metadataFile:   meta,
		scalerFile:     p.fitted.Scaler,
		combinerFile:   p.fitted.Combiner,
		calibratorFile: p.fitted.Calibrator,
	}
	for name, v := range artifacts {
		if err := writeArtifact(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}
	return nil
}

// Load reconstructs a fitted pipeline from a directory written by Save. The
// metadata is read and version-checked before any other artifact is trusted;
// a missing or corrupt file fails with that file's path in the error.
func Load(dir string, opts ...Option) (*Pipeline, error) {
	var meta Metadata
	if err := readArtifact(filepath.Join(dir, metadataFile), &meta); err != nil {
		return nil, err
	}
	if meta.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("pipeline load: artifact format version %d, expected %d",
			meta.FormatVersion, FormatVersion)
	}

	p, err := New(meta.Config, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline load: %w", err)
	}

	var st FittedState
	if err := readArtifact(filepath.Join(dir, scalerFile), &st.Scaler); err != nil {
		return nil, err
	}
	if len(st.Scaler.Columns) == 0 {
		return nil, fmt.Errorf("pipeline load: %s holds no fitted columns", scalerFile)
	}
	if err := readArtifact(filepath.Join(dir, combinerFile), &st.Combiner); err != nil {
		return nil, err
	}
	if len(st.Combiner.Columns) == 0 {
		return nil, fmt.Errorf("pipeline load: %s holds no selected columns", combinerFile)
	}
	if err := readArtifact(filepath.Join(dir, calibratorFile), &st.Calibrator); err != nil {
		return nil, err
	}
	if st.Calibrator.Yellow >= st.Calibrator.Red {
		return nil, fmt.Errorf("pipeline load: %s thresholds out of order", calibratorFile)
	}

	p.fitted = &st
	return p, nil
}

// ReadMetadata loads just the metadata record of a saved pipeline, for
// callers that need the artifact id or config snapshot without
// reconstructing the whole pipeline.
func ReadMetadata(dir string) (Metadata, error) {
	var meta Metadata
	err := readArtifact(filepath.Join(dir, metadataFile), &meta)
	return meta, err
}

func writeArtifact(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

func readArtifact(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return nil
}
