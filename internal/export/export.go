// Package export publishes rendered statistics to the output root. A run is
// published all-or-nothing: files are written to a staging directory next to the
// root and swapped into place only once every file has been written.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/models"
)

// ErrExportFailure is returned when the output could not be published. The
// previously published output is left untouched.
var ErrExportFailure = errors.New("export failure")

// Artifact is one file of a run. Path is slash separated and relative to the root.
type Artifact struct {
	Kind    string
	Path    string
	Entries int
	Value   any
}

// Notifier is told about every successfully published run.
type Notifier interface {
	Notify(ctx context.Context, m *models.Manifest) error
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	Root     string
	Notifier Notifier
	Logger   *zap.Logger
}

// Writer publishes runs below Root.
type Writer struct {
	root     string
	notifier Notifier
	logger   *zap.SugaredLogger
}

// NewWriter creates a Writer.
func NewWriter(cfg WriterConfig) *Writer {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Writer{
		root:     filepath.Clean(cfg.Root),
		notifier: cfg.Notifier,
		logger:   cfg.Logger.Sugar(),
	}
}

// Root returns the publish location.
func (w *Writer) Root() string { return w.root }

// Publish writes every artifact plus manifest.json and swaps them into place.
// The manifest's RunID is generated when empty and its artifact list is filled in.
func (w *Writer) Publish(ctx context.Context, manifest models.Manifest, artifacts []Artifact) (*models.Manifest, error) {
	start := time.Now()
	if manifest.RunID == "" {
		manifest.RunID = uuid.NewString()
	}

	artifacts = slices.Clone(artifacts)
	slices.SortFunc(artifacts, func(a, b Artifact) int { return strings.Compare(a.Path, b.Path) })
	if err := checkPaths(artifacts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailure, err)
	}

	manifest.Artifacts = make([]models.ManifestArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		manifest.Artifacts = append(manifest.Artifacts, models.ManifestArtifact{Kind: a.Kind, Path: a.Path, Entries: a.Entries})
	}

	parent, base := filepath.Dir(w.root), filepath.Base(w.root)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrExportFailure, parent, err)
	}
	staging := filepath.Join(parent, "."+base+".staging-"+manifest.RunID)

	if err := w.stage(ctx, staging, &manifest, artifacts); err != nil {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			w.logger.Warnw("Failed to remove staging directory", "path", staging, "error", rmErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrExportFailure, err)
	}
	if err := w.swap(staging, parent, base, manifest.RunID); err != nil {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			w.logger.Warnw("Failed to remove staging directory", "path", staging, "error", rmErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrExportFailure, err)
	}

	w.logger.Infow("Published statistics",
		"run_id", manifest.RunID,
		"root", w.root,
		"files", len(artifacts)+1,
		"duration", time.Since(start),
	)

	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, &manifest); err != nil {
			// the files are already in place; subscribers can fall back to manifest.json
			w.logger.Warnw("Failed to notify about published run", "run_id", manifest.RunID, "error", err)
		}
	}
	return &manifest, nil
}

func checkPaths(artifacts []Artifact) error {
	seen := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		clean := path.Clean(a.Path)
		if a.Path == "" || clean != a.Path || path.IsAbs(clean) || strings.HasPrefix(clean, "../") || clean == ".." {
			return fmt.Errorf("invalid artifact path %q", a.Path)
		}
		if clean == ManifestFile {
			return fmt.Errorf("artifact path %q is reserved", a.Path)
		}
		if _, dup := seen[clean]; dup {
			return fmt.Errorf("duplicate artifact path %q", a.Path)
		}
		seen[clean] = struct{}{}
	}
	return nil
}

func (w *Writer) stage(ctx context.Context, staging string, manifest *models.Manifest, artifacts []Artifact) error {
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(staging, filepath.FromSlash(a.Path)), a.Value); err != nil {
			return fmt.Errorf("%s: %w", a.Path, err)
		}
	}
	if err := writeJSON(filepath.Join(staging, ManifestFile), manifest); err != nil {
		return fmt.Errorf("%s: %w", ManifestFile, err)
	}
	return nil
}

// swap moves staging to root. The previous root is renamed aside first and restored
// if the second rename fails.
func (w *Writer) swap(staging, parent, base, runID string) error {
	previous := filepath.Join(parent, "."+base+".previous-"+runID)

	hadPrevious := true
	if err := os.Rename(w.root, previous); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("move previous output aside: %w", err)
		}
		hadPrevious = false
	}

	if err := os.Rename(staging, w.root); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(previous, w.root); restoreErr != nil {
				w.logger.Errorw("Failed to restore previous output", "path", previous, "error", restoreErr)
			}
		}
		return fmt.Errorf("move staging into place: %w", err)
	}

	if hadPrevious {
		if err := os.RemoveAll(previous); err != nil {
			w.logger.Warnw("Failed to remove previous output", "path", previous, "error", err)
		}
	}
	return nil
}

// Encode renders v the way every published file is rendered.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(name string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadManifest reads the manifest of the currently published run.
func ReadManifest(root string) (*models.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ManifestFile, err)
	}
	return &m, nil
}
