// Package artifacts loads the trained model artifacts the scoring pipeline
// consumes: an abandonment classifier and an aggregate-count forecaster.
//
// Both artifacts are loaded independently; a missing or corrupt file leaves
// that slot nil and never fails the process. Callers treat a nil slot as
// the normal "model unavailable" case and fall back per their own rules.
// Loading is a single attempt with no retries: a corrupt artifact will not
// become valid on retry.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cartguard/cartguard/internal/metrics"
)

// Artifact file names, fixed by the training pipeline.
const (
	ClassifierFile = "classifier.json"
	ForecasterFile = "forecaster.json"
)

// SchemaVersion is the artifact format version this build understands.
const SchemaVersion = 1

// ErrSchemaMismatch reports a configuration-level disagreement between the
// loaded classifier and the feature vector builder. Unlike a missing
// artifact, this is fatal at startup: a silently mis-shaped vector would
// produce garbage scores.
var ErrSchemaMismatch = errors.New("classifier feature width does not match vector builder")

// Artifacts holds the loaded model capabilities. Either slot may be nil.
// Loaded once, shared read-only by all inference calls.
type Artifacts struct {
	Classifier *Classifier
	Forecaster *Forecaster
}

// Provider loads artifacts from a directory exactly once and caches the
// result for the process lifetime.
type Provider struct {
	dir    string
	logger *slog.Logger

	once   sync.Once
	loaded *Artifacts
}

// NewProvider creates a provider reading from dir.
func NewProvider(dir string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{dir: dir, logger: logger}
}

// Load returns the cached artifacts, loading them on first use.
// It never returns an error: absence of either model is a degraded but
// valid state.
func (p *Provider) Load() *Artifacts {
	p.once.Do(func() {
		a := &Artifacts{}

		if c, err := loadClassifier(filepath.Join(p.dir, ClassifierFile)); err != nil {
			p.logger.Warn("classifier artifact unavailable, scans will use override/fallback tiers",
				"path", filepath.Join(p.dir, ClassifierFile),
				"error", err,
			)
		} else {
			a.Classifier = c
			p.logger.Info("classifier artifact loaded", "feature_width", c.FeatureWidth)
		}
		metrics.ArtifactLoaded.WithLabelValues("classifier").Set(boolGauge(a.Classifier != nil))

		if f, err := loadForecaster(filepath.Join(p.dir, ForecasterFile)); err != nil {
			p.logger.Warn("forecaster artifact unavailable, forecasts will report unavailable",
				"path", filepath.Join(p.dir, ForecasterFile),
				"error", err,
			)
		} else {
			a.Forecaster = f
			p.logger.Info("forecaster artifact loaded", "observations", len(f.History))
		}
		metrics.ArtifactLoaded.WithLabelValues("forecaster").Set(boolGauge(a.Forecaster != nil))

		p.loaded = a
	})
	return p.loaded
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// header is the common envelope every artifact file carries.
type header struct {
	SchemaVersion int    `json:"schema_version"`
	Kind          string `json:"kind"`
}

func readArtifact(path, wantKind string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("corrupt artifact %s: %w", path, err)
	}
	if h.SchemaVersion != SchemaVersion {
		return fmt.Errorf("artifact %s: schema version %d, want %d", path, h.SchemaVersion, SchemaVersion)
	}
	if h.Kind != wantKind {
		return fmt.Errorf("artifact %s: kind %q, want %q", path, h.Kind, wantKind)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt artifact %s: %w", path, err)
	}
	return nil
}
