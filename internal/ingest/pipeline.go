// Package ingest walks recording directories, runs detection, and persists
// the results. Ingestion is idempotent: files already known by name are
// skipped, so re-running over the same directory is safe.
package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gcombe/batnet-go/internal/batdetect"
	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/datastore"
	"github.com/gcombe/batnet-go/internal/errors"
	"github.com/gcombe/batnet-go/internal/logging"
	"github.com/gcombe/batnet-go/internal/metadata"
)

// Summary reports the outcome of one ingestion run.
type Summary struct {
	RunID           string
	Processed       int
	SkippedExisting int
	SkippedMetadata int
	Failed          int
}

// Pipeline wires the datastore, metadata extractor and detector into the
// per-file ingestion sequence. Collaborators are injected so tests can run
// the pipeline without an external detector.
type Pipeline struct {
	store     datastore.Interface
	extractor metadata.Extractor
	detector  batdetect.Interface
	logger    *slog.Logger
}

// New builds a pipeline from loaded settings and an opened datastore.
func New(settings *conf.Settings, store datastore.Interface) (*Pipeline, error) {
	extractor, err := metadata.NewExtractor(settings)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:     store,
		extractor: extractor,
		detector:  batdetect.New(batdetect.ConfigFromSettings(settings)),
		logger:    logging.ForService("ingest"),
	}, nil
}

// NewWithCollaborators builds a pipeline with explicit collaborators.
func NewWithCollaborators(store datastore.Interface, extractor metadata.Extractor, detector batdetect.Interface) *Pipeline {
	return &Pipeline{
		store:     store,
		extractor: extractor,
		detector:  detector,
		logger:    logging.ForService("ingest"),
	}
}

// Run ingests every WAV file under root. Individual file failures are
// logged and counted but do not stop the run; datastore unavailability does.
func (p *Pipeline) Run(ctx context.Context, root string) (Summary, error) {
	summary := Summary{RunID: uuid.New().String()}

	paths, err := collectWavFiles(root)
	if err != nil {
		return summary, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("operation", "collect_files").
			FileContext(root).
			Build()
	}

	p.logger.Info("ingestion run starting",
		"run_id", summary.RunID,
		"root", root,
		"files", len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := p.ingestFile(ctx, path, &summary); err != nil {
			if errors.Is(err, datastore.ErrStoreUnavailable) {
				p.logger.Error("datastore unavailable, aborting run",
					"run_id", summary.RunID, "path", path, "error", err)
				return summary, err
			}
			summary.Failed++
			p.logger.Error("failed to ingest file",
				"run_id", summary.RunID, "path", path, "error", err)
		}
	}

	p.logger.Info("ingestion run complete",
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"skipped_existing", summary.SkippedExisting,
		"skipped_metadata", summary.SkippedMetadata,
		"failed", summary.Failed)
	return summary, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, path string, summary *Summary) error {
	fileName := filepath.Base(path)

	exists, err := p.store.RecordExists(fileName)
	if err != nil {
		return err
	}
	if exists {
		summary.SkippedExisting++
		p.logger.Debug("file already ingested", "file_name", fileName)
		return nil
	}

	info, err := p.extractor.Extract(path)
	if err != nil {
		if errors.Is(err, metadata.ErrMetadataMissing) {
			summary.SkippedMetadata++
			p.logger.Warn("skipping file without usable metadata", "path", path)
			return nil
		}
		return err
	}

	pred, err := p.detector.Detect(ctx, path)
	if err != nil {
		return err
	}

	record, annotations := buildRecord(path, fileName, info, &pred)
	if err := p.store.Save(record, annotations); err != nil {
		if errors.Is(err, datastore.ErrRecordExists) {
			// Lost a race with a concurrent run; the file is persisted either way.
			summary.SkippedExisting++
			p.logger.Debug("file ingested concurrently", "file_name", fileName)
			return nil
		}
		return err
	}

	summary.Processed++
	p.logger.Debug("ingested file",
		"file_name", fileName,
		"class_name", record.ClassName,
		"annotations", len(annotations))
	return nil
}

// buildRecord maps detector and metadata output to the persistence model.
// The location comes from the directory layout recorders produce,
// <root>/<deployment-date>/<location>/data/file.wav.
func buildRecord(path, fileName string, info metadata.Info, pred *batdetect.Prediction) (*datastore.Record, []datastore.Annotation) {
	record := &datastore.Record{
		FileName:   fileName,
		LocationID: locationFromPath(path),
		Serial:     info.Serial,
		RecordTime: info.Timestamp,
		Duration:   pred.Duration,
		ClassName:  pred.ClassName,
		Backup:     "no",
		RecordPath: path,
	}
	if record.ClassName == "" {
		record.ClassName = "None"
	}
	if info.Timestamp != nil {
		record.RecordingNight = datastore.RecordingNightFor(*info.Timestamp)
	}

	annotations := make([]datastore.Annotation, 0, len(pred.Events))
	for _, ev := range pred.Events {
		annotations = append(annotations, datastore.Annotation{
			StartTime:  ev.StartTime,
			EndTime:    ev.EndTime,
			LowFreq:    ev.LowFreq,
			HighFreq:   ev.HighFreq,
			SppClass:   ev.Class,
			ClassProb:  ev.ClassProb,
			DetProb:    ev.DetProb,
			Individual: ev.Individual,
			Event:      ev.Event,
		})
	}
	return record, annotations
}

func locationFromPath(path string) string {
	return filepath.Base(filepath.Dir(filepath.Dir(path)))
}

// collectWavFiles walks root and returns all WAV files in stable order.
func collectWavFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".wav") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
