// Package archive transcodes selected recordings to FLAC, verifies the
// output, and records the new location durably before removing the source.
package archive

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/datastore"
	"github.com/gcombe/batnet-go/internal/logging"
)

// State tracks one candidate through the archival run.
type State string

const (
	StateSelected         State = "selected"
	StateLocated          State = "located"
	StateNotFound         State = "not_found"
	StateTranscoding      State = "transcoding"
	StateTranscoded       State = "transcoded"
	StateConversionFailed State = "conversion_failed"
	StateCommitted        State = "committed"
)

// Summary reports the outcome of one archival run.
type Summary struct {
	Selected   int
	NotFound   int
	Failed     int
	Transcoded int
	Committed  int
}

// pendingItem is a transcoded candidate awaiting durable commit. The source
// path is kept so it can be removed once the commit has landed.
type pendingItem struct {
	update  datastore.ArchiveUpdate
	srcPath string
}

// Workflow drives the archival run. Crash safety comes from ordering: the
// FLAC output exists and is verified before the database learns about it,
// and the database commit has returned before the source WAV is removed. An
// interrupted run leaves sources in place and candidates unmarked, so the
// next run picks up where this one stopped.
type Workflow struct {
	store      datastore.Interface
	transcoder Transcoder
	settings   *conf.ArchiveSettings
	logger     *slog.Logger
	verify     func(path string) error
}

// NewWorkflow wires the archival workflow from settings and an opened store.
func NewWorkflow(settings *conf.Settings, store datastore.Interface) *Workflow {
	w := &Workflow{
		store:      store,
		transcoder: NewFFmpegTranscoder(&settings.Archive),
		settings:   &settings.Archive,
		logger:     logging.ForService("archive"),
	}
	if settings.Archive.Verify {
		w.verify = VerifyFlac
	}
	return w
}

// SetTranscoder replaces the transcoder. Used by tests.
func (w *Workflow) SetTranscoder(t Transcoder) { w.transcoder = t }

// SetVerifier replaces the output verifier; nil disables verification.
func (w *Workflow) SetVerifier(v func(path string) error) { w.verify = v }

// Run archives every candidate matching the configured filter. Individual
// candidate failures are counted and skipped; a failed commit aborts the run
// because continuing would risk deleting sources the database never heard of.
func (w *Workflow) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	filter := (&datastore.ArchiveFilter{}).FromSettings(&w.settings.Filter)
	candidates, err := w.store.ArchiveCandidates(filter)
	if err != nil {
		return summary, err
	}
	summary.Selected = len(candidates)
	w.logger.Info("archival run starting", "candidates", len(candidates))

	flushEvery := w.settings.FlushEvery
	if flushEvery < 1 {
		flushEvery = 1
	}

	var pending []pendingItem
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		item, state := w.processCandidate(ctx, &candidates[i])
		switch state {
		case StateNotFound:
			summary.NotFound++
		case StateConversionFailed:
			summary.Failed++
		case StateTranscoded:
			summary.Transcoded++
			pending = append(pending, item)
		}

		if len(pending) >= flushEvery {
			if err := w.flush(pending, &summary); err != nil {
				return summary, err
			}
			pending = pending[:0]
		}
	}

	if err := w.flush(pending, &summary); err != nil {
		return summary, err
	}

	w.logger.Info("archival run complete",
		"selected", summary.Selected,
		"not_found", summary.NotFound,
		"failed", summary.Failed,
		"committed", summary.Committed)
	return summary, nil
}

// processCandidate takes one candidate through locate and transcode.
func (w *Workflow) processCandidate(ctx context.Context, c *datastore.ArchiveCandidate) (pendingItem, State) {
	srcPath := w.locate(c)
	if srcPath == "" {
		w.logger.Warn("source file not found", "file_name", c.FileName, "record_path", c.RecordPath)
		return pendingItem{}, StateNotFound
	}

	dstPath, err := DerivePath(w.settings.FlacRoot, srcPath)
	if err != nil {
		w.logger.Error("cannot derive archive path", "file_name", c.FileName, "error", err)
		return pendingItem{}, StateConversionFailed
	}

	if err := w.transcoder.Transcode(ctx, srcPath, dstPath); err != nil {
		w.logger.Error("transcode failed", "file_name", c.FileName, "error", err)
		return pendingItem{}, StateConversionFailed
	}
	if w.verify != nil {
		if err := w.verify(dstPath); err != nil {
			w.logger.Error("transcoded output failed verification", "file_name", c.FileName, "error", err)
			return pendingItem{}, StateConversionFailed
		}
	}

	w.logger.Debug("transcoded", "file_name", c.FileName, "dst", dstPath)
	return pendingItem{
		update:  datastore.ArchiveUpdate{FileName: c.FileName, BackupPath: dstPath},
		srcPath: srcPath,
	}, StateTranscoded
}

// locate resolves a candidate to a readable source path. The stored record
// path is tried first; when stale, the configured WAV root is searched for
// the file by name.
func (w *Workflow) locate(c *datastore.ArchiveCandidate) string {
	if c.RecordPath != "" {
		if _, err := os.Stat(c.RecordPath); err == nil {
			return c.RecordPath
		}
	}
	if w.settings.WavRoot == "" {
		return ""
	}

	var found string
	_ = filepath.WalkDir(w.settings.WavRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == c.FileName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// flush commits a batch of completed transcodes, then removes the source
// files. Removal failures are logged but do not fail the run; the records
// are already marked and the leftover sources can be cleaned up manually.
func (w *Workflow) flush(pending []pendingItem, summary *Summary) error {
	if len(pending) == 0 {
		return nil
	}

	updates := make([]datastore.ArchiveUpdate, 0, len(pending))
	for i := range pending {
		updates = append(updates, pending[i].update)
	}
	if err := w.store.MarkArchived(updates); err != nil {
		return err
	}
	summary.Committed += len(pending)

	for i := range pending {
		if err := os.Remove(pending[i].srcPath); err != nil {
			w.logger.Warn("failed to remove archived source",
				"path", pending[i].srcPath, "error", err)
		}
	}
	w.logger.Debug("flushed archive batch", "size", len(pending))
	return nil
}
