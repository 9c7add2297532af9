package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcombe/batnet-go/internal/batdetect"
	"github.com/gcombe/batnet-go/internal/datastore"
	"github.com/gcombe/batnet-go/internal/errors"
	"github.com/gcombe/batnet-go/internal/metadata"
)

// fakeStore implements datastore.Interface in memory.
type fakeStore struct {
	records map[string]*datastore.Record
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*datastore.Record)}
}

func (s *fakeStore) Open() error { return nil }
func (s *fakeStore) Close() error { return nil }
func (s *fakeStore) SchemaExists() (bool, error) { return true, nil }
func (s *fakeStore) Delete(uint) error { return nil }
func (s *fakeStore) AllRecords() ([]datastore.Record, error) { return nil, nil }
func (s *fakeStore) ExportRecords() ([]datastore.Record, error) { return nil, nil }
func (s *fakeStore) ArchiveCandidates(*datastore.ArchiveFilter) ([]datastore.ArchiveCandidate, error) {
	return nil, nil
}
func (s *fakeStore) MarkArchived([]datastore.ArchiveUpdate) error { return nil }

func (s *fakeStore) RecordExists(fileName string) (bool, error) {
	_, ok := s.records[fileName]
	return ok, nil
}

func (s *fakeStore) Save(record *datastore.Record, annotations []datastore.Annotation) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.records[record.FileName]; ok {
		return datastore.ErrRecordExists
	}
	record.Annotations = annotations
	s.records[record.FileName] = record
	return nil
}

func (s *fakeStore) Get(fileName string) (datastore.Record, error) {
	rec, ok := s.records[fileName]
	if !ok {
		return datastore.Record{}, datastore.ErrRecordNotFound
	}
	return *rec, nil
}

// fakeExtractor returns fixed metadata or an error per file name.
type fakeExtractor struct {
	missing map[string]bool
}

func (f *fakeExtractor) Extract(path string) (metadata.Info, error) {
	name := filepath.Base(path)
	if f.missing[name] {
		return metadata.Info{}, metadata.ErrMetadataMissing
	}
	ts := time.Date(2022, 5, 14, 22, 30, 0, 0, time.UTC)
	return metadata.Info{Serial: "SMU01770", Timestamp: &ts}, nil
}

// fakeDetector returns a canned prediction and records what it was asked.
type fakeDetector struct {
	calls []string
	err   error
}

func (f *fakeDetector) Detect(_ context.Context, path string) (batdetect.Prediction, error) {
	f.calls = append(f.calls, filepath.Base(path))
	if f.err != nil {
		return batdetect.Prediction{}, f.err
	}
	return batdetect.Prediction{
		Duration:  5.0,
		ClassName: "Myotis daubentonii",
		Events: []batdetect.Event{
			{StartTime: 0.5, EndTime: 0.52, LowFreq: 35000, HighFreq: 82000, Class: "Myotis daubentonii", ClassProb: 0.91, DetProb: 0.95, Event: "Echolocation"},
		},
	}, nil
}

// writeWavTree creates <root>/<deployment-date>/<location>/data/ with empty
// WAV files named as given.
func writeWavTree(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "2022-05-14", "meadow-north", "data")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("RIFF"), 0o644))
	}
	return root
}

func TestPipelineIngestsNewFiles(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{}
	pipeline := NewWithCollaborators(store, &fakeExtractor{}, detector)

	root := writeWavTree(t, "a.wav", "b.wav", "notes.txt")

	summary, err := pipeline.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Zero(t, summary.SkippedExisting)
	assert.Zero(t, summary.Failed)
	assert.NotEmpty(t, summary.RunID)
	// Non-WAV files are never handed to the detector.
	assert.ElementsMatch(t, []string{"a.wav", "b.wav"}, detector.calls)

	rec, err := store.Get("a.wav")
	require.NoError(t, err)
	assert.Equal(t, "SMU01770", rec.Serial)
	assert.Equal(t, "meadow-north", rec.LocationID)
	assert.Equal(t, "2022-05-14", rec.RecordingNight)
	assert.Equal(t, "no", rec.Backup)
	require.Len(t, rec.Annotations, 1)
}

func TestPipelineIsIdempotent(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{}
	pipeline := NewWithCollaborators(store, &fakeExtractor{}, detector)

	root := writeWavTree(t, "a.wav")

	_, err := pipeline.Run(context.Background(), root)
	require.NoError(t, err)

	summary, err := pipeline.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, 1, summary.SkippedExisting)
	// The second run must not re-detect the known file.
	assert.Len(t, detector.calls, 1)
}

func TestPipelineSkipsFilesWithoutMetadata(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{}
	extractor := &fakeExtractor{missing: map[string]bool{"broken.wav": true}}
	pipeline := NewWithCollaborators(store, extractor, detector)

	root := writeWavTree(t, "good.wav", "broken.wav")

	summary, err := pipeline.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.SkippedMetadata)
	assert.ElementsMatch(t, []string{"good.wav"}, detector.calls)
}

func TestPipelineCountsDetectorFailures(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{err: errors.NewStd("model crashed")}
	pipeline := NewWithCollaborators(store, &fakeExtractor{}, detector)

	root := writeWavTree(t, "a.wav", "b.wav")

	summary, err := pipeline.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, 2, summary.Failed)
}

func TestPipelineTreatsConcurrentDuplicateAsSkip(t *testing.T) {
	store := newFakeStore()
	store.saveErr = datastore.ErrRecordExists
	pipeline := NewWithCollaborators(store, &fakeExtractor{}, &fakeDetector{})

	root := writeWavTree(t, "a.wav")

	summary, err := pipeline.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 1, summary.SkippedExisting)
}

func TestPipelineAbortsWhenStoreUnavailable(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.Join(datastore.ErrStoreUnavailable, errors.NewStd("database is locked"))
	pipeline := NewWithCollaborators(store, &fakeExtractor{}, &fakeDetector{})

	root := writeWavTree(t, "a.wav", "b.wav", "c.wav")

	_, err := pipeline.Run(context.Background(), root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datastore.ErrStoreUnavailable))
}

func TestLocationFromPath(t *testing.T) {
	assert.Equal(t, "meadow-north",
		locationFromPath("/recordings/2022-05-14/meadow-north/data/a.wav"))
}
