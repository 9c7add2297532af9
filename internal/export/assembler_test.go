package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcombe/batnet-go/internal/datastore"
	"github.com/gcombe/batnet-go/internal/deployment"
	"github.com/gcombe/batnet-go/internal/errors"
)

// exportStore implements datastore.Interface returning canned export rows.
type exportStore struct {
	records []datastore.Record
	err     error
}

func (s *exportStore) Open() error { return nil }
func (s *exportStore) Close() error { return nil }
func (s *exportStore) SchemaExists() (bool, error) { return true, nil }
func (s *exportStore) Save(*datastore.Record, []datastore.Annotation) error { return nil }
func (s *exportStore) RecordExists(string) (bool, error) { return false, nil }
func (s *exportStore) Get(string) (datastore.Record, error) {
	return datastore.Record{}, datastore.ErrRecordNotFound
}
func (s *exportStore) Delete(uint) error { return nil }
func (s *exportStore) AllRecords() ([]datastore.Record, error) { return s.records, s.err }
func (s *exportStore) ExportRecords() ([]datastore.Record, error) { return s.records, s.err }
func (s *exportStore) ArchiveCandidates(*datastore.ArchiveFilter) ([]datastore.ArchiveCandidate, error) {
	return nil, nil
}
func (s *exportStore) MarkArchived([]datastore.ArchiveUpdate) error { return nil }

// recordingPusher captures pushed batches.
type recordingPusher struct {
	batches [][]Row
	err     error
}

func (p *recordingPusher) AddFeatures(_ context.Context, rows []Row) error {
	if p.err != nil {
		return p.err
	}
	batch := make([]Row, len(rows))
	copy(batch, rows)
	p.batches = append(p.batches, batch)
	return nil
}

func exportRecord(fileName string, ts time.Time) datastore.Record {
	return datastore.Record{
		FileName:       fileName,
		Serial:         "SMU01770",
		RecordTime:     &ts,
		RecordingNight: datastore.RecordingNightFor(ts),
		Duration:       5.0,
		ClassName:      "Myotis daubentonii",
	}
}

func testResolver(t *testing.T) *deployment.Resolver {
	t.Helper()
	start, err := time.Parse(time.RFC3339, "2022-05-01T00:00:00Z")
	require.NoError(t, err)
	end, err := time.Parse(time.RFC3339, "2022-06-01T00:00:00Z")
	require.NoError(t, err)
	return deployment.NewResolver([]deployment.Interval{
		{DeploymentID: 7, Serial: "SMU01770", Start: start, End: &end},
	})
}

func TestAssemblerExportsResolvedRecords(t *testing.T) {
	inRange := time.Date(2022, 5, 14, 22, 30, 0, 0, time.UTC)
	outOfRange := time.Date(2022, 7, 1, 22, 30, 0, 0, time.UTC)

	store := &exportStore{records: []datastore.Record{
		exportRecord("a.wav", inRange),
		exportRecord("unplaced.wav", outOfRange),
		exportRecord("b.wav", inRange),
	}}
	pusher := &recordingPusher{}

	assembler := NewAssembler(store, testResolver(t), pusher, 200)
	summary, err := assembler.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Exported)
	assert.Equal(t, 1, summary.Unresolved)
	require.Len(t, pusher.batches, 1)

	row := pusher.batches[0][0]
	assert.Equal(t, "a.wav", row.FileName)
	assert.Equal(t, 7, row.DeploymentID)
	assert.Equal(t, "Myotis daubentonii", row.ClassName)
	assert.Equal(t, "2022-05-14", row.RecordingNight)
}

func TestAssemblerBatchesPushes(t *testing.T) {
	ts := time.Date(2022, 5, 14, 22, 30, 0, 0, time.UTC)
	store := &exportStore{}
	for i := 0; i < 5; i++ {
		store.records = append(store.records, exportRecord(string(rune('a'+i))+".wav", ts))
	}
	pusher := &recordingPusher{}

	assembler := NewAssembler(store, testResolver(t), pusher, 2)
	summary, err := assembler.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Exported)
	require.Len(t, pusher.batches, 3)
	assert.Len(t, pusher.batches[0], 2)
	assert.Len(t, pusher.batches[1], 2)
	assert.Len(t, pusher.batches[2], 1)
}

func TestAssemblerStopsOnPushFailure(t *testing.T) {
	ts := time.Date(2022, 5, 14, 22, 30, 0, 0, time.UTC)
	store := &exportStore{records: []datastore.Record{
		exportRecord("a.wav", ts),
		exportRecord("b.wav", ts),
	}}
	pusher := &recordingPusher{err: errors.NewStd("service unavailable")}

	assembler := NewAssembler(store, testResolver(t), pusher, 1)
	summary, err := assembler.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, summary.Exported)
	assert.Equal(t, 1, summary.Failed)
}

func TestSplitBatches(t *testing.T) {
	rows := make([]Row, 5)

	assert.Nil(t, splitBatches(nil, 2))
	assert.Len(t, splitBatches(rows, 0), 1)
	assert.Len(t, splitBatches(rows, 2), 3)
	assert.Len(t, splitBatches(rows, 5), 1)
	assert.Len(t, splitBatches(rows, 10), 1)
}

func TestDryRunPusher(t *testing.T) {
	var buf bytes.Buffer
	pusher := &DryRunPusher{Out: &buf}

	err := pusher.AddFeatures(context.Background(), []Row{
		{FileName: "a.wav", DeploymentID: 7, ClassName: "Myotis daubentonii", RecordingNight: "2022-05-14", Duration: 5},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"file_name": "a.wav"`)
	assert.Contains(t, buf.String(), `"deployment_id": 7`)
}
