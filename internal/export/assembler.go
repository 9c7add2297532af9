package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/gcombe/batnet-go/internal/datastore"
	"github.com/gcombe/batnet-go/internal/deployment"
	"github.com/gcombe/batnet-go/internal/errors"
	"github.com/gcombe/batnet-go/internal/logging"
)

// Summary reports the outcome of one export run.
type Summary struct {
	Exported   int
	Unresolved int
	Failed     int
}

// Assembler joins eligible records against deployment intervals and pushes
// the resulting feed in batches.
type Assembler struct {
	store     datastore.Interface
	resolver  *deployment.Resolver
	pusher    Pusher
	batchSize int
	logger    *slog.Logger
}

// NewAssembler wires the assembler. A batchSize below one falls back to
// pushing everything in a single batch.
func NewAssembler(store datastore.Interface, resolver *deployment.Resolver, pusher Pusher, batchSize int) *Assembler {
	return &Assembler{
		store:     store,
		resolver:  resolver,
		pusher:    pusher,
		batchSize: batchSize,
		logger:    logging.ForService("export"),
	}
}

// Run assembles and pushes the feed. Records whose serial and timestamp
// resolve to no deployment are counted and left behind for the next run.
func (a *Assembler) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	records, err := a.store.ExportRecords()
	if err != nil {
		return summary, err
	}

	rows := make([]Row, 0, len(records))
	for i := range records {
		rec := &records[i]
		deploymentID, err := a.resolver.Resolve(rec.Serial, *rec.RecordTime)
		if err != nil {
			if errors.Is(err, deployment.ErrDeploymentNotFound) {
				summary.Unresolved++
				a.logger.Warn("no deployment covers record",
					"file_name", rec.FileName,
					"serial", rec.Serial,
					"record_time", rec.RecordTime)
				continue
			}
			return summary, err
		}
		rows = append(rows, Row{
			FileName:       rec.FileName,
			DeploymentID:   deploymentID,
			ClassName:      rec.ClassName,
			RecordingNight: rec.RecordingNight,
			Duration:       rec.Duration,
		})
	}

	for _, batch := range splitBatches(rows, a.batchSize) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := a.pusher.AddFeatures(ctx, batch); err != nil {
			summary.Failed += len(batch)
			return summary, err
		}
		summary.Exported += len(batch)
	}

	a.logger.Info("export run complete",
		"exported", summary.Exported,
		"unresolved", summary.Unresolved,
		"failed", summary.Failed)
	return summary, nil
}

func splitBatches(rows []Row, size int) [][]Row {
	if len(rows) == 0 {
		return nil
	}
	if size < 1 {
		return [][]Row{rows}
	}
	var batches [][]Row
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		batches = append(batches, rows[start:end])
	}
	return batches
}

// DryRunPusher writes each batch as indented JSON instead of pushing it.
type DryRunPusher struct {
	Out io.Writer
}

// AddFeatures prints the batch to Out.
func (d *DryRunPusher) AddFeatures(_ context.Context, rows []Row) error {
	enc := json.NewEncoder(d.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
