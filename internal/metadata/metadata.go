// Package metadata extracts capture metadata (sensor serial, capture
// timestamp) from recordings. Two strategies exist because different sensor
// fleets disagree on where the truth lives: full-spectrum recorders embed a
// GUANO sidecar chunk in the WAV container, while older units only encode
// serial and timestamp in the file name.
package metadata

import (
	"time"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/errors"
)

// ErrMetadataMissing indicates required capture metadata could not be read
// from a file. Per-file condition: the pipeline skips the file and continues.
var ErrMetadataMissing = errors.NewStd("capture metadata missing")

// Info is the capture metadata for one recording. Timestamp is nil when the
// source carried none.
type Info struct {
	Serial    string
	Timestamp *time.Time
}

// Extractor reads capture metadata for a recording file.
type Extractor interface {
	Extract(path string) (Info, error)
}

// NewExtractor returns the extractor selected by configuration.
func NewExtractor(settings *conf.Settings) (Extractor, error) {
	switch settings.Ingest.MetadataSource {
	case "guano":
		return &GuanoExtractor{}, nil
	case "filename":
		return &FilenameExtractor{}, nil
	default:
		return nil, errors.Newf("unknown metadata source %q", settings.Ingest.MetadataSource).
			Component("metadata").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func missingError(path, reason string) error {
	return errors.New(ErrMetadataMissing).
		Component("metadata").
		Category(errors.CategoryFileParsing).
		Priority(errors.PriorityLow).
		FileContext(path).
		Context("reason", reason).
		Build()
}
