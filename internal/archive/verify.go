package archive

import (
	"fmt"
	"os"

	"github.com/tphakala/flac"

	"github.com/gcombe/batnet-go/internal/errors"
)

// VerifyFlac opens the transcoded file and checks it decodes as FLAC with a
// plausible stream. Run before a transcode is considered complete, so a
// corrupt output never causes the source to be deleted.
func VerifyFlac(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return verifyError(err, path)
	}
	defer func() { _ = file.Close() }()

	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return verifyError(fmt.Errorf("decoding flac header: %w", err), path)
	}
	if decoder.SampleRate <= 0 || decoder.TotalSamples == 0 {
		return verifyError(
			fmt.Errorf("flac stream reports sample rate %d and %d samples", decoder.SampleRate, decoder.TotalSamples),
			path)
	}
	return nil
}

func verifyError(err error, path string) error {
	return errors.New(err).
		Component("archive").
		Category(errors.CategoryFileParsing).
		Context("operation", "verify_flac").
		FileContext(path).
		Build()
}
