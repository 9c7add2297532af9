package conf

import (
	"fmt"

	"github.com/gcombe/batnet-go/internal/errors"
)

// ValidateSettings checks the loaded settings for values that would fail at
// runtime in confusing ways. It collects all problems rather than stopping
// at the first one.
func ValidateSettings(settings *Settings) error {
	var errs []error

	if settings.BatDetect.Threshold < 0 || settings.BatDetect.Threshold > 1 {
		errs = append(errs, validationError("batdetect.threshold",
			fmt.Sprintf("must be between 0 and 1, got %g", settings.BatDetect.Threshold)))
	}
	if settings.BatDetect.TargetSampleRate <= 0 {
		errs = append(errs, validationError("batdetect.targetsamplerate", "must be positive"))
	}

	switch settings.Ingest.MetadataSource {
	case "guano", "filename":
	default:
		errs = append(errs, validationError("ingest.metadatasource",
			fmt.Sprintf("must be \"guano\" or \"filename\", got %q", settings.Ingest.MetadataSource)))
	}

	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		errs = append(errs, validationError("output", "sqlite and mysql outputs are mutually exclusive"))
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		errs = append(errs, validationError("output", "no output database enabled"))
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		errs = append(errs, validationError("output.sqlite.path", "must not be empty"))
	}

	if settings.Archive.FlushEvery <= 0 {
		errs = append(errs, validationError("archive.flushevery", "must be positive"))
	}
	if settings.Archive.SampleRate <= 0 {
		errs = append(errs, validationError("archive.samplerate", "must be positive"))
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		errs = append(errs, validationError("sentry.dsn", "required when sentry is enabled"))
	}

	return errors.Join(errs...)
}

func validationError(field, message string) error {
	return errors.Newf("%s: %s", field, message).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("field", field).
		Build()
}
