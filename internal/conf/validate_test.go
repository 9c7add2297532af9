package conf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validSettings returns a settings struct that passes validation.
func validSettings() *Settings {
	s := &Settings{}
	s.BatDetect.Threshold = 0.5
	s.BatDetect.TargetSampleRate = 384000
	s.Ingest.MetadataSource = "guano"
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "batnet.db"
	s.Archive.FlushEvery = 10
	s.Archive.SampleRate = 384000
	return s
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantMsg string
	}{
		{
			name:    "threshold out of range",
			mutate:  func(s *Settings) { s.BatDetect.Threshold = 1.5 },
			wantMsg: "batdetect.threshold",
		},
		{
			name:    "unknown metadata source",
			mutate:  func(s *Settings) { s.Ingest.MetadataSource = "sidecar" },
			wantMsg: "ingest.metadatasource",
		},
		{
			name: "both outputs enabled",
			mutate: func(s *Settings) {
				s.Output.MySQL.Enabled = true
			},
			wantMsg: "mutually exclusive",
		},
		{
			name: "no output enabled",
			mutate: func(s *Settings) {
				s.Output.SQLite.Enabled = false
			},
			wantMsg: "no output database",
		},
		{
			name:    "sqlite without path",
			mutate:  func(s *Settings) { s.Output.SQLite.Path = "" },
			wantMsg: "output.sqlite.path",
		},
		{
			name:    "non positive flush cadence",
			mutate:  func(s *Settings) { s.Archive.FlushEvery = 0 },
			wantMsg: "archive.flushevery",
		},
		{
			name:    "sentry enabled without dsn",
			mutate:  func(s *Settings) { s.Sentry.Enabled = true },
			wantMsg: "sentry.dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateSettingsCollectsAllProblems(t *testing.T) {
	s := validSettings()
	s.BatDetect.Threshold = -1
	s.Archive.FlushEvery = -5
	s.Ingest.MetadataSource = ""

	err := ValidateSettings(s)
	require.Error(t, err)
	msg := err.Error()
	assert.Equal(t, 3, strings.Count(msg, "\n")+1, "expected three joined problems: %s", msg)
}
