package metadata

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Recorder naming convention: SERIAL_YYYYMMDD_HHMMSS.wav.
var filenameTimestampPattern = regexp.MustCompile(`(\d{8})_(\d{6})`)

// FilenameExtractor derives capture metadata from the recorder's file naming
// convention. Used for fleets whose firmware writes no sidecar metadata.
type FilenameExtractor struct{}

// Extract parses serial and timestamp out of the file's base name. A name
// without the timestamp pattern yields a nil timestamp, not an error; the
// serial is everything before the first underscore.
func (f *FilenameExtractor) Extract(path string) (Info, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem == "" {
		return Info{}, missingError(path, "empty file name")
	}

	serial := stem
	if idx := strings.Index(stem, "_"); idx > 0 {
		serial = stem[:idx]
	}

	info := Info{Serial: serial}

	if m := filenameTimestampPattern.FindStringSubmatch(stem); m != nil {
		if ts, err := time.Parse("20060102_150405", m[1]+"_"+m[2]); err == nil {
			info.Timestamp = &ts
		}
	}

	return info, nil
}
