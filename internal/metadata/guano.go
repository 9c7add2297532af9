package metadata

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// guanoChunkID is the RIFF chunk carrying GUANO metadata.
var guanoChunkID = [4]byte{'g', 'u', 'a', 'n'}

// Accepted timestamp layouts, in the order recorders have been seen to use
// them. GUANO permits both local and offset-qualified timestamps.
var guanoTimeLayouts = []string{
	"2006-01-02 15:04:05.000-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// GuanoExtractor reads the GUANO sidecar chunk embedded in a WAV container.
type GuanoExtractor struct{}

// Extract scans the file's RIFF chunks for GUANO metadata and returns the
// sensor serial and capture timestamp found there.
func (g *GuanoExtractor) Extract(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, missingError(path, "cannot open file: "+err.Error())
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Info{}, missingError(path, "not a valid WAV file")
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Info{}, missingError(path, "cannot rewind file: "+err.Error())
	}

	raw, err := readGuanoChunk(f)
	if err != nil {
		return Info{}, missingError(path, err.Error())
	}

	fields := parseGuanoFields(raw)

	serial := fields["Serial"]
	if serial == "" {
		return Info{}, missingError(path, "GUANO chunk has no Serial field")
	}

	tsValue := fields["Timestamp"]
	if tsValue == "" {
		return Info{}, missingError(path, "GUANO chunk has no Timestamp field")
	}
	ts, err := parseGuanoTimestamp(tsValue)
	if err != nil {
		return Info{}, missingError(path, "unparseable GUANO timestamp "+tsValue)
	}

	return Info{Serial: serial, Timestamp: &ts}, nil
}

// readGuanoChunk walks the RIFF container until it finds the guan chunk and
// returns its payload.
func readGuanoChunk(r io.Reader) (string, error) {
	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return "", err
	}

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if chunk.ID == guanoChunkID {
			buf := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk, buf); err != nil {
				return "", err
			}
			return string(buf), nil
		}
		chunk.Drain()
	}
}

// parseGuanoFields splits GUANO payload text into key/value pairs. GUANO is
// newline separated "Key:Value" text; values may contain further colons.
func parseGuanoFields(raw string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r\x00")
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}

func parseGuanoTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range guanoTimeLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
