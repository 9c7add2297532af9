package archive

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DerivePath maps a source WAV path to its archive destination. The source
// layout is <...>/<deployment-date>/<location>/data/<file>.wav; the
// destination mirrors the date and location segments under flacRoot:
//
//	<flacRoot>/<deployment-date>/<location>/data/<stem>.flac
func DerivePath(flacRoot, wavPath string) (string, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(wavPath)), "/")
	if len(parts) < 4 {
		return "", fmt.Errorf("source path %q has too few components to derive an archive path", wavPath)
	}

	deploymentDate := parts[len(parts)-4]
	location := parts[len(parts)-3]
	stem := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))

	return filepath.Join(flacRoot, deploymentDate, location, "data", stem+".flac"), nil
}
