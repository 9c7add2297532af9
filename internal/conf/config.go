// config.go: settings struct and functions to load and save the batnet configuration.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for a service log file.
type LogConfig struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file
}

// BatDetectConfig contains settings for the external BatDetect2 collaborator.
type BatDetectConfig struct {
	Command          string  // command used to invoke the detector
	Threshold        float64 // detection threshold, 0 to 1
	ChunkSize        int     // analysis chunk size in seconds
	TargetSampleRate int     // sample rate the detector resamples input to
	MinFreqHz        int     // low frequency cutoff in Hz
}

// IngestSettings contains settings for the ingestion pipeline.
type IngestSettings struct {
	MetadataSource string // "guano" for sidecar metadata, "filename" for name-derived
}

// ArchiveFilterSettings is the declarative selection predicate for the
// archival workflow. Zero values disable the corresponding condition.
type ArchiveFilterSettings struct {
	ClassName         string   // select records with this classification label
	Backup            string   // select records with this backup flag
	RequireRecordPath bool     // select only records with a stored source path
	ExcludeLocations  []string // location identifiers to skip
}

// ArchiveSettings contains settings for the transcode and backup workflow.
type ArchiveSettings struct {
	WavRoot    string // root directory searched when a record has no stored source path
	FlacRoot   string // root directory for archival FLAC output
	FfmpegPath string // path to ffmpeg binary, "ffmpeg" resolves from PATH
	SampleRate int    // target sample rate for the lossless re-encode
	Bitrate    string // audio bitrate passed to the encoder
	FlushEvery int    // number of files between durable ledger flushes
	Verify     bool   // true to decode-verify produced FLAC files
	Filter     ArchiveFilterSettings
}

// FeatureServiceSettings contains settings for the remote deployment
// metadata and export feed service.
type FeatureServiceSettings struct {
	Endpoint        string // base URL of the feature service
	Token           string // access token
	DeploymentLayer string // layer/table identifier holding deployment intervals
	RecordTable     string // table identifier receiving exported record features
	BatchSize       int    // features per add-features request
}

// SentrySettings contains settings for error telemetry.
type SentrySettings struct {
	Enabled     bool   // true to enable Sentry error reporting
	DSN         string // Sentry DSN
	Environment string // deployment environment tag
}

// OutputSettings contains the persistence store selection.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   // true to enable SQLite output
		Path    string // path to SQLite database
	}
	MySQL struct {
		Enabled  bool   // true to enable MySQL output
		Username string // MySQL username
		Password string // MySQL password
		Database string // MySQL database name
		Host     string // MySQL host
		Port     string // MySQL port
	}
}

// Settings is the root configuration for batnet.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main struct {
		Name string    // node name, used to identify the instance
		Log  LogConfig // main log file settings
	}

	BatDetect BatDetectConfig
	Ingest    IngestSettings
	Output    OutputSettings
	Archive   ArchiveSettings
	Export    FeatureServiceSettings
	Sentry    SentrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings struct, applying defaults
// and validating the result.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with config file paths and default values.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// function defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default settings as YAML to the primary
// config path so the first run leaves an editable file behind.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the config file search paths in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	var paths []string

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "batnet"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	paths = append(paths, filepath.Join(homeDir, ".config", "batnet"), ".")

	return paths, nil
}

// Setting returns the current settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
