// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "batnet")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "batnet.log")

	viper.SetDefault("batdetect.command", "batdetect2")
	viper.SetDefault("batdetect.threshold", 0.5)
	viper.SetDefault("batdetect.chunksize", 5)
	viper.SetDefault("batdetect.targetsamplerate", 384000)
	viper.SetDefault("batdetect.minfreqhz", 16000)

	viper.SetDefault("ingest.metadatasource", "guano")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "batnet.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "batnet")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "batnet")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("archive.wavroot", "")
	viper.SetDefault("archive.flacroot", "")
	viper.SetDefault("archive.ffmpegpath", "ffmpeg")
	viper.SetDefault("archive.samplerate", 384000)
	viper.SetDefault("archive.bitrate", "6144k")
	viper.SetDefault("archive.flushevery", 10)
	viper.SetDefault("archive.verify", true)
	viper.SetDefault("archive.filter.classname", "None")
	viper.SetDefault("archive.filter.backup", "no")
	viper.SetDefault("archive.filter.requirerecordpath", true)
	viper.SetDefault("archive.filter.excludelocations", []string{})

	viper.SetDefault("export.endpoint", "")
	viper.SetDefault("export.token", "")
	viper.SetDefault("export.deploymentlayer", "0")
	viper.SetDefault("export.recordtable", "1")
	viper.SetDefault("export.batchsize", 200)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
}
