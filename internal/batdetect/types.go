package batdetect

import "github.com/gcombe/batnet-go/internal/conf"

// Config is the detection configuration bundle handed to the external
// detector on every invocation.
type Config struct {
	Command          string
	Threshold        float64
	ChunkSize        int
	TargetSampleRate int
	MinFreqHz        int
}

// ConfigFromSettings builds the detector configuration from loaded settings.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		Command:          s.BatDetect.Command,
		Threshold:        s.BatDetect.Threshold,
		ChunkSize:        s.BatDetect.ChunkSize,
		TargetSampleRate: s.BatDetect.TargetSampleRate,
		MinFreqHz:        s.BatDetect.MinFreqHz,
	}
}

// Event is one detected call within a recording.
type Event struct {
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	LowFreq    int     `json:"low_freq"`
	HighFreq   int     `json:"high_freq"`
	Class      string  `json:"class"`
	ClassProb  float64 `json:"class_prob"`
	DetProb    float64 `json:"det_prob"`
	Individual int     `json:"individual"`
	Event      string  `json:"event"`
}

// Prediction is the detector's result for one file: a file-level
// classification label, the recording duration, and zero or more events.
type Prediction struct {
	ID        string  `json:"id"`
	Duration  float64 `json:"duration"`
	ClassName string  `json:"class_name"`
	Events    []Event `json:"annotation"`
}

// resultEnvelope matches the detector's output document, which wraps the
// prediction in a pred_dict field.
type resultEnvelope struct {
	PredDict *Prediction `json:"pred_dict"`
}
