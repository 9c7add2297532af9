// model.go this code defines the data model for the application
package datastore

import "time"

// Record represents one physical recording and its classification outcome.
// FileName is the identity key: a physical file is represented exactly once.
type Record struct {
	ID             uint       `gorm:"primaryKey"`
	FileName       string     `gorm:"uniqueIndex;not null"`
	LocationID     string     `gorm:"index:idx_records_location"`
	Serial         string     `gorm:"index:idx_records_serial"`
	RecordTime     *time.Time // capture timestamp, nil when metadata carried none
	RecordingNight string     `gorm:"index:idx_records_night"` // ISO date of the night the capture belongs to
	Duration       float64    // seconds
	ClassName      string     // classification label, "None" when unclassified
	Validated      string
	IDCorrect      string
	Comments       string
	Backup         string `gorm:"default:no"` // archival status, "no" or "yes"
	BackupPath     string // archival destination path once backed up
	RecordPath     string // source file path
	Annotations    []Annotation `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
}

// Annotation represents one detected acoustic event within a Record's time span.
type Annotation struct {
	ID         uint    `gorm:"primaryKey"`
	RecordID   uint    `gorm:"index;not null"`
	StartTime  float64 // offset into the recording, seconds
	EndTime    float64
	LowFreq    int // Hz
	HighFreq   int // Hz
	SppClass   string
	ClassProb  float64
	DetProb    float64
	Individual int
	Event      string
}

// RecordingNightFor buckets a capture timestamp to the night it belongs to.
// Captures after midnight but before noon count toward the previous day's
// night, so a 02:00 capture on the 25th files under the night of the 24th.
func RecordingNightFor(t time.Time) string {
	if t.Hour() < 12 {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format("2006-01-02")
}
