package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordingNightFor(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"evening capture files under its own date", time.Date(2022, 5, 24, 22, 15, 0, 0, time.UTC), "2022-05-24"},
		{"capture after midnight files under previous date", time.Date(2022, 5, 25, 2, 0, 0, 0, time.UTC), "2022-05-24"},
		{"just before noon still counts as previous night", time.Date(2022, 5, 25, 11, 59, 59, 0, time.UTC), "2022-05-24"},
		{"noon starts a new night", time.Date(2022, 5, 25, 12, 0, 0, 0, time.UTC), "2022-05-25"},
		{"month boundary", time.Date(2022, 6, 1, 1, 30, 0, 0, time.UTC), "2022-05-31"},
		{"year boundary", time.Date(2023, 1, 1, 3, 0, 0, 0, time.UTC), "2022-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecordingNightFor(tt.ts))
		})
	}
}
