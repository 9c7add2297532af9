package deployment

import (
	"sort"
	"time"

	"github.com/gcombe/batnet-go/internal/errors"
)

// ErrDeploymentNotFound indicates no deployment interval covers the
// requested serial and timestamp.
var ErrDeploymentNotFound = errors.NewStd("deployment: no deployment found")

// Interval is one deployment of a recorder: the detector with the given
// serial was installed at a location from Start until End. A nil End means
// the deployment is still active.
type Interval struct {
	DeploymentID int
	Serial       string
	Start        time.Time
	End          *time.Time
}

// contains reports whether ts falls within the interval. The start bound is
// inclusive and the end bound exclusive, so back-to-back deployments hand
// over cleanly at the boundary instant.
func (iv *Interval) contains(ts time.Time) bool {
	if ts.Before(iv.Start) {
		return false
	}
	if iv.End != nil && !ts.Before(*iv.End) {
		return false
	}
	return true
}

// Resolver answers which deployment was active for a given recorder serial
// at a given instant. It is immutable after construction and safe for
// concurrent use.
type Resolver struct {
	bySerial map[string][]Interval
}

// NewResolver indexes the given intervals by serial. Intervals for each
// serial are kept sorted by start time ascending, so when intervals overlap
// the one that started earliest wins.
func NewResolver(intervals []Interval) *Resolver {
	bySerial := make(map[string][]Interval)
	for _, iv := range intervals {
		bySerial[iv.Serial] = append(bySerial[iv.Serial], iv)
	}
	for serial := range bySerial {
		ivs := bySerial[serial]
		sort.SliceStable(ivs, func(i, j int) bool {
			return ivs[i].Start.Before(ivs[j].Start)
		})
		bySerial[serial] = ivs
	}
	return &Resolver{bySerial: bySerial}
}

// Resolve returns the deployment ID active for serial at ts, or
// ErrDeploymentNotFound when no interval covers the instant.
func (r *Resolver) Resolve(serial string, ts time.Time) (int, error) {
	for i := range r.bySerial[serial] {
		iv := &r.bySerial[serial][i]
		if iv.contains(ts) {
			return iv.DeploymentID, nil
		}
	}
	return 0, ErrDeploymentNotFound
}
