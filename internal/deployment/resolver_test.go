package deployment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func timePtr(ts time.Time) *time.Time { return &ts }

func TestResolverWithinInterval(t *testing.T) {
	start := mustTime(t, "2022-05-01T00:00:00Z")
	end := mustTime(t, "2022-06-01T00:00:00Z")
	resolver := NewResolver([]Interval{
		{DeploymentID: 7, Serial: "SMU01770", Start: start, End: timePtr(end)},
	})

	id, err := resolver.Resolve("SMU01770", mustTime(t, "2022-05-14T22:30:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestResolverBoundaries(t *testing.T) {
	start := mustTime(t, "2022-05-01T00:00:00Z")
	handover := mustTime(t, "2022-06-01T00:00:00Z")
	resolver := NewResolver([]Interval{
		{DeploymentID: 1, Serial: "SMU01770", Start: start, End: timePtr(handover)},
		{DeploymentID: 2, Serial: "SMU01770", Start: handover, End: nil},
	})

	// Start is inclusive.
	id, err := resolver.Resolve("SMU01770", start)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	// End is exclusive: a capture at the handover instant belongs to the
	// deployment that starts there, never to both.
	id, err = resolver.Resolve("SMU01770", handover)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestResolverOpenEndedInterval(t *testing.T) {
	resolver := NewResolver([]Interval{
		{DeploymentID: 3, Serial: "SMU01770", Start: mustTime(t, "2022-05-01T00:00:00Z"), End: nil},
	})

	id, err := resolver.Resolve("SMU01770", mustTime(t, "2030-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = resolver.Resolve("SMU01770", mustTime(t, "2022-04-30T23:59:59Z"))
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}

func TestResolverOverlapEarliestStartWins(t *testing.T) {
	resolver := NewResolver([]Interval{
		{DeploymentID: 20, Serial: "SMU01770", Start: mustTime(t, "2022-05-10T00:00:00Z"), End: timePtr(mustTime(t, "2022-06-10T00:00:00Z"))},
		{DeploymentID: 10, Serial: "SMU01770", Start: mustTime(t, "2022-05-01T00:00:00Z"), End: timePtr(mustTime(t, "2022-06-01T00:00:00Z"))},
	})

	id, err := resolver.Resolve("SMU01770", mustTime(t, "2022-05-15T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 10, id)
}

func TestResolverUnknownSerial(t *testing.T) {
	resolver := NewResolver([]Interval{
		{DeploymentID: 1, Serial: "SMU01770", Start: mustTime(t, "2022-05-01T00:00:00Z"), End: nil},
	})

	_, err := resolver.Resolve("SMU09999", mustTime(t, "2022-05-15T00:00:00Z"))
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}

func TestResolverGapBetweenDeployments(t *testing.T) {
	resolver := NewResolver([]Interval{
		{DeploymentID: 1, Serial: "SMU01770", Start: mustTime(t, "2022-05-01T00:00:00Z"), End: timePtr(mustTime(t, "2022-05-10T00:00:00Z"))},
		{DeploymentID: 2, Serial: "SMU01770", Start: mustTime(t, "2022-05-20T00:00:00Z"), End: nil},
	})

	// The recorder was in transit between deployments.
	_, err := resolver.Resolve("SMU01770", mustTime(t, "2022-05-15T00:00:00Z"))
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}
