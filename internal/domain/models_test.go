package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatus_CanTransitionTo(t *testing.T) {
	all := []TaskStatus{TaskStatusQueued, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed}
	allowed := map[[2]TaskStatus]bool{
		{TaskStatusQueued, TaskStatusProcessing}:    true,
		{TaskStatusProcessing, TaskStatusCompleted}: true,
		{TaskStatusProcessing, TaskStatusFailed}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]TaskStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestClampEfficiency(t *testing.T) {
	assert.Equal(t, 0.0, ClampEfficiency(-5))
	assert.Equal(t, 100.0, ClampEfficiency(140))
	assert.Equal(t, 42.5, ClampEfficiency(42.5))
	assert.Equal(t, 0.0, ClampEfficiency(math.NaN()))

	w := Worker{}
	w.SetEfficiency(101)
	assert.Equal(t, MaxEfficiency, w.Efficiency)
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("")
	assert.True(t, ok)
	assert.Equal(t, PriorityNormal, p)

	p, ok = ParsePriority(" urgent ")
	assert.True(t, ok)
	assert.Equal(t, PriorityUrgent, p)
	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityNormal.Rank(), PriorityLow.Rank())

	_, ok = ParsePriority("whenever")
	assert.False(t, ok)
}

func TestParseCadence(t *testing.T) {
	c, ok := ParseCadence("strategic")
	assert.True(t, ok)
	assert.Equal(t, CadenceStrategic, c)

	_, ok = ParseCadence("weekly")
	assert.False(t, ok)
}

func TestStringSet(t *testing.T) {
	s := NewStringSet("Beta", "alpha", " beta ", "")
	assert.Equal(t, StringSet{"alpha", "beta"}, s)
	assert.True(t, s.Contains("beta"))

	s2 := s.With("gamma").Without("ALPHA")
	assert.Equal(t, StringSet{"beta", "gamma"}, s2)
	assert.Equal(t, StringSet{"alpha", "beta"}, s, "With and Without return new sets")

	v, err := StringSet(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var scanned StringSet
	require.NoError(t, scanned.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, StringSet{"x", "y"}, scanned)
}

func TestProposalAnalysis_RoundTripsThroughScanner(t *testing.T) {
	in := ProposalAnalysis{Weaknesses: []string{"slow"}, Confidence: 0.4, ExpectedGain: 2}
	v, err := in.Value()
	require.NoError(t, err)

	var out ProposalAnalysis
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, ProposalStatusMerged.Terminal())
	assert.True(t, ProposalStatusRejected.Terminal())
	assert.False(t, ProposalStatusApproved.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
	assert.False(t, TaskStatusProcessing.Terminal())
}
