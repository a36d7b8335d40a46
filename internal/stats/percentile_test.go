package stats

import (
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	assert.InDelta(t, 17.5, Percentile(values, 0.25), 1e-9)
	assert.InDelta(t, 25, Percentile(values, 0.5), 1e-9)
	assert.InDelta(t, 32.5, Percentile(values, 0.75), 1e-9)
	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 40.0, Percentile(values, 1))
}

func TestPercentile_EdgeCases(t *testing.T) {
	assert.True(t, math.IsNaN(Percentile(nil, 0.5)))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.75))
	assert.Equal(t, 5.0, Percentile([]float64{5, 5, 5}, 0.25))
}

func TestComputeSegment_IgnoresNullsPerColumn(t *testing.T) {
	rows := []models.Contribution{
		{CPA: f(10), CPC: f(1)},
		{CPA: nil, CPC: f(2)},
		{CPA: f(30), CPC: nil},
	}

	seg := ComputeSegment("overall", rows, time.Unix(0, 0))

	assert.Equal(t, 3, seg.SampleSize)
	require.NotNil(t, seg.CPAP50)
	assert.InDelta(t, 20, *seg.CPAP50, 1e-9)
	require.NotNil(t, seg.CPCP50)
	assert.InDelta(t, 1.5, *seg.CPCP50, 1e-9)
	assert.Nil(t, seg.ViewsPerDollarP50)
}

func TestComputeSegment_QuartilesAreOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := 10 + rng.Intn(40)
		rows := make([]models.Contribution, n)
		for i := range rows {
			rows[i] = models.Contribution{CPA: f(rng.Float64() * 200)}
		}

		seg := ComputeSegment("overall", rows, time.Now())

		require.NotNil(t, seg.CPAP25)
		assert.LessOrEqual(t, *seg.CPAP25, *seg.CPAP50)
		assert.LessOrEqual(t, *seg.CPAP50, *seg.CPAP75)
	}
}

func TestPercentile_WithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 25)
	for i := range values {
		values[i] = rng.NormFloat64() * 100
	}
	sort.Float64s(values)

	for _, p := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		q := Percentile(values, p)
		assert.GreaterOrEqual(t, q, values[0])
		assert.LessOrEqual(t, q, values[len(values)-1])
	}
}
