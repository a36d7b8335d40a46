package benchmark

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Metric names a contributed column.
type Metric string

const (
	MetricCPA                 Metric = "cpa"
	MetricCPC                 Metric = "cpc"
	MetricCPM                 Metric = "cpm"
	MetricConversionRate      Metric = "conversion_rate"
	MetricContentDeliveryRate Metric = "content_delivery_rate"
	MetricViewsPerDollar      Metric = "views_per_dollar"
)

// Noise factor range.
const (
	NoiseMin = 0.9
	NoiseMax = 1.1
)

var bucketWidths = map[Metric]decimal.Decimal{
	MetricCPA:                 decimal.NewFromInt(5),
	MetricCPC:                 decimal.New(1, -1),
	MetricCPM:                 decimal.NewFromInt(1),
	MetricConversionRate:      decimal.New(1, -4),
	MetricContentDeliveryRate: decimal.NewFromInt(5),
	MetricViewsPerDollar:      decimal.NewFromInt(10),
}

// BucketWidth returns the rounding step for m, or zero for unknown metrics.
func BucketWidth(m Metric) float64 {
	w, ok := bucketWidths[m]
	if !ok {
		return 0
	}
	f, _ := w.Float64()
	return f
}

// RoundToBucket rounds v to the nearest multiple of the metric's bucket width.
func RoundToBucket(m Metric, v float64) float64 {
	w, ok := bucketWidths[m]
	if !ok {
		return v
	}
	out, _ := decimal.NewFromFloat(v).Div(w).Round(0).Mul(w).Float64()
	return out
}

// Noiser perturbs values before they leave the tenant. It is safe for
// concurrent use.
type Noiser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNoiser creates a noiser. A nil rng is seeded from the clock.
func NewNoiser(rng *rand.Rand) *Noiser {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Noiser{rng: rng}
}

// Factor draws a multiplier uniformly from [NoiseMin, NoiseMax].
func (n *Noiser) Factor() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NoiseMin + (NoiseMax-NoiseMin)*n.rng.Float64()
}

// Apply scales v by an independent factor and rounds it to the metric bucket.
func (n *Noiser) Apply(m Metric, v float64) float64 {
	return RoundToBucket(m, v*n.Factor())
}

// ApplyPtr is Apply for nullable values; nil stays nil.
func (n *Noiser) ApplyPtr(m Metric, v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := n.Apply(m, *v)
	return &out
}
