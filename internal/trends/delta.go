// Package trends compares rolling windows of a tenant's history and
// classifies per-creator momentum. Everything here is a pure function of its
// inputs and the supplied clock.
package trends

import "math"

// Direction is the movement of a volume metric.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// CPADirection is the movement of cost per acquisition. A lower CPA is an
// improvement.
type CPADirection string

const (
	Improving CPADirection = "improving"
	Worsening CPADirection = "worsening"
	Stable    CPADirection = "stable"
	New       CPADirection = "new"
	Lost      CPADirection = "lost"
	// NoCPA marks two windows without any conversions.
	NoCPA     CPADirection = "flat"
)

// Deadband is the absolute percent change treated as no movement.
const Deadband = 5

// Change compares one metric across two windows.
type Change struct {
	Current   float64   `json:"current"`
	Previous  float64   `json:"previous"`
	Percent   int       `json:"percent"`
	Direction Direction `json:"direction"`
}

// Delta compares current against previous. Growth from zero counts as +100%.
func Delta(current, previous float64) Change {
	c := Change{Current: current, Previous: previous}

	switch {
	case current == 0 && previous == 0:
		c.Direction = Flat
	case previous == 0:
		if current > 0 {
			c.Percent, c.Direction = 100, Up
		} else {
			c.Percent, c.Direction = -100, Down
		}
	default:
		c.Percent = roundPercent((current - previous) / previous * 100)
		c.Direction = directionOf(c.Percent)
	}
	return c
}

func directionOf(percent int) Direction {
	switch {
	case percent > Deadband:
		return Up
	case percent < -Deadband:
		return Down
	default:
		return Flat
	}
}

// CPAChange compares cost per acquisition across two windows. Current and
// Previous are nil when the window had no conversions.
type CPAChange struct {
	Current   *float64     `json:"current"`
	Previous  *float64     `json:"previous"`
	Percent   int          `json:"percent"`
	Direction CPADirection `json:"direction"`
}

// CPADelta derives both CPAs and compares them with inverted polarity: a
// falling CPA is Improving.
func CPADelta(currentSpend, currentConversions, previousSpend, previousConversions float64) CPAChange {
	cur := cpa(currentSpend, currentConversions)
	prev := cpa(previousSpend, previousConversions)
	c := CPAChange{Current: cur, Previous: prev}

	switch {
	case cur == nil && prev == nil:
		c.Direction = NoCPA
	case prev == nil:
		c.Direction = New
	case cur == nil:
		c.Percent, c.Direction = -100, Lost
	case *prev == 0:
		if *cur > 0 {
			c.Percent, c.Direction = 100, Worsening
		} else {
			c.Direction = Stable
		}
	default:
		c.Percent = roundPercent((*cur - *prev) / *prev * 100)
		switch {
		case c.Percent < -Deadband:
			c.Direction = Improving
		case c.Percent > Deadband:
			c.Direction = Worsening
		default:
			c.Direction = Stable
		}
	}
	return c
}

func cpa(spend, conversions float64) *float64 {
	if conversions <= 0 || math.IsNaN(spend) || math.IsInf(spend, 0) {
		return nil
	}
	v := spend / conversions
	return &v
}

func roundPercent(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
