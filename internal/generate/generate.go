// Package generate produces synthetic multi-lap telemetry with injected
// driver weaknesses, for fixtures and demos.
package generate

import (
	"math"
	"math/rand/v2"
	"time"

	"lapfinder/internal/telemetry"
)

const (
	DefaultLaps   = 30
	DefaultPoints = 3000

	baseDT = 0.045 // ~22 Hz
)

// Weakness is the primary driver mistake injected into a lap
type Weakness string

const (
	WeakBraking      Weakness = "braking"
	WeakExit         Weakness = "exit"
	WeakLateThrottle Weakness = "late_throttle"
)

// Corner is a zone of normalized track position
type Corner struct {
	Start float64
	End   float64
}

// Corners are the corner zones of the synthetic circuit
var Corners = []Corner{
	{0.10, 0.18},
	{0.32, 0.40},
	{0.55, 0.65}, // hairpin
	{0.78, 0.86},
}

// Options controls generation. A nil Seed draws one from the clock.
type Options struct {
	Seed   *uint64
	Laps   int
	Points int // samples per lap
}

// LapPlan records which weakness was injected into a lap and where
type LapPlan struct {
	Lap         int
	Weakness    Weakness
	BrakeCorner int
	ExitCorner  int
}

// Generate returns samples for every lap in time order
func Generate(opts Options) []telemetry.Sample {
	samples, _ := GenerateWithPlan(opts)
	return samples
}

// GenerateWithPlan is Generate plus the per-lap weakness plan
func GenerateWithPlan(opts Options) ([]telemetry.Sample, []LapPlan) {
	if opts.Laps <= 0 {
		opts.Laps = DefaultLaps
	}
	if opts.Points <= 0 {
		opts.Points = DefaultPoints
	}
	seed := uint64(time.Now().UnixNano())
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	samples := make([]telemetry.Sample, 0, opts.Laps*opts.Points)
	plans := make([]LapPlan, 0, opts.Laps)
	timestamp := 0.0

	for lap := 1; lap <= opts.Laps; lap++ {
		plan := LapPlan{
			Lap:         lap,
			Weakness:    pickWeakness(rng),
			ExitCorner:  rng.IntN(len(Corners)),
			BrakeCorner: rng.IntN(len(Corners)),
		}
		plans = append(plans, plan)

		for i := 0; i < opts.Points; i++ {
			pos := float64(i) / float64(opts.Points)
			s, dt := sampleAt(rng, plan, pos)
			timestamp += dt
			s.Timestamp = timestamp
			s.Lap = lap
			samples = append(samples, s)
		}
	}
	return samples, plans
}

func pickWeakness(rng *rand.Rand) Weakness {
	r := rng.Float64()
	switch {
	case r < 0.35:
		return WeakBraking
	case r < 0.70:
		return WeakExit
	default:
		return WeakLateThrottle
	}
}

func normal(rng *rand.Rand, mean, stddev float64) float64 {
	return mean + stddev*rng.NormFloat64()
}

func clip01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// sampleAt simulates one reading and the time step leading up to it
func sampleAt(rng *rand.Rand, plan LapPlan, pos float64) (telemetry.Sample, float64) {
	dt := baseDT + normal(rng, 0, 0.002)
	speed := normal(rng, 155, 4)
	throttle := clip01(normal(rng, 0.75, 0.1))
	brake := clip01(normal(rng, 0.05, 0.05))
	steering := normal(rng, 0, 0.15)

	for idx, c := range Corners {
		if pos < c.Start || pos > c.End {
			continue
		}
		speed -= 40
		throttle *= 0.55
		brake += 0.4
		steering += normal(rng, 0.4, 0.1)

		length := c.End - c.Start
		mid := (c.Start + c.End) / 2

		// Normal exit: throttle comes back after the midpoint and the brake
		// is released, except on braking-weak laps which hold a little more.
		if pos > mid {
			throttle = math.Max(throttle, 0.60)
			if plan.Weakness == WeakBraking && idx == plan.BrakeCorner {
				brake = math.Min(brake, 0.22)
			} else {
				brake = math.Min(brake, 0.10)
			}
		}

		// Braking-weak: time lost in the first 40% of the corner
		if plan.Weakness == WeakBraking && idx == plan.BrakeCorner && pos <= c.Start+0.40*length {
			dt += 0.060
		}

		// Exit-weak: time lost in the last 15% of the corner
		if plan.Weakness == WeakExit && idx == plan.ExitCorner && pos >= c.End-0.15*length {
			dt += 0.020
		}

		// Late throttle: stay under the throttle threshold for most of the exit
		if plan.Weakness == WeakLateThrottle && idx == plan.ExitCorner && pos > mid {
			if pos < c.End-0.12*length {
				throttle = math.Min(throttle, 0.12)
				brake = math.Min(brake, 0.08)
				dt += 0.012
			} else {
				throttle = math.Max(throttle, 0.70)
				brake = math.Min(brake, 0.05)
			}
		}
	}

	s := telemetry.Sample{
		Speed:         &speed,
		Throttle:      &throttle,
		Brake:         &brake,
		Steering:      &steering,
		TrackPosition: pos,
	}
	return s, dt
}
