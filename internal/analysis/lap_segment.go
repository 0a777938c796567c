package analysis

// Thresholds classify each sample by driver input
type Thresholds struct {
	Brake    float64
	Throttle float64
}

// InputState is the mutually exclusive driver-input state of a sample
type InputState int

const (
	StateCoast InputState = iota
	StateBraking
	StateThrottle
)

// Classify returns the input state of a point. Braking wins when a sample
// meets both thresholds; missing pedal values never meet a threshold.
func (th Thresholds) Classify(p Point) InputState {
	if p.Brake != nil && *p.Brake >= th.Brake {
		return StateBraking
	}
	if p.Throttle != nil && *p.Throttle >= th.Throttle {
		return StateThrottle
	}
	return StateCoast
}

// LapSegmentRecord aggregates one (lap, segment) pair.
// The apex split fields are nil when the group has fewer than two samples
// or no speed readings at all.
type LapSegmentRecord struct {
	Lap          int
	Segment      string
	SegmentIndex int
	Samples      int

	SegDT      float64 // total time in the segment
	BrakeDT    float64
	ThrottleDT float64
	CoastDT    float64

	EntryDT             *float64 // segment start through the min-speed sample
	ExitThrottleDelayDT *float64 // after min speed through first throttle reapplication
	ExitDT              *float64 // first throttle reapplication through segment end

	AvgSpeed    *float64
	AvgThrottle *float64
	AvgBrake    *float64
}

type lapSegmentKey struct {
	lap     int
	segment int
}

// LapSegmentMetrics builds one record per non-empty (lap, segment) group.
// Points must already carry filtered deltas; groups are emitted in order of
// first appearance and each group keeps its time order.
func LapSegmentMetrics(points []Point, th Thresholds) []LapSegmentRecord {
	var order []lapSegmentKey
	groups := make(map[lapSegmentKey][]Point)
	for _, p := range points {
		k := lapSegmentKey{lap: p.Lap, segment: p.Segment}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p)
	}

	records := make([]LapSegmentRecord, 0, len(order))
	for _, k := range order {
		records = append(records, lapSegmentRecord(k, groups[k], th))
	}
	return records
}

func lapSegmentRecord(k lapSegmentKey, g []Point, th Thresholds) LapSegmentRecord {
	rec := LapSegmentRecord{
		Lap:          k.lap,
		Segment:      SegmentLabel(k.segment),
		SegmentIndex: k.segment,
		Samples:      len(g),
	}

	states := make([]InputState, len(g))
	var speeds, throttles, brakes []float64
	for i, p := range g {
		dt := dtOf(p)
		rec.SegDT += dt
		states[i] = th.Classify(p)
		switch states[i] {
		case StateBraking:
			rec.BrakeDT += dt
		case StateThrottle:
			rec.ThrottleDT += dt
		default:
			rec.CoastDT += dt
		}

		if p.Speed != nil {
			speeds = append(speeds, *p.Speed)
		}
		if p.Throttle != nil {
			throttles = append(throttles, *p.Throttle)
		}
		if p.Brake != nil {
			brakes = append(brakes, *p.Brake)
		}
	}
	rec.AvgSpeed = mean(speeds)
	rec.AvgThrottle = mean(throttles)
	rec.AvgBrake = mean(brakes)

	apex := apexIndex(g)
	if len(g) < 2 || apex < 0 {
		return rec
	}

	entry := sumDT(g[:apex+1])
	delay, exit := 0.0, 0.0
	if after := g[apex+1:]; len(after) > 0 {
		firstOn := -1
		for i := apex + 1; i < len(g); i++ {
			if states[i] == StateThrottle {
				firstOn = i
				break
			}
		}
		if firstOn < 0 {
			// Never back on throttle in this segment
			delay = sumDT(after)
		} else {
			// The reapplication sample counts toward both delay and exit
			delay = sumDT(g[apex+1 : firstOn+1])
			exit = sumDT(g[firstOn:])
		}
	}

	rec.EntryDT = &entry
	rec.ExitThrottleDelayDT = &delay
	rec.ExitDT = &exit
	return rec
}

// apexIndex returns the first sample with minimum speed, or -1 when no
// sample has a speed reading
func apexIndex(g []Point) int {
	idx := -1
	for i, p := range g {
		if p.Speed == nil {
			continue
		}
		if idx < 0 || *p.Speed < *g[idx].Speed {
			idx = i
		}
	}
	return idx
}

func dtOf(p Point) float64 {
	if p.DT == nil {
		return 0
	}
	return *p.DT
}

func sumDT(g []Point) float64 {
	var total float64
	for _, p := range g {
		total += dtOf(p)
	}
	return total
}
