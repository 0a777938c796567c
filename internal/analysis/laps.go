package analysis

import "sort"

// LapTime is the total retained time of one lap
type LapTime struct {
	Lap     int     `json:"lap"`
	Time    float64 `json:"time"`
	Samples int     `json:"samples"`
}

// LapTimes sums filtered deltas per lap, ordered by lap number
func LapTimes(points []Point) []LapTime {
	byLap := make(map[int]*LapTime)
	for _, p := range points {
		lt, ok := byLap[p.Lap]
		if !ok {
			lt = &LapTime{Lap: p.Lap}
			byLap[p.Lap] = lt
		}
		lt.Time += dtOf(p)
		lt.Samples++
	}

	laps := make([]LapTime, 0, len(byLap))
	for _, lt := range byLap {
		laps = append(laps, *lt)
	}
	sort.Slice(laps, func(i, j int) bool { return laps[i].Lap < laps[j].Lap })
	return laps
}

// BestLap returns the fastest lap, lowest lap number on ties
func BestLap(laps []LapTime) (LapTime, bool) {
	if len(laps) == 0 {
		return LapTime{}, false
	}
	best := laps[0]
	for _, lt := range laps[1:] {
		if lt.Time < best.Time {
			best = lt
		}
	}
	return best, true
}
