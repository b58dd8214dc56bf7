package airquality

// Trend classifies the direction of a measurement series.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

// Stats summarizes the non-null values of a measurement series.
type Stats struct {
	Min   float64
	Max   float64
	Avg   float64
	Count int // number of non-null samples
}

// SeriesStats computes min, max and average over the non-null samples.
// ok is false when the series holds no usable values.
func SeriesStats(values []Sample) (stats Stats, ok bool) {
	sum := 0.0
	for _, v := range values {
		if v.Value == nil {
			continue
		}
		val := *v.Value
		if stats.Count == 0 {
			stats.Min, stats.Max = val, val
		} else {
			if val < stats.Min {
				stats.Min = val
			}
			if val > stats.Max {
				stats.Max = val
			}
		}
		sum += val
		stats.Count++
	}
	if stats.Count == 0 {
		return Stats{}, false
	}
	stats.Avg = sum / float64(stats.Count)
	return stats, true
}

// SeriesTrend compares the mean of the first half of the non-null values
// against the mean of the second half. Series with fewer than two usable
// values have no trend.
func SeriesTrend(values []Sample) Trend {
	var usable []float64
	for _, v := range values {
		if v.Value != nil {
			usable = append(usable, *v.Value)
		}
	}
	n := len(usable)
	if n < 2 {
		return TrendUnknown
	}

	mid := n / 2
	sumFirst, sumLast := 0.0, 0.0
	for _, v := range usable[:mid] {
		sumFirst += v
	}
	for _, v := range usable[mid:] {
		sumLast += v
	}
	avgFirst := sumFirst / float64(mid)
	avgLast := sumLast / float64(n-mid)

	switch {
	case avgLast > avgFirst:
		return TrendRising
	case avgLast < avgFirst:
		return TrendFalling
	default:
		return TrendStable
	}
}
