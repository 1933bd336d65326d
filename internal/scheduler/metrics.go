package scheduler

// ClientMetrics is a point-in-time snapshot of one client's counters.
type ClientMetrics struct {
	Submitted          uint64
	Executed           uint64
	AvgExecutionTimeUs float64
	QueueDepth         int
	Weight             int
	OverflowCount      uint64
}

// GlobalMetrics is a point-in-time snapshot of scheduler-wide counters.
type GlobalMetrics struct {
	TotalProcessed    uint64
	ActiveClients     int
	JainFairnessIndex float64
}

// jainFairnessIndex computes (Σxᵢ)² / (n·Σxᵢ²) over executed counts.
// Returns 1.0 (perfectly fair, vacuously) when there are fewer than two
// clients or every client has executed zero jobs.
func jainFairnessIndex(executed []uint64) float64 {
	n := len(executed)
	if n < 2 {
		return 1.0
	}

	var sum, sumSq float64
	for _, x := range executed {
		xf := float64(x)
		sum += xf
		sumSq += xf * xf
	}

	if sumSq == 0 {
		return 1.0
	}
	return (sum * sum) / (float64(n) * sumSq)
}
