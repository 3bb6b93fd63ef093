package convert

import "time"

// Stats aggregates conversion outcomes over the life of an orchestrator
type Stats struct {
	TotalConversions      int64   `json:"total_conversions"`
	SuccessfulConversions int64   `json:"successful_conversions"`
	FailedConversions     int64   `json:"failed_conversions"`
	SuccessRate           float64 `json:"success_rate"`
	AverageTimeMs         float64 `json:"average_time_ms"`
	TotalBytesIn          int64   `json:"total_bytes_in"`
	TotalBytesOut         int64   `json:"total_bytes_out"`
	MeanCompressionRatio  float64 `json:"mean_compression_ratio"`

	totalTimeMs  float64
	ratioSum     float64
	ratioSamples int64
}

func (o *Orchestrator) recordOutcome(success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.TotalConversions++
	if success {
		o.stats.SuccessfulConversions++
	} else {
		o.stats.FailedConversions++
	}
}

func (o *Orchestrator) recordSuccess(img *ConvertedImage, wall time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.totalTimeMs += float64(wall.Microseconds()) / 1000.0
	o.stats.TotalBytesIn += img.OriginalSize
	o.stats.TotalBytesOut += img.ConvertedSize
	o.stats.ratioSum += img.CompressionRatio
	o.stats.ratioSamples++
}

// Stats returns a snapshot with the derived fields filled in
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stats
	if s.TotalConversions > 0 {
		s.SuccessRate = float64(s.SuccessfulConversions) / float64(s.TotalConversions)
	}
	if s.SuccessfulConversions > 0 {
		s.AverageTimeMs = s.totalTimeMs / float64(s.SuccessfulConversions)
	}
	if s.ratioSamples > 0 {
		s.MeanCompressionRatio = s.ratioSum / float64(s.ratioSamples)
	}
	return s
}
