// Package metrics holds the Prometheus collectors of the assessment pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// Recorder groups the pipeline collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	ValidationCalls    *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	Issues             *prometheus.CounterVec
	ArchivesProcessed  *prometheus.CounterVec
	ReportRows         *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		ValidationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_validation_calls_total",
				Help: "Total number of design element validation calls by result status",
			},
			[]string{"status"},
		),
		ValidationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "assessment_validation_duration_seconds",
				Help:    "Duration of design element validation calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
		),
		Issues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_issues_total",
				Help: "Total number of recoverable issues by kind",
			},
			[]string{"kind"},
		),
		ArchivesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_archives_processed_total",
				Help: "Total number of evidence archives processed by outcome",
			},
			[]string{"outcome"},
		),
		ReportRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_report_rows_total",
				Help: "Total number of report rows by answer",
			},
			[]string{"answer"},
		),
	}
}

// ObserveCall records one validation call.
func (r *Recorder) ObserveCall(status models.ResultStatus, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ValidationCalls.WithLabelValues(string(status)).Inc()
	r.ValidationDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveIssues(issues []models.Issue) {
	if r == nil {
		return
	}
	for _, i := range issues {
		r.Issues.WithLabelValues(string(i.Kind)).Inc()
	}
}

// ObserveArchive records the outcome of one pipeline run: completed,
// cancelled or failed.
func (r *Recorder) ObserveArchive(outcome string) {
	if r == nil {
		return
	}
	r.ArchivesProcessed.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveRows(rows []models.ReportRow) {
	if r == nil {
		return
	}
	for _, row := range rows {
		r.ReportRows.WithLabelValues(string(row.Answer)).Inc()
	}
}
