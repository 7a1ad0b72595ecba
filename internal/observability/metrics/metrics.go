// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_debate_graph"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Run metrics
	RunsTotal    *prometheus.CounterVec
	RunsActive   prometheus.Gauge
	RunDuration  prometheus.Histogram
	StageLatency *prometheus.HistogramVec

	// Audio and transcription metrics
	AudioBytesReceived  prometheus.Counter
	TranscriptionErrors *prometheus.CounterVec
	TranscriptCache     *prometheus.CounterVec

	// Oracle metrics
	OracleCalls     *prometheus.CounterVec
	OracleLatency   *prometheus.HistogramVec
	MergerFallbacks prometheus.Counter

	// Graph metrics
	ArgumentsExtracted prometheus.Counter
	RelationsInferred  *prometheus.CounterVec
	RelationsDiscarded *prometheus.CounterVec
	CommitsTotal       *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Transport metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		RunsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of pipeline runs in flight",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),

		AudioBytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		TranscriptionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of transcription errors",
		}, []string{"provider", "error_type"}),
		TranscriptCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_cache_lookups_total",
			Help:      "Transcript cache lookups by result",
		}, []string{"result"}),

		OracleCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Total number of oracle calls by schema and outcome",
		}, []string{"schema", "outcome"}),
		OracleLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_seconds",
			Help:      "Oracle call latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"schema"}),
		MergerFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_merger_fallbacks_total",
			Help:      "Total number of times segmentation fell back to the local merge",
		}),

		ArgumentsExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arguments_extracted_total",
			Help:      "Total number of arguments extracted",
		}),
		RelationsInferred: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_inferred_total",
			Help:      "Total number of relation verdicts by type",
		}, []string{"type"}),
		RelationsDiscarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_discarded_total",
			Help:      "Total number of relation verdicts dropped before persistence",
		}, []string{"reason"}),
		CommitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Total number of debate commits by outcome",
		}, []string{"outcome"}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP and gRPC requests",
		}, []string{"transport", "method", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP and gRPC request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "method"}),
	}
}

// RecordRunStart records a pipeline run starting.
func (m *Metrics) RecordRunStart() {
	m.RunsActive.Inc()
}

// RecordRunEnd records a pipeline run ending with the given outcome.
func (m *Metrics) RecordRunEnd(outcome string, durationSeconds float64) {
	m.RunsActive.Dec()
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, durationSeconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordAudioReceived records uploaded audio bytes.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordTranscriptionError records a transcription error.
func (m *Metrics) RecordTranscriptionError(provider, errorType string) {
	m.TranscriptionErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordCacheLookup records a transcript cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.TranscriptCache.WithLabelValues(result).Inc()
}

// RecordOracleCall records one oracle call.
func (m *Metrics) RecordOracleCall(schema, outcome string, latencySeconds float64) {
	m.OracleCalls.WithLabelValues(schema, outcome).Inc()
	m.OracleLatency.WithLabelValues(schema).Observe(latencySeconds)
}

// RecordMergerFallback records segmentation falling back to the local merge.
func (m *Metrics) RecordMergerFallback() {
	m.MergerFallbacks.Inc()
}

// RecordArguments records extracted arguments.
func (m *Metrics) RecordArguments(n int) {
	m.ArgumentsExtracted.Add(float64(n))
}

// RecordRelation records one relation verdict by type.
func (m *Metrics) RecordRelation(relationType string) {
	m.RelationsInferred.WithLabelValues(relationType).Inc()
}

// RecordRelationDiscarded records a verdict dropped before persistence.
func (m *Metrics) RecordRelationDiscarded(reason string) {
	m.RelationsDiscarded.WithLabelValues(reason).Inc()
}

// RecordCommit records a debate commit attempt.
func (m *Metrics) RecordCommit(err error) {
	if err != nil {
		m.CommitsTotal.WithLabelValues("rolled_back").Inc()
		return
	}
	m.CommitsTotal.WithLabelValues("committed").Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordRequest records one served HTTP or gRPC request.
func (m *Metrics) RecordRequest(transport, method, code string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(transport, method, code).Inc()
	m.RequestDuration.WithLabelValues(transport, method).Observe(durationSeconds)
}
