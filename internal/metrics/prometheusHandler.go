package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var degradedResponses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "degraded_responses_total",
	Help: "Responses returned without an enrichment stage, labelled by the failed stage",
}, []string{"stage"})

var documentsIngested = promauto.NewCounter(prometheus.CounterOpts{
	Name: "documents_ingested_total",
	Help: "Number of documents whose index was published",
})

var embeddingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "embedding_cache_lookups_total",
	Help: "Embedding cache lookups labelled by result",
}, []string{"result"})

var answerCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "answer_cache_lookups_total",
	Help: "Semantic answer cache lookups labelled by result",
}, []string{"result"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent in a pipeline flow.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"flow", "status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func NewStatusRecorder(w http.ResponseWriter) *HttpStatusRecorder {
	return &HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming handlers (the MCP endpoint) working behind the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureFlowMetrics(flow string, status string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(flow, status).Observe(timeElapsed.Seconds())
}

func IncrementDegraded(stage string) {
	degradedResponses.WithLabelValues(stage).Inc()
}

func IncrementDocumentsIngested() {
	documentsIngested.Inc()
}

func CaptureCacheLookups(hits, misses int) {
	if hits > 0 {
		embeddingCacheLookups.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		embeddingCacheLookups.WithLabelValues("miss").Add(float64(misses))
	}
}

func CaptureAnswerCacheLookup(hit bool) {
	if hit {
		answerCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	answerCacheLookups.WithLabelValues("miss").Inc()
}
