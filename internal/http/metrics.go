package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"spendpoints/internal/points"
)

var scoredBranches = []points.Branch{
	points.BranchWithin,
	points.BranchWentOver,
	points.BranchAlreadyOver,
	points.BranchNone,
}

type appMetrics struct {
	scored   [len(scoredBranchNames)]atomic.Int64
	awarded  atomic.Int64
	deducted atomic.Int64
	started  time.Time
}

// scoredBranchNames is indexed by points.Branch.
var scoredBranchNames = [...]string{
	points.BranchNone:        "none",
	points.BranchAlreadyOver: "already_over",
	points.BranchWentOver:    "went_over",
	points.BranchWithin:      "within",
}

func newAppMetrics() *appMetrics {
	return &appMetrics{started: time.Now()}
}

func (m *appMetrics) recordExpenditure(out points.Outcome) {
	if int(out.Branch) < len(m.scored) {
		m.scored[out.Branch].Add(1)
	}
	m.recordDelta(out.Delta)
}

func (m *appMetrics) recordDelta(delta int) {
	switch {
	case delta > 0:
		m.awarded.Add(int64(delta))
	case delta < 0:
		m.deducted.Add(int64(-delta))
	}
}

// handleMetrics writes request, security and scoring counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Requests answered with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerFailures)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP invalid_ip_attempts_total Forwarded client addresses that failed to parse\n")
	fmt.Fprintf(w, "# TYPE invalid_ip_attempts_total counter\n")
	fmt.Fprintf(w, "invalid_ip_attempts_total %d\n\n", securityMetrics.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP expenditures_scored_total Expenditures recorded, by scoring branch\n")
	fmt.Fprintf(w, "# TYPE expenditures_scored_total counter\n")
	for _, b := range scoredBranches {
		fmt.Fprintf(w, "expenditures_scored_total{branch=%q} %d\n", scoredBranchNames[b], s.metrics.scored[b].Load())
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP points_awarded_total Points won by users\n")
	fmt.Fprintf(w, "# TYPE points_awarded_total counter\n")
	fmt.Fprintf(w, "points_awarded_total %d\n\n", s.metrics.awarded.Load())

	fmt.Fprintf(w, "# HELP points_deducted_total Points lost by users\n")
	fmt.Fprintf(w, "# TYPE points_deducted_total counter\n")
	fmt.Fprintf(w, "points_deducted_total %d\n\n", s.metrics.deducted.Load())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.started).Seconds())
}
