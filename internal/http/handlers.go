package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady pings every opened backend and reports the domain selection.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.stores == nil {
		checks["stores"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		for name, p := range s.stores.Health {
			if err := p.Ping(ctx); err != nil {
				checks[string(name)] = fmt.Sprintf("failed: %v", err)
				status, httpStatus = "not_ready", http.StatusServiceUnavailable
				s.logger.WarnContext(ctx, "Readiness check failed", "backend", string(name), "error", err)
				continue
			}
			checks[string(name)] = "ok"
		}
		domains := map[string]string{}
		for d, b := range s.stores.Selection {
			domains[d] = string(b)
		}
		checks["domains"] = domains
	}

	if s.cache != nil {
		checks["cache"] = map[string]any{"entries": s.cache.Size(), "status": "ok"}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients(), "status": "ok"}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)

	if s.cache != nil {
		st := s.cache.Stats()
		metric("cache_hits_total", "counter", "Total cache hits", st.Hits)
		metric("cache_misses_total", "counter", "Total cache misses", st.Misses)
		metric("cache_evictions_total", "counter", "Entries evicted for capacity", st.Evictions)
		metric("cache_entries", "gauge", "Current cache entries", st.Size)
	}

	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests refused by method", securityMetrics.BlockedRequests)

	if s.stores != nil && len(s.stores.Selection) > 0 {
		fmt.Fprintf(w, "# HELP data_backend_info Backend serving each data domain\n")
		fmt.Fprintf(w, "# TYPE data_backend_info gauge\n")
		domains := make([]string, 0, len(s.stores.Selection))
		for d := range s.stores.Selection {
			domains = append(domains, d)
		}
		sort.Strings(domains)
		for _, d := range domains {
			fmt.Fprintf(w, "data_backend_info{domain=%q,backend=%q} 1\n", d, s.stores.Selection[d])
		}
		fmt.Fprintln(w)
	}

	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}
