package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BlogCreations counts creation attempts by outcome: created, busy, failed.
	BlogCreations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openbite_blog_creations_total",
		Help: "Post creation attempts by outcome",
	}, []string{"outcome"})

	// UpvoteToggles counts toggles by outcome: on, off, conflict, fault.
	UpvoteToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openbite_upvote_toggles_total",
		Help: "Upvote toggles by outcome",
	}, []string{"outcome"})

	// CacheLookups counts listing and slug cache lookups: hit or miss.
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openbite_cache_lookups_total",
		Help: "Blog cache lookups by result",
	}, []string{"result"})

	// RateLimited counts requests rejected by the per-IP limiter.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openbite_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(BlogCreations, UpvoteToggles, CacheLookups, RateLimited)
}

// MetricsHandler serves the Prometheus exposition format.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
