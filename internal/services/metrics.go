package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_pipeline_runs_total",
		Help: "Completed pipeline runs partitioned by outcome.",
	}, []string{"outcome"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poi_link_cache_hits_total",
		Help: "Pipeline runs served from the global link cache.",
	})

	duplicateMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poi_duplicate_messages_total",
		Help: "Inbound messages rejected by the dedup gate.",
	})
)
