// Package metrics exposes the Prometheus counters and histograms the
// engine updates on every query, tool call, and LLM round-trip.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const prefix = "llmtoolengine_"

const (
	LabelTool     = "tool"
	LabelServer   = "server"
	LabelError    = "error"
	LabelProvider = "provider"
	LabelStrategy = "strategy"
	LabelKind     = "kind"
)

var (
	ToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%stool_invocations_total", prefix),
			Help: "Total number of tool invocations",
		},
		[]string{LabelTool, LabelServer, LabelError},
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%stool_latency_seconds", prefix),
			Help:    "Latency of tool invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelTool},
	)

	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%sllm_calls_total", prefix),
			Help: "Total number of LLM adapter calls",
		},
		[]string{LabelProvider, LabelError},
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%sllm_latency_seconds", prefix),
			Help:    "Latency of LLM adapter calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelProvider},
	)

	QueriesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%squeries_total", prefix),
			Help: "Total number of queries processed by the engine",
		},
		[]string{LabelStrategy, LabelKind},
	)

	HotSwaps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%shot_swaps_total", prefix),
			Help: "Total number of hot-swap operations performed",
		},
	)
)

// Register registers every collector with the default Prometheus registry.
// Safe to call once at startup.
func Register() {
	prometheus.MustRegister(
		ToolInvocations,
		ToolLatency,
		LLMCalls,
		LLMLatency,
		QueriesProcessed,
		HotSwaps,
	)
}
