// Package metrics exposes the coordinator's prometheus collectors and a
// small HTTP server to serve them.
package metrics

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brollup/coordinator/internal/metrics/pprof"
	"github.com/brollup/coordinator/log"
)

var (
	// PrivateMetrics is the registry served over HTTP: process-level
	// collectors plus every coordinator collector below.
	PrivateMetrics = prometheus.NewRegistry()

	// SessionStage tracks the current round stage. 0-Off, 1-On, 2-Locked,
	// 3-Upheld, 4-Finalized.
	SessionStage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_session_stage",
		Help: "Current coordinator session stage: 0-Off, 1-On, 2-Locked, 3-Upheld, 4-Finalized",
	})

	// SessionCommitsReceived counts accepted commits across all rounds.
	SessionCommitsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coordinator_session_commits_received_total",
		Help: "Number of commits accepted into a round",
	})

	// SessionUpholdsReceived counts accepted upholds across all rounds.
	SessionUpholdsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coordinator_session_upholds_received_total",
		Help: "Number of upholds accepted into a round",
	})

	// SessionFinalizeLatency measures time between locking a round and
	// finalizing it.
	SessionFinalizeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coordinator_session_finalize_duration_seconds",
		Help:    "Duration between a round locking and finalizing",
		Buckets: prometheus.DefBuckets,
	})

	// DKGDirectoryHeight reports the active NOIST directory height.
	DKGDirectoryHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_dkg_directory_height",
		Help: "Height of the currently active NOIST directory",
	})

	// DKGNoncePoolDepth reports the number of unconsumed nonce sessions
	// remaining in the active directory.
	DKGNoncePoolDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_dkg_nonce_pool_depth",
		Help: "Number of unconsumed nonce sessions left in the active directory",
	})

	// BlacklistSize reports how many senders have a blame record, whether or
	// not their blacklist window is still open.
	BlacklistSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_blacklist_size",
		Help: "Number of senders with a blame record",
	})

	// WirePeerCount reports how many peer connections are registered in
	// the address book.
	WirePeerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_wire_peer_count",
		Help: "Number of peer connections currently registered",
	})

	// WireRequestsTotal counts handled wire requests by kind.
	WireRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_wire_requests_total",
		Help: "Number of wire requests handled, by kind",
	}, []string{"kind"})

	// WireRejectionsTotal counts application-level rejections by kind.
	WireRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_wire_rejections_total",
		Help: "Number of wire requests rejected at the application level, by kind",
	}, []string{"kind"})

	metricsBound sync.Once
)

func bindMetrics(l log.Logger) {
	if err := PrivateMetrics.Register(collectors.NewGoCollector()); err != nil {
		l.Errorw("error in bindMetrics", "metrics", "goCollector", "err", err)
		return
	}
	if err := PrivateMetrics.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		l.Errorw("error in bindMetrics", "metrics", "processCollector", "err", err)
		return
	}

	coordinatorMetrics := []prometheus.Collector{
		SessionStage,
		SessionCommitsReceived,
		SessionUpholdsReceived,
		SessionFinalizeLatency,
		DKGDirectoryHeight,
		DKGNoncePoolDepth,
		BlacklistSize,
		WirePeerCount,
		WireRequestsTotal,
		WireRejectionsTotal,
	}
	for _, c := range coordinatorMetrics {
		if err := PrivateMetrics.Register(c); err != nil {
			l.Errorw("error in bindMetrics", "metrics", "bindMetrics", "err", err)
			return
		}
	}
}

// Start binds metricsBind and serves /metrics until the process exits. If
// metricsBind is a bare port, it binds to 127.0.0.1. Returns nil if the
// listener could not be bound.
func Start(logger log.Logger, metricsBind string) net.Listener {
	logger.Infow("metrics starting", "desired_addr", metricsBind)

	metricsBound.Do(func() {
		bindMetrics(logger)
	})

	if !strings.Contains(metricsBind, ":") {
		metricsBind = "127.0.0.1:" + metricsBind
	}
	//nolint:noctx
	l, err := net.Listen("tcp", metricsBind)
	if err != nil {
		logger.Warnw("", "metrics", "listen failed", "err", err)
		return nil
	}
	logger.Infow("metric listener started", "addr", l.Addr())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(PrivateMetrics, promhttp.HandlerOpts{Registry: PrivateMetrics}))
	mux.Handle("/debug/pprof/", pprof.WithProfile())

	s := http.Server{Addr: l.Addr().String(), ReadHeaderTimeout: 3 * time.Second, Handler: mux}
	go func() {
		logger.Warnw("", "metrics", "listen finished", "err", s.Serve(l))
	}()
	return l
}

// Stage values SessionStage is set to.
const (
	StageOff = iota
	StageOn
	StageLocked
	StageUpheld
	StageFinalized
)
