// Package metrics exposes Prometheus instrumentation for the chat/game
// server. Grounded directly on pkg/server/metrics.go: the same
// register-on-construct, Update-before-serve pattern, re-pointed at this
// system's own counters (sessions, chat traffic, match outcomes) instead
// of MUSH object/queue stats.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric descriptor this server exposes.
type Metrics struct {
	startTime time.Time

	sessionsConnected prometheus.Gauge
	connectionsTotal  prometheus.Counter
	commandsTotal     prometheus.Counter
	chatMessagesTotal prometheus.Counter
	whispersTotal     prometheus.Counter
	gamesStartedTotal prometheus.Counter
	gamesFinishedTotal *prometheus.CounterVec // label: outcome {cross_wins, naught_wins, draw, dropout}
	kicksTotal        prometheus.Counter
	protocolViolationsTotal prometheus.Counter
	uptimeSeconds     prometheus.Gauge
	memoryHeapBytes   prometheus.Gauge
	goroutines        prometheus.Gauge
}

// SessionCounter reports the number of currently connected sessions.
type SessionCounter interface {
	Count() int
}

// New creates and registers every metric against the default registerer.
func New(startTime time.Time) *Metrics {
	m := &Metrics{
		startTime: startTime,
		sessionsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tactoechat_sessions_connected",
			Help: "Number of currently connected TCP sessions.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tactoechat_connections_total",
			Help: "Total accepted connections since server start.",
		}),
		commandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tactoechat_commands_processed_total",
			Help: "Total command lines dispatched since server start.",
		}),
		chatMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tactoechat_chat_messages_total",
			Help: "Total broadcast chat messages sent.",
		}),
		whispersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tactoechat_whispers_total",
			Help: "Total whisper messages delivered.",
		}),
		gamesStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tactoechat_games_started_total",
			Help: "Total Tic-Tac-Toe matches started with !startgame.",
		}),
		gamesFinishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tactoechat_games_finished_total",
			Help: "Total Tic-Tac-Toe matches reaching a terminal state, by outcome (cross_wins, naught_wins, draw, dropout).",
		}, []string{"outcome"}),
		kicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tactoechat_kicks_total",
			Help: "Total moderator kicks issued.",
		}),
		protocolViolationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tactoechat_protocol_violations_total",
			Help: "Total oversize or malformed frames rejected.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tactoechat_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tactoechat_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tactoechat_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	prometheus.MustRegister(
		m.sessionsConnected,
		m.connectionsTotal,
		m.commandsTotal,
		m.chatMessagesTotal,
		m.whispersTotal,
		m.gamesStartedTotal,
		m.gamesFinishedTotal,
		m.kicksTotal,
		m.protocolViolationsTotal,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)

	return m
}

// IncConnections records one newly accepted connection.
func (m *Metrics) IncConnections() { m.connectionsTotal.Inc() }

// IncCommands records one dispatched command line.
func (m *Metrics) IncCommands() { m.commandsTotal.Inc() }

// IncChatMessages records one broadcast chat line.
func (m *Metrics) IncChatMessages() { m.chatMessagesTotal.Inc() }

// IncWhispers records one delivered whisper.
func (m *Metrics) IncWhispers() { m.whispersTotal.Inc() }

// IncGamesStarted records one !startgame.
func (m *Metrics) IncGamesStarted() { m.gamesStartedTotal.Inc() }

// IncGamesFinished records one terminal game state by outcome label
// ("cross_wins", "naught_wins", "draw", or "dropout").
func (m *Metrics) IncGamesFinished(outcome string) { m.gamesFinishedTotal.WithLabelValues(outcome).Inc() }

// IncKicks records one moderator kick.
func (m *Metrics) IncKicks() { m.kicksTotal.Inc() }

// IncProtocolViolations records one rejected oversize/malformed frame.
func (m *Metrics) IncProtocolViolations() { m.protocolViolationsTotal.Inc() }

// Update refreshes every gauge from current process/session state.
func (m *Metrics) Update(sessions SessionCounter) {
	m.sessionsConnected.Set(float64(sessions.Count()))
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that refreshes gauges from sessions
// before serving the Prometheus exposition format.
func (m *Metrics) Handler(sessions SessionCounter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update(sessions)
		promhttp.Handler().ServeHTTP(w, r)
	})
}
