package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every assistcart metric plus the Go and process collectors.
// It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// LinkReady records the serial link state.
	// 1 = Ready, 0 = Not Ready (closed, warming, failed)
	LinkReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistcart_link_ready",
			Help: "The serial link status (1=Ready, 0=NotReady).",
		},
	)

	// LinkReconnectsTotal counts reconnect attempts made by the write path.
	LinkReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistcart_link_reconnects_total",
			Help: "Total number of serial reconnect attempts.",
		},
		[]string{"result"}, // result: success/failed
	)

	// SerialWritesTotal counts device token writes.
	SerialWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistcart_serial_writes_total",
			Help: "Total number of device commands written to the serial link.",
		},
		[]string{"result"}, // result: success/failed
	)

	// SerialDroppedLinesTotal counts inbound lines lost to a full line buffer.
	SerialDroppedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assistcart_serial_dropped_lines_total",
			Help: "Total number of inbound serial lines dropped because the line buffer was full.",
		},
	)

	// TelemetryLinesTotal counts inbound lines by outcome.
	TelemetryLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistcart_telemetry_lines_total",
			Help: "Total number of lines read from the device.",
		},
		[]string{"result"}, // result: accepted/discarded
	)

	// Voltage is the last accepted voltage reading.
	Voltage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistcart_voltage_volts",
			Help: "The last voltage reported by the device.",
		},
	)

	// CommandsTotal counts dispatched commands.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistcart_commands_total",
			Help: "Total number of dispatched commands.",
		},
		[]string{"action", "status"}, // status: ok/skipped/unrecognized/failed
	)

	// DispatchLatency records the time spent in a dispatch, serial write included.
	DispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistcart_dispatch_latency_seconds",
			Help:    "Latency of command dispatch including the serial write.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(LinkReady)
	Registry.MustRegister(LinkReconnectsTotal)
	Registry.MustRegister(SerialWritesTotal)
	Registry.MustRegister(SerialDroppedLinesTotal)
	Registry.MustRegister(TelemetryLinesTotal)
	Registry.MustRegister(Voltage)
	Registry.MustRegister(CommandsTotal)
	Registry.MustRegister(DispatchLatency)
}
