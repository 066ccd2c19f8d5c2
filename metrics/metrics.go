// Package metrics exposes the prometheus instruments for both the exchange
// and the trading process. Instruments are package-level and guarded against
// not being set up, so engines can call the helpers unconditionally.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "tachyon"

// Config represents the configuration of the metric package.
type Config struct {
	Enabled bool   `long:"enabled" description:"serve prometheus metrics"`
	Port    int    `long:"port" description:"listen port for the metrics endpoint"`
	Path    string `long:"path" description:"URL path of the metrics endpoint"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Enabled: false,
		Port:    2112,
		Path:    "/metrics",
	}
}

var (
	requestCounter      *prometheus.CounterVec
	responseCounter     *prometheus.CounterVec
	marketUpdateCounter *prometheus.CounterVec
	tradeCounter        prometheus.Counter
	incSeqGauge         prometheus.Gauge
	queueDepthGauge     *prometheus.GaugeVec
	droppedCounter      *prometheus.CounterVec
	seqGapCounter       prometheus.Counter
	snapshotCounter     prometheus.Counter
	reconnectCounter    prometheus.Counter
	poolUtilGauge       *prometheus.GaugeVec
)

func setupMetrics() error {
	h, err := AddInstrument(
		Counter,
		"requests_total",
		Namespace(namespace),
		Vectors("kind"),
		Help("Client requests seen by the matching engine, by kind"),
	)
	if err != nil {
		return err
	}
	if requestCounter, err = h.CounterVec(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Counter,
		"responses_total",
		Namespace(namespace),
		Vectors("kind"),
		Help("Client responses generated by the matching engine, by kind"),
	)
	if err != nil {
		return err
	}
	if responseCounter, err = h.CounterVec(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Counter,
		"market_updates_total",
		Namespace(namespace),
		Vectors("kind"),
		Help("Market updates published on the incremental stream, by kind"),
	)
	if err != nil {
		return err
	}
	if marketUpdateCounter, err = h.CounterVec(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Counter,
		"trades_total",
		Namespace(namespace),
		Help("Trades matched"),
	)
	if err != nil {
		return err
	}
	if tradeCounter, err = h.Counter(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Gauge,
		"incremental_seq",
		Namespace(namespace),
		Help("Last sequence number stamped on the incremental stream"),
	)
	if err != nil {
		return err
	}
	if incSeqGauge, err = h.Gauge(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Gauge,
		"queue_depth",
		Namespace(namespace),
		Vectors("queue"),
		Help("Current depth of the inter-thread queues"),
	)
	if err != nil {
		return err
	}
	if queueDepthGauge, err = h.GaugeVec(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Counter,
		"dropped_records_total",
		Namespace(namespace),
		Vectors("queue"),
		Help("Records dropped because a queue was full"),
	)
	if err != nil {
		return err
	}
	if droppedCounter, err = h.CounterVec(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Counter,
		"sequence_gaps_total",
		Namespace(namespace),
		Help("Sequence gaps observed by the market data consumer"),
	)
	if err != nil {
		return err
	}
	if seqGapCounter, err = h.Counter(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Counter,
		"snapshots_published_total",
		Namespace(namespace),
		Help("Snapshots published on the snapshot stream"),
	)
	if err != nil {
		return err
	}
	if snapshotCounter, err = h.Counter(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Counter,
		"gateway_reconnects_total",
		Namespace(namespace),
		Help("Order gateway reconnect attempts"),
	)
	if err != nil {
		return err
	}
	if reconnectCounter, err = h.Counter(); err != nil {
		return err
	}

	h, err = AddInstrument(
		Gauge,
		"pool_in_use",
		Namespace(namespace),
		Vectors("pool"),
		Help("Slots in use per fixed-capacity pool"),
	)
	if err != nil {
		return err
	}
	if poolUtilGauge, err = h.GaugeVec(); err != nil {
		return err
	}

	return nil
}

// RequestCounterInc increments the request counter for the given kind.
func RequestCounterInc(kind string) {
	if requestCounter == nil {
		return
	}
	requestCounter.WithLabelValues(kind).Inc()
}

// ResponseCounterInc increments the response counter for the given kind.
func ResponseCounterInc(kind string) {
	if responseCounter == nil {
		return
	}
	responseCounter.WithLabelValues(kind).Inc()
}

// MarketUpdateCounterInc increments the market update counter for the given kind.
func MarketUpdateCounterInc(kind string) {
	if marketUpdateCounter == nil {
		return
	}
	marketUpdateCounter.WithLabelValues(kind).Inc()
}

// TradeCounterInc increments the matched trade counter.
func TradeCounterInc() {
	if tradeCounter == nil {
		return
	}
	tradeCounter.Inc()
}

// IncSeqSet records the last incremental sequence number stamped.
func IncSeqSet(seq uint64) {
	if incSeqGauge == nil {
		return
	}
	incSeqGauge.Set(float64(seq))
}

// QueueDepthSet records the depth of the named queue.
func QueueDepthSet(queue string, depth int) {
	if queueDepthGauge == nil {
		return
	}
	queueDepthGauge.WithLabelValues(queue).Set(float64(depth))
}

// DroppedCounterInc counts a record dropped on a full queue.
func DroppedCounterInc(queue string) {
	if droppedCounter == nil {
		return
	}
	droppedCounter.WithLabelValues(queue).Inc()
}

// SeqGapCounterInc counts a gap observed on the incremental stream.
func SeqGapCounterInc() {
	if seqGapCounter == nil {
		return
	}
	seqGapCounter.Inc()
}

// SnapshotCounterInc counts a published snapshot.
func SnapshotCounterInc() {
	if snapshotCounter == nil {
		return
	}
	snapshotCounter.Inc()
}

// ReconnectCounterInc counts an order gateway reconnect.
func ReconnectCounterInc() {
	if reconnectCounter == nil {
		return
	}
	reconnectCounter.Inc()
}

// PoolInUseSet records slots in use for the named pool.
func PoolInUseSet(pool string, inUse int) {
	if poolUtilGauge == nil {
		return
	}
	poolUtilGauge.WithLabelValues(pool).Set(float64(inUse))
}
