package exchange

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/shmx/pkg/shm"
	"github.com/srediag/shmx/pkg/wire"
)

const metricsNamespace = "shmx"

const (
	directionExport = "export"
	directionImport = "import"
)

// Metrics counts exchanges per channel, kind and outcome.
type Metrics struct {
	exports      *prometheus.CounterVec
	imports      *prometheus.CounterVec
	payloadBytes *prometheus.HistogramVec
}

// NewMetrics registers the exchange collectors with reg. A nil reg yields
// collectors that are updated but never exported.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exports_total",
			Help:      "Values exported to a shared memory segment.",
		}, []string{"channel", "kind", "result"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "imports_total",
			Help:      "Values imported from a shared memory segment.",
		}, []string{"channel", "kind", "result"}),
		payloadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "payload_bytes",
			Help:      "Payload size of successful exchanges.",
			Buckets:   prometheus.ExponentialBuckets(8, 4, 12),
		}, []string{"direction"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.exports, m.imports, m.payloadBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeExport(channel string, tag wire.TypeTag, payload int, err error) {
	m.exports.WithLabelValues(channel, kindLabel(tag), resultLabel(err)).Inc()
	if err == nil {
		m.payloadBytes.WithLabelValues(directionExport).Observe(float64(payload))
	}
}

func (m *Metrics) observeImport(channel string, tag wire.TypeTag, payload int, err error) {
	m.imports.WithLabelValues(channel, kindLabel(tag), resultLabel(err)).Inc()
	if err == nil {
		m.payloadBytes.WithLabelValues(directionImport).Observe(float64(payload))
	}
}

func kindLabel(tag wire.TypeTag) string {
	if !tag.Valid() {
		return "unknown"
	}
	return tag.String()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, shm.ErrSegmentNotFound):
		return "not_found"
	case errors.Is(err, shm.ErrSegmentCreateFailed):
		return "create_failed"
	case errors.Is(err, shm.ErrMappingFailed):
		return "mapping_failed"
	case errors.Is(err, wire.ErrMalformedHeader),
		errors.Is(err, wire.ErrTruncatedPayload),
		errors.Is(err, wire.ErrTrailingBytes),
		errors.Is(err, wire.ErrMalformedPayload):
		return "malformed"
	}
	return "error"
}
