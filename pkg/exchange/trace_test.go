//go:build linux

package exchange

import (
	"os"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/srediag/shmx/pkg/wire"
)

// tracedChannel returns a channel on the suite segment whose spans are
// collected by the returned recorder.
func (s *ExchangeTestSuite) tracedChannel() (*Channel, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	s.T().Cleanup(func() { _ = tp.Shutdown(s.ctx) })

	opts := s.opts
	opts.Tracer = tp.Tracer("shmx-test")
	ch, err := NewChannel("value", s.config, opts)
	s.Require().NoError(err)
	return ch, sr
}

// lastEvents returns the event names of the most recent ended span called name.
func (s *ExchangeTestSuite) lastEvents(sr *tracetest.SpanRecorder, name string) []string {
	var found sdktrace.ReadOnlySpan
	for _, span := range sr.Ended() {
		if span.Name() == name {
			found = span
		}
	}
	s.Require().NotNil(found, "no %s span", name)
	var names []string
	for _, e := range found.Events() {
		names = append(names, e.Name)
	}
	return names
}

func (s *ExchangeTestSuite) TestSpanEventsFollowStateMachine() {
	ch, sr := s.tracedChannel()

	s.Require().NoError(ch.Export(s.ctx, wire.Float64(3.5)))
	s.Require().Equal([]string{"Sizing", "Mapped", "Written", "Closed"},
		s.lastEvents(sr, "exchange.export"))

	_, err := ch.Import(s.ctx, wire.TagFloat64)
	s.Require().NoError(err)
	s.Require().Equal([]string{"Opened", "Mapped", "HeaderRead", "TagVerified", "PayloadRead", "Destroyed"},
		s.lastEvents(sr, "exchange.import"))

	// RecordError appends an "exception" event after the Failed transition.
	s.Require().NoError(ch.Export(s.ctx, wire.Int32(5)))
	_, err = ch.Import(s.ctx, wire.TagFloat64)
	s.Require().ErrorIs(err, ErrTypeMismatch)
	s.Require().Equal([]string{"Opened", "Mapped", "HeaderRead", "Failed", "exception"},
		s.lastEvents(sr, "exchange.import"))

	s.Require().NoError(os.WriteFile(s.segmentPath(), []byte{1, 0, 0}, 0600))
	_, err = ch.Import(s.ctx, wire.TagBool)
	s.Require().ErrorIs(err, wire.ErrMalformedHeader)
	s.Require().Equal([]string{"Opened", "Mapped", "Failed", "exception"},
		s.lastEvents(sr, "exchange.import"))

	badBool := append(wire.AppendHeader(nil, wire.Header{Tag: wire.TagBool, Size: 1}), 7)
	s.Require().NoError(os.WriteFile(s.segmentPath(), badBool, 0600))
	_, err = ch.Import(s.ctx, wire.TagBool)
	s.Require().ErrorIs(err, wire.ErrMalformedPayload)
	s.Require().Equal([]string{"Opened", "Mapped", "HeaderRead", "TagVerified", "Failed", "exception"},
		s.lastEvents(sr, "exchange.import"))
}

func (s *ExchangeTestSuite) TestFailedExportSpan() {
	s.config.MaxSegmentSize = 16
	ch, sr := s.tracedChannel()

	err := ch.Export(s.ctx, wire.String("nine byte"))
	s.Require().ErrorIs(err, ErrPayloadTooLarge)
	s.Require().Equal([]string{"Sizing", "Failed", "exception"}, s.lastEvents(sr, "exchange.export"))
}
