package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/cbodonnell/cloudflight/pkg/metrics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the relay's instruments. A nil *Metrics records nothing.
// Uses the global OTel meter (no-op if not configured).
type Metrics struct {
	connections     metric.Int64Counter
	disconnections  metric.Int64Counter
	players         metric.Int64UpDownCounter
	messages        metric.Int64Counter
	malformed       metric.Int64Counter
	dropped         metric.Int64Counter
	framesSent      metric.Int64Counter
	framesDropped   metric.Int64Counter
	eventQueueDepth metric.Int64ObservableGauge
}

func New() (*Metrics, error) {
	m := meter()
	r := &Metrics{}

	var err error
	r.connections, err = m.Int64Counter(
		"cloudflight.connections",
		metric.WithDescription("Total accepted connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connections counter: %v", err)
	}

	r.disconnections, err = m.Int64Counter(
		"cloudflight.disconnections",
		metric.WithDescription("Total closed connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create disconnections counter: %v", err)
	}

	r.players, err = m.Int64UpDownCounter(
		"cloudflight.players",
		metric.WithDescription("Currently connected players"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create players counter: %v", err)
	}

	r.messages, err = m.Int64Counter(
		"cloudflight.messages.received",
		metric.WithDescription("Inbound messages by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages counter: %v", err)
	}

	r.malformed, err = m.Int64Counter(
		"cloudflight.messages.malformed",
		metric.WithDescription("Inbound messages dropped because they could not be decoded"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create malformed counter: %v", err)
	}

	r.dropped, err = m.Int64Counter(
		"cloudflight.messages.dropped",
		metric.WithDescription("Inbound messages dropped because the receive queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inbound dropped counter: %v", err)
	}

	r.framesSent, err = m.Int64Counter(
		"cloudflight.frames.sent",
		metric.WithDescription("Outbound frames written to a connection"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sent counter: %v", err)
	}

	r.framesDropped, err = m.Int64Counter(
		"cloudflight.frames.dropped",
		metric.WithDescription("Outbound frames dropped because the send queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dropped counter: %v", err)
	}

	r.eventQueueDepth, err = m.Int64ObservableGauge(
		"cloudflight.session.queue.size",
		metric.WithDescription("Events waiting for the session loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue size gauge: %v", err)
	}

	return r, nil
}

// ObserveEventQueue reports size() on every collection.
func (r *Metrics) ObserveEventQueue(size func() int) error {
	_, err := meter().RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(r.eventQueueDepth, int64(size()))
			return nil
		},
		r.eventQueueDepth,
	)
	if err != nil {
		return fmt.Errorf("failed to register queue callback: %v", err)
	}
	return nil
}

func (r *Metrics) PlayerConnected(ctx context.Context) {
	if r == nil {
		return
	}
	r.connections.Add(ctx, 1)
	r.players.Add(ctx, 1)
}

func (r *Metrics) PlayerDisconnected(ctx context.Context) {
	if r == nil {
		return
	}
	r.disconnections.Add(ctx, 1)
	r.players.Add(ctx, -1)
}

func (r *Metrics) MessageReceived(ctx context.Context, messageType string) {
	if r == nil {
		return
	}
	r.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("type", messageType)))
}

func (r *Metrics) MessageMalformed(ctx context.Context) {
	if r == nil {
		return
	}
	r.malformed.Add(ctx, 1)
}

func (r *Metrics) MessageDropped(ctx context.Context) {
	if r == nil {
		return
	}
	r.dropped.Add(ctx, 1)
}

func (r *Metrics) FrameSent(ctx context.Context) {
	if r == nil {
		return
	}
	r.framesSent.Add(ctx, 1)
}

func (r *Metrics) FrameDropped(ctx context.Context) {
	if r == nil {
		return
	}
	r.framesDropped.Add(ctx, 1)
}
