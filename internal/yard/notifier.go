package yard

import (
	"context"
	"time"

	kafkax "github.com/ariefcatur/go-yard-listings/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

// Publisher is the async producer side; *kafkax.Producer implements it.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// EventNotifier publishes change notifications as v1 envelopes keyed by car id.
type EventNotifier struct {
	Publisher Publisher
	Service   string
}

func (n *EventNotifier) Notify(ctx context.Context, cn ChangeNotification) error {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventCarChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.Service,
		CorrelationID: cn.CarID,
		Payload:       kafkax.MustMarshal(cn),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	n.Publisher.Publish(PartitionKey(cn.CarID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventCarChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}
