package otelmediator

import (
	"reflect"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bjaus/mediator"
)

// Names of the spans created by the package.
const (
	RequestSpanName  = "mediator.Request"
	DispatchSpanName = "mediator.Dispatch"
)

// Metrics exported by the package.
const (
	RequestsMetric         = "mediator.requests"
	RequestDurationMetric  = "mediator.request.duration.ms"
	DispatchDurationMetric = "mediator.dispatch.duration.ms"
)

var (
	// RequestTypeAttribute holds the Go type of the request seen by Behavior.
	RequestTypeAttribute = attribute.Key("request.type")

	// ResponseTypeAttribute holds the declared response type of a request,
	// or the element type of a stream request.
	ResponseTypeAttribute = attribute.Key("response.type")

	// ContractKindAttribute holds the mediator.Kind of a dispatch.
	ContractKindAttribute = attribute.Key("contract.kind")

	// MessageTypeAttribute holds the message type of a dispatch.
	MessageTypeAttribute = attribute.Key("message.type")

	// ErrorAttribute reports whether the operation failed.
	ErrorAttribute = attribute.Key("error")
)

func requestAttributes(req any) []attribute.KeyValue {
	attrs := []attribute.KeyValue{RequestTypeAttribute.String(reflect.TypeOf(req).String())}
	if typ, ok := mediator.ResponseType(req); ok {
		attrs = append(attrs, ResponseTypeAttribute.String(typ.String()))
	}
	return attrs
}

func contractAttributes(c mediator.Contract) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		ContractKindAttribute.String(c.Kind.String()),
		MessageTypeAttribute.String(c.Message.String()),
	}
	if c.Result != nil {
		attrs = append(attrs, ResponseTypeAttribute.String(c.Result.String()))
	}
	return attrs
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
