// Package ingress feeds raw transport messages (queue bodies, event bus
// payloads, Lambda events) into a mediator.
//
// A Router detects which envelope a message uses, extracts its routing key,
// decodes the payload into the Go type bound to that key and sends,
// streams or publishes it through a mediator.Mediator.
//
// # Quick Start
//
//	m := mediator.New(container)
//
//	r := ingress.New(m)
//	r.AddSource(ingress.EnvelopeSource("events", "type", "payload"))
//
//	ingress.Bind[UserCreated](r, "user/created") // notification
//	ingress.Bind[GetUser](r, "user/get")         // request
//
//	err := r.Process(ctx, []byte(`{"type": "user/created", "payload": {"id": "123"}}`))
//
// # Sources and Discriminators
//
// A Source recognizes one envelope format. Before parsing, the router asks
// each source's Discriminator whether the message looks like its format:
//
//	ingress.HasFields("detail-type", "detail")
//	ingress.FieldEquals("Type", "Notification")
//	ingress.And(ingress.HasFields("Records"), ingress.FieldPrefix("Records.0.eventSource", "aws:"))
//
// Discriminators read the message through a View produced by an Inspector.
// JSONInspector (gjson) is the default; AddGroup registers sources that use
// another format with their own Inspector. The last matching source is
// tried first on the next message.
//
// # Message Shapes
//
// The type bound to a key decides what Process does with the decoded value:
// types embedding mediator.Returns are sent, types embedding
// mediator.Yields are streamed, and all other types are published as
// notifications. When the source supplies a Replier, the response (or {}
// for notifications) is replied as JSON and failures are reported with
// Fail.
//
// # Validation
//
// If the bound type implements Validate() error, it is called after
// decoding. This is compatible with ozzo-validation. WithValidator replaces
// that check, for example with the extension/validation Behavior to get
// struct tag validation before anything is dispatched.
//
// # Hooks
//
// Hooks give observability and control over skipped messages. Most of them
// receive a Route naming the source, the routing key and the bound type:
//   - WithOnParse: Called after parsing, enriches context
//   - WithOnDispatch: Called before the mediator is invoked
//   - WithOnSuccess / WithOnFailure: Called with the handling duration
//   - WithOnNoSource: Called when no source matches (return nil to skip)
//   - WithOnParseError: Called when a source fails to parse
//   - WithOnUnknownKey: Called when no type is bound to the key
//   - WithOnUnmarshalError: Called when the payload does not decode
//   - WithOnValidationError: Called when Validate fails
//
// Sources can add their own behavior by implementing the optional
// OnParseHook, OnDispatchHook, OnSuccessHook, OnFailureHook,
// OnUnknownKeyHook, OnUnmarshalErrorHook and OnValidationErrorHook
// interfaces. They run after the global hooks.
package ingress
