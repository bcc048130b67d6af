// Package otelmediator instruments a mediator with OpenTelemetry traces and
// metrics.
//
// Behavior is an AnyBehavior that wraps each request in a span and records a
// request counter and a duration histogram. Hooks returns mediator options
// that do the same for every dispatch, including streams and notifications.
// Both default to the global providers; use WithTracerProvider and
// WithMeterProvider to pick others.
package otelmediator
