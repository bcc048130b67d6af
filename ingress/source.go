package ingress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Source recognizes one transport envelope and extracts the routing key and
// payload from it.
//
// Sources are registered with Router.AddSource and matched using their
// Discriminator before Parse is called, so detection stays cheap when a
// router serves several envelope formats (EventBridge, SNS, SQS, Step
// Functions, custom ones).
//
// Example:
//
//	type commandSource struct{}
//
//	func (commandSource) Name() string { return "commands" }
//
//	func (commandSource) Discriminator() ingress.Discriminator {
//	    return ingress.HasFields("command", "args")
//	}
//
//	func (commandSource) Parse(raw []byte) (ingress.Message, error) {
//	    var env struct {
//	        Command string          `json:"command"`
//	        Args    json.RawMessage `json:"args"`
//	    }
//	    if err := json.Unmarshal(raw, &env); err != nil {
//	        return ingress.Message{}, err
//	    }
//	    return ingress.Message{Key: env.Command, Payload: env.Args}, nil
//	}
type Source interface {
	// Name identifies the source in hooks, logs and metrics.
	Name() string

	// Discriminator returns the predicate used to detect this source's
	// messages before parsing them.
	Discriminator() Discriminator

	// Parse extracts the routing key and payload from raw.
	Parse(raw []byte) (Message, error)
}

// SourceFunc creates a Source from a name, discriminator and parse function.
func SourceFunc(name string, disc Discriminator, parse func([]byte) (Message, error)) Source {
	return &sourceFunc{name: name, disc: disc, parse: parse}
}

type sourceFunc struct {
	name  string
	disc  Discriminator
	parse func([]byte) (Message, error)
}

func (s *sourceFunc) Name() string                      { return s.name }
func (s *sourceFunc) Discriminator() Discriminator      { return s.disc }
func (s *sourceFunc) Parse(raw []byte) (Message, error) { return s.parse(raw) }

// EnvelopeSource returns a Source for JSON envelopes that carry the routing
// key as a string at keyPath and the payload at payloadPath (gjson paths).
// Messages match when keyPath exists; a missing payload decodes as the zero
// message.
//
//	r.AddSource(ingress.EnvelopeSource("eventbridge", "detail-type", "detail"))
func EnvelopeSource(name, keyPath, payloadPath string) Source {
	return SourceFunc(name, HasFields(keyPath), func(raw []byte) (Message, error) {
		root := gjson.ParseBytes(raw)

		key := root.Get(keyPath)
		if key.Type != gjson.String || key.Str == "" {
			return Message{}, fmt.Errorf("%s: routing key at %q is not a non-empty string", name, keyPath)
		}

		var payload json.RawMessage
		if p := root.Get(payloadPath); p.Exists() {
			payload = json.RawMessage(p.Raw)
		}
		return Message{Key: key.Str, Payload: payload}, nil
	})
}

// Message is what a Source extracts from a raw message.
type Message struct {
	// Key selects the message type bound with Bind.
	Key string

	// Payload is the JSON decoded into the bound message type.
	Payload json.RawMessage

	// Replier sends the outcome back to the originator. It is nil for
	// fire-and-forget transports.
	//
	// When Replier is set, the router reports every outcome through it:
	//   - requests reply with their JSON-encoded response
	//   - stream requests reply with a JSON array of their elements
	//   - notifications and void requests reply with {}
	//   - failures call Fail
	// Process then returns the Replier's error.
	Replier Replier
}

// Replier sends responses back to the message originator.
// Implement this for request-response transports.
type Replier interface {
	// Reply sends a successful response with the given JSON payload.
	Reply(ctx context.Context, result json.RawMessage) error

	// Fail sends a failure response with the given error.
	Fail(ctx context.Context, err error) error
}
