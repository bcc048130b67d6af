package ingress

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Inspector examines raw bytes and returns a View for field queries.
// Different inspectors handle different formats (JSON, protobuf, etc.).
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// InspectorFunc is a function adapter for Inspector.
type InspectorFunc func(raw []byte) (View, error)

// Inspect implements the Inspector interface.
func (f InspectorFunc) Inspect(raw []byte) (View, error) {
	return f(raw)
}

// View provides format-agnostic field access for discriminators. Paths use
// the dotted syntax of the underlying format; for JSON that is gjson path
// syntax ("detail.user.id", "Records.0.body").
type View interface {
	// HasField reports whether the path exists in the message.
	HasField(path string) bool

	// String returns the string value at path. It reports false when the
	// path is missing or does not hold a string.
	String(path string) (string, bool)

	// Raw returns the encoded value at path, or false if it is missing. For
	// JSON, strings keep their quotes.
	Raw(path string) ([]byte, bool)
}

// JSONInspector returns an Inspector that validates the input once and
// answers field queries with gjson.
func JSONInspector() Inspector {
	return InspectorFunc(func(raw []byte) (View, error) {
		if !gjson.ValidBytes(raw) {
			return nil, ErrInvalidJSON
		}
		return jsonView{root: gjson.ParseBytes(raw)}, nil
	})
}

type jsonView struct {
	root gjson.Result
}

func (v jsonView) HasField(path string) bool {
	return v.root.Get(path).Exists()
}

func (v jsonView) String(path string) (string, bool) {
	r := v.root.Get(path)
	if r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

func (v jsonView) Raw(path string) ([]byte, bool) {
	r := v.root.Get(path)
	if !r.Exists() {
		return nil, false
	}
	return []byte(r.Raw), true
}
