package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/mediator"
	"github.com/bjaus/mediator/extension/validation"
)

type userCreated struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type getUser struct {
	mediator.Returns[user]
	ID string `json:"id"`
}

type listIDs struct {
	mediator.Yields[string]
	Prefix string `json:"prefix"`
}

type rename struct {
	mediator.Void
	Name string `json:"name"`
}

func (r *rename) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type signup struct {
	Email string `json:"email"`
}

func (s signup) Validate() error {
	if !strings.Contains(s.Email, "@") {
		return errors.New("invalid email")
	}
	return nil
}

type invite struct {
	Email string `json:"email" validate:"required,email"`
}

type replier struct {
	replies  []string
	failures []error
	err      error
}

func (r *replier) Reply(ctx context.Context, result json.RawMessage) error {
	r.replies = append(r.replies, string(result))
	return r.err
}

func (r *replier) Fail(ctx context.Context, err error) error {
	r.failures = append(r.failures, err)
	return r.err
}

// replyingSource is an envelope source whose messages carry a Replier.
func replyingSource(rep Replier) Source {
	inner := EnvelopeSource("rpc", "method", "params")
	return SourceFunc("rpc", HasFields("method"), func(raw []byte) (Message, error) {
		msg, err := inner.Parse(raw)
		msg.Replier = rep
		return msg, err
	})
}

type fixture struct {
	container *mediator.Container
	router    *Router
	created   []userCreated
	invited   []invite
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{container: mediator.NewContainer()}

	mediator.RegisterNotificationHandlerFunc(f.container, func(ctx context.Context, n userCreated) error {
		f.created = append(f.created, n)
		return nil
	})
	mediator.RegisterHandlerFunc(f.container, func(ctx context.Context, q getUser) (user, error) {
		if q.ID == "missing" {
			return user{}, errors.New("user not found")
		}
		return user{ID: q.ID, Name: "Ada"}, nil
	})
	mediator.RegisterStreamHandlerFunc(f.container, func(ctx context.Context, q listIDs) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			for _, id := range []string{"1", "2"} {
				if !yield(q.Prefix+id, nil) {
					return
				}
			}
		}
	})
	mediator.RegisterVoidHandlerFunc(f.container, func(ctx context.Context, q *rename) error {
		return nil
	})
	mediator.RegisterNotificationHandlerFunc(f.container, func(ctx context.Context, n invite) error {
		f.invited = append(f.invited, n)
		return nil
	})

	f.router = New(mediator.New(f.container), opts...)
	f.router.AddSource(EnvelopeSource("events", "type", "payload"))

	Bind[userCreated](f.router, "user/created")
	Bind[getUser](f.router, "user/get")
	Bind[listIDs](f.router, "user/list")
	Bind[*rename](f.router, "user/rename")
	Bind[signup](f.router, "user/signup")
	Bind[invite](f.router, "user/invite")
	return f
}

func TestRouter_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes notifications", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`{"type": "user/created", "payload": {"id": "1", "email": "a@b.c"}}`))

		require.NoError(t, err)
		assert.Equal(t, []userCreated{{ID: "1", Email: "a@b.c"}}, f.created)
	})

	t.Run("sends requests", func(t *testing.T) {
		f := newFixture()
		rep := &replier{}
		f.router.AddSource(replyingSource(rep))

		err := f.router.Process(ctx, []byte(`{"method": "user/get", "params": {"id": "7"}}`))

		require.NoError(t, err)
		assert.Equal(t, []string{`{"id":"7","name":"Ada"}`}, rep.replies)
		assert.Empty(t, rep.failures)
	})

	t.Run("drains streams", func(t *testing.T) {
		f := newFixture()
		rep := &replier{}
		f.router.AddSource(replyingSource(rep))

		err := f.router.Process(ctx, []byte(`{"method": "user/list", "params": {"prefix": "u-"}}`))

		require.NoError(t, err)
		assert.Equal(t, []string{`["u-1","u-2"]`}, rep.replies)
	})

	t.Run("void requests and notifications reply with an empty object", func(t *testing.T) {
		f := newFixture()
		rep := &replier{}
		f.router.AddSource(replyingSource(rep))

		require.NoError(t, f.router.Process(ctx, []byte(`{"method": "user/rename", "params": {"name": "x"}}`)))
		require.NoError(t, f.router.Process(ctx, []byte(`{"method": "user/created", "params": {"id": "2"}}`)))

		assert.Equal(t, []string{`{}`, `{}`}, rep.replies)
	})

	t.Run("returns handler errors without a replier", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`{"type": "user/get", "payload": {"id": "missing"}}`))

		assert.EqualError(t, err, "user not found")
	})

	t.Run("reports handler errors to the replier", func(t *testing.T) {
		f := newFixture()
		rep := &replier{}
		f.router.AddSource(replyingSource(rep))

		err := f.router.Process(ctx, []byte(`{"method": "user/get", "params": {"id": "missing"}}`))

		require.NoError(t, err)
		require.Len(t, rep.failures, 1)
		assert.EqualError(t, rep.failures[0], "user not found")
	})

	t.Run("returns the replier error", func(t *testing.T) {
		f := newFixture()
		sendFailed := errors.New("send task success failed")
		f.router.AddSource(replyingSource(&replier{err: sendFailed}))

		err := f.router.Process(ctx, []byte(`{"method": "user/get", "params": {"id": "7"}}`))

		assert.Equal(t, sendFailed, err)
	})

	t.Run("mediator errors propagate", func(t *testing.T) {
		f := newFixture()
		type orphan struct {
			mediator.Returns[string]
		}
		Bind[orphan](f.router, "orphan")

		err := f.router.Process(ctx, []byte(`{"type": "orphan", "payload": {}}`))

		assert.ErrorIs(t, err, mediator.ErrNoHandler)
	})

	t.Run("no source matches", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`{"not": "matching"}`))

		assert.ErrorIs(t, err, ErrNoSource)
	})

	t.Run("invalid JSON matches no source", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`not json`))

		assert.ErrorIs(t, err, ErrNoSource)
	})

	t.Run("parse error", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`{"type": 42, "payload": {}}`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse failed for source events")
	})

	t.Run("unknown key", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`{"type": "user/deleted", "payload": {}}`))

		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Contains(t, err.Error(), "user/deleted")
	})

	t.Run("unmarshal error", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`{"type": "user/created", "payload": {"id": 5}}`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal user/created payload")
		assert.Empty(t, f.created)
	})

	t.Run("validation error with value receiver", func(t *testing.T) {
		f := newFixture()

		err := f.router.Process(ctx, []byte(`{"type": "user/signup", "payload": {"email": "nope"}}`))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate user/signup payload: invalid email")
	})

	t.Run("validation error with pointer receiver", func(t *testing.T) {
		f := newFixture()
		rep := &replier{}
		f.router.AddSource(replyingSource(rep))

		err := f.router.Process(ctx, []byte(`{"method": "user/rename", "params": {}}`))

		require.NoError(t, err)
		require.Len(t, rep.failures, 1)
		assert.Contains(t, rep.failures[0].Error(), "name is required")
		assert.Empty(t, rep.replies)
	})

	t.Run("validator replaces Validate", func(t *testing.T) {
		f := newFixture(WithValidator(validation.NewBehavior()))

		err := f.router.Process(ctx, []byte(`{"type": "user/invite", "payload": {"email": "nope"}}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, validation.ErrValidation)
		assert.Empty(t, f.invited)

		require.NoError(t, f.router.Process(ctx, []byte(`{"type": "user/invite", "payload": {"email": "ada@example.com"}}`)))
		assert.Equal(t, []invite{{Email: "ada@example.com"}}, f.invited)

		err = f.router.Process(ctx, []byte(`{"type": "user/signup", "payload": {"email": "nope"}}`))
		assert.ErrorIs(t, err, validation.ErrValidation)
	})

	t.Run("missing payload decodes as the zero value", func(t *testing.T) {
		f := newFixture()

		require.NoError(t, f.router.Process(ctx, []byte(`{"type": "user/created"}`)))
		assert.Equal(t, []userCreated{{}}, f.created)
	})
}

func TestRouter_Matching(t *testing.T) {
	ctx := context.Background()

	newRouter := func(seen *[]string) *Router {
		c := mediator.NewContainer()
		mediator.RegisterNotificationHandlerFunc(c, func(ctx context.Context, n userCreated) error { return nil })

		r := New(mediator.New(c), WithOnParse(func(ctx context.Context, rt Route) context.Context {
			*seen = append(*seen, rt.Source)
			return ctx
		}))
		Bind[userCreated](r, "created")
		return r
	}

	t.Run("tries sources in order", func(t *testing.T) {
		var seen []string
		r := newRouter(&seen)
		r.AddSource(SourceFunc("never", HasFields("nonexistent"), func(raw []byte) (Message, error) {
			t.Fatal("parse called on non-matching source")
			return Message{}, nil
		}))
		r.AddSource(EnvelopeSource("first", "type", "payload"))
		r.AddSource(EnvelopeSource("second", "type", "payload"))

		require.NoError(t, r.Process(ctx, []byte(`{"type": "created"}`)))
		assert.Equal(t, []string{"first"}, seen)
	})

	t.Run("last match is tried first", func(t *testing.T) {
		var seen []string
		r := newRouter(&seen)
		r.AddSource(EnvelopeSource("a", "a", "payload"))
		r.AddSource(EnvelopeSource("b", "b", "payload"))

		require.NoError(t, r.Process(ctx, []byte(`{"b": "created"}`)))
		require.NoError(t, r.Process(ctx, []byte(`{"a": "created", "b": "created"}`)))
		require.NoError(t, r.Process(ctx, []byte(`{"a": "created"}`)))

		assert.Equal(t, []string{"b", "b", "a"}, seen)
	})

	t.Run("groups with custom inspectors", func(t *testing.T) {
		var seen []string
		r := newRouter(&seen)
		r.AddSource(EnvelopeSource("json", "type", "payload"))
		r.AddGroup(lineInspector(), SourceFunc("lines", HasFields("key"), func(raw []byte) (Message, error) {
			v, _ := lineInspector().Inspect(raw)
			key, _ := v.String("key")
			return Message{Key: key}, nil
		}))

		require.NoError(t, r.Process(ctx, []byte("key=created")))
		require.NoError(t, r.Process(ctx, []byte(`{"type": "created"}`)))

		assert.Equal(t, []string{"lines", "json"}, seen)
	})

	t.Run("custom default inspector", func(t *testing.T) {
		var seen []string
		r := newRouter(&seen)
		WithInspector(lineInspector())(r)
		r.AddSource(SourceFunc("lines", FieldEquals("kind", "event"), func(raw []byte) (Message, error) {
			return Message{Key: "created"}, nil
		}))

		require.NoError(t, r.Process(ctx, []byte("kind=event")))
		assert.Equal(t, []string{"lines"}, seen)
	})
}

func TestBind(t *testing.T) {
	r := New(mediator.New(mediator.NewContainer()))

	Bind[getUser](r, "get")
	Bind[*rename](r, "rename")
	Bind[userCreated](r, "created")

	tests := map[string]struct {
		typ   reflect.Type
		shape shape
	}{
		"get":     {reflect.TypeFor[getUser](), shapeRequest},
		"rename":  {reflect.TypeFor[*rename](), shapeRequest},
		"created": {reflect.TypeFor[userCreated](), shapeNotification},
	}
	for key, tt := range tests {
		typ, ok := r.Bound(key)
		require.True(t, ok, key)
		assert.Equal(t, tt.typ, typ)
		assert.Equal(t, tt.shape, r.bindings[key].shape)
	}

	Bind[listIDs](r, "get")
	typ, _ := r.Bound("get")
	assert.Equal(t, reflect.TypeFor[listIDs](), typ)
	assert.Equal(t, shapeStream, r.bindings["get"].shape)

	_, ok := r.Bound("missing")
	assert.False(t, ok)
}

// lineInspector reads "key=value" lines.
func lineInspector() Inspector {
	return InspectorFunc(func(raw []byte) (View, error) {
		fields := map[string]string{}
		for line := range strings.Lines(string(raw)) {
			k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
			if !ok {
				return nil, errors.New("not a key=value message")
			}
			fields[k] = v
		}
		return lineView(fields), nil
	})
}

type lineView map[string]string

func (v lineView) HasField(path string) bool {
	_, ok := v[path]
	return ok
}

func (v lineView) String(path string) (string, bool) {
	s, ok := v[path]
	return s, ok
}

func (v lineView) Raw(path string) ([]byte, bool) {
	s, ok := v[path]
	return []byte(s), ok
}
