package validation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/mediator"
	"github.com/bjaus/mediator/extension/validation"
)

type createUser struct {
	mediator.Returns[string]
	Email string `validate:"required,email"`
	Age   int    `validate:"gte=18"`
}

type rename struct {
	mediator.Void
	From, To string
}

func (r rename) Validate() error {
	if r.From == r.To {
		return errors.New("names must differ")
	}
	return nil
}

type pageSize struct {
	mediator.Returns[int]
	Size int `validate:"even"`
}

type userJoined struct {
	ID string `validate:"required"`
}

func TestBehavior(t *testing.T) {
	var handled int
	c := mediator.NewContainer()
	mediator.RegisterAnyBehavior(c, validation.NewBehavior())
	mediator.RegisterHandlerFunc(c, func(ctx context.Context, q createUser) (string, error) {
		handled++
		return "created " + q.Email, nil
	})
	mediator.RegisterVoidHandlerFunc(c, func(ctx context.Context, q rename) error {
		handled++
		return nil
	})
	m := mediator.New(c)
	ctx := context.Background()

	t.Run("valid request", func(t *testing.T) {
		handled = 0
		got, err := mediator.Send[string](ctx, m, createUser{Email: "ada@example.com", Age: 36})
		require.NoError(t, err)
		assert.Equal(t, "created ada@example.com", got)
		assert.Equal(t, 1, handled)
	})

	t.Run("struct tags", func(t *testing.T) {
		handled = 0
		_, err := mediator.Send[string](ctx, m, createUser{Email: "nope", Age: 12})

		require.ErrorIs(t, err, validation.ErrValidation)
		var fields validator.ValidationErrors
		require.ErrorAs(t, err, &fields)
		assert.Len(t, fields, 2)
		assert.EqualError(t, err, "validation: validation_test.createUser: "+
			"field 'createUser.Email' failed validation: email; "+
			"field 'createUser.Age' failed validation: gte")
		assert.Zero(t, handled)
	})

	t.Run("validatable", func(t *testing.T) {
		handled = 0
		err := mediator.SendVoid(ctx, m, rename{From: "a", To: "a"})

		require.ErrorIs(t, err, validation.ErrValidation)
		assert.EqualError(t, err, "validation: validation_test.rename: names must differ")
		assert.Zero(t, handled)

		require.NoError(t, mediator.SendVoid(ctx, m, rename{From: "a", To: "b"}))
		assert.Equal(t, 1, handled)
	})

	t.Run("untyped send", func(t *testing.T) {
		_, err := m.SendAny(ctx, createUser{Email: "ada@example.com"})
		assert.ErrorIs(t, err, validation.ErrValidation)
	})
}

func TestWithValidator(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("even", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 0
	}))

	c := mediator.NewContainer()
	mediator.RegisterAnyBehavior(c, validation.NewBehavior(validation.WithValidator(v)))
	mediator.RegisterHandlerFunc(c, func(ctx context.Context, q pageSize) (int, error) {
		return q.Size, nil
	})
	m := mediator.New(c)

	got, err := mediator.Send[int](context.Background(), m, pageSize{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	_, err = mediator.Send[int](context.Background(), m, pageSize{Size: 7})
	assert.ErrorIs(t, err, validation.ErrValidation)
}

func TestBehavior_Check(t *testing.T) {
	b := validation.NewBehavior()
	ctx := context.Background()

	assert.NoError(t, b.Check(ctx, userJoined{ID: "1"}))
	assert.ErrorIs(t, b.Check(ctx, userJoined{}), validation.ErrValidation)
	assert.ErrorIs(t, b.Check(ctx, &userJoined{}), validation.ErrValidation)
	assert.NoError(t, b.Check(ctx, (*userJoined)(nil)))
	assert.NoError(t, b.Check(ctx, (*rename)(nil)))
	assert.NoError(t, b.Check(ctx, "not a struct"))
}
