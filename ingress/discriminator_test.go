package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inspect(t *testing.T, raw string) View {
	t.Helper()
	view, err := JSONInspector().Inspect([]byte(raw))
	require.NoError(t, err)
	return view
}

func TestDiscriminators(t *testing.T) {
	view := inspect(t, `{
		"source": "my.app",
		"detail-type": "UserCreated",
		"detail": {"userId": "123"},
		"count": 42,
		"TopicArn": "arn:aws:sns:us-east-1:123456789012:users"
	}`)

	tests := map[string]struct {
		disc Discriminator
		want bool
	}{
		"has fields":               {HasFields("source", "detail-type"), true},
		"has nested field":         {HasFields("source", "detail.userId"), true},
		"has fields missing one":   {HasFields("source", "missing"), false},
		"has no fields":            {HasFields(), true},
		"field equals":             {FieldEquals("detail-type", "UserCreated"), true},
		"field equals other value": {FieldEquals("detail-type", "Other"), false},
		"field equals missing":     {FieldEquals("missing", "value"), false},
		"field equals non-string":  {FieldEquals("count", "42"), false},
		"field prefix":             {FieldPrefix("TopicArn", "arn:aws:sns:"), true},
		"field prefix other":       {FieldPrefix("TopicArn", "arn:aws:sqs:"), false},
		"field prefix non-string":  {FieldPrefix("count", "4"), false},
		"and all match":            {And(HasFields("source"), FieldEquals("detail-type", "UserCreated")), true},
		"and one fails":            {And(HasFields("source"), FieldEquals("detail-type", "Other")), false},
		"and empty":                {And(), true},
		"or one matches":           {Or(FieldEquals("detail-type", "Other"), HasFields("detail")), true},
		"or none match":            {Or(FieldEquals("detail-type", "Other"), HasFields("missing")), false},
		"or empty":                 {Or(), false},
		"not":                      {Not(HasFields("missing")), true},
		"not matching":             {Not(HasFields("source")), false},
		"nil matches":              {nil, true},
		"nil inside and":           {And(nil, HasFields("source")), true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.disc.Match(view))
		})
	}
}

func TestComposedDiscriminators(t *testing.T) {
	eventBridge := HasFields("source", "detail-type", "detail")
	sns := And(FieldEquals("Type", "Notification"), FieldPrefix("TopicArn", "arn:aws:sns:"))
	either := Or(eventBridge, sns)

	ebView := inspect(t, `{"source": "x", "detail-type": "y", "detail": {}}`)
	snsView := inspect(t, `{"Type": "Notification", "TopicArn": "arn:aws:sns:eu-west-1:1:t", "Message": "{}"}`)
	otherView := inspect(t, `{"foo": "bar"}`)

	assert.True(t, either.Match(ebView))
	assert.True(t, either.Match(snsView))
	assert.False(t, either.Match(otherView))
	assert.False(t, sns.Match(ebView))
	assert.True(t, Not(either).Match(otherView))
}
