package ingress

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type JSONInspectorSuite struct {
	suite.Suite
	inspector Inspector
}

func (s *JSONInspectorSuite) SetupTest() {
	s.inspector = JSONInspector()
}

func TestJSONInspectorSuite(t *testing.T) {
	suite.Run(t, new(JSONInspectorSuite))
}

func (s *JSONInspectorSuite) TestReturnsViewForValidJSON() {
	view, err := s.inspector.Inspect([]byte(`{"foo": "bar"}`))

	s.Require().NoError(err)
	s.NotNil(view)
}

func (s *JSONInspectorSuite) TestRejectsInvalidInput() {
	for name, raw := range map[string][]byte{
		"malformed": []byte(`{not valid}`),
		"empty":     {},
		"truncated": []byte(`{"foo": `),
	} {
		s.Run(name, func() {
			_, err := s.inspector.Inspect(raw)
			s.ErrorIs(err, ErrInvalidJSON)
		})
	}
}

type JSONViewSuite struct {
	suite.Suite
	view View
}

func (s *JSONViewSuite) SetupTest() {
	raw := []byte(`{
		"source": "my.app",
		"detail-type": "UserCreated",
		"count": 42,
		"active": true,
		"detail": {
			"userId": "123",
			"nested": {"deep": true}
		},
		"Records": [{"body": "first"}, {"body": "second"}]
	}`)

	var err error
	s.view, err = JSONInspector().Inspect(raw)
	s.Require().NoError(err)
}

func TestJSONViewSuite(t *testing.T) {
	suite.Run(t, new(JSONViewSuite))
}

func (s *JSONViewSuite) TestHasField() {
	tests := map[string]bool{
		"source":                true,
		"detail-type":           true,
		"detail.userId":         true,
		"detail.nested.deep":    true,
		"Records.1.body":        true,
		"missing":               false,
		"detail.missing":        false,
		"detail.nested.missing": false,
		"Records.2.body":        false,
	}

	for path, exists := range tests {
		s.Run(path, func() {
			s.Equal(exists, s.view.HasField(path))
		})
	}
}

func (s *JSONViewSuite) TestString() {
	val, ok := s.view.String("detail.userId")
	s.Require().True(ok)
	s.Equal("123", val)

	val, ok = s.view.String("Records.0.body")
	s.Require().True(ok)
	s.Equal("first", val)

	for _, path := range []string{"count", "active", "detail", "missing"} {
		_, ok := s.view.String(path)
		s.False(ok, path)
	}
}

func (s *JSONViewSuite) TestRaw() {
	tests := map[string]string{
		"source":        `"my.app"`,
		"count":         "42",
		"active":        "true",
		"detail.nested": `{"deep": true}`,
	}

	for path, want := range tests {
		s.Run(path, func() {
			val, ok := s.view.Raw(path)
			s.Require().True(ok)
			s.Equal(want, string(val))
		})
	}

	_, ok := s.view.Raw("missing")
	s.False(ok)
}
