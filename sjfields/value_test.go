package sjfields_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanjson/spanjson-go/sjfields"
	"github.com/spanjson/spanjson-go/sjutil"
)

func encode(t *testing.T, v sjfields.FieldValue) string {
	t.Helper()
	var b sjutil.Builder
	require.NoError(t, v.AppendTo(&b))
	return string(b.B)
}

func TestValueEncodings(t *testing.T) {
	assert.Equal(t, "null", encode(t, sjfields.Null()))
	assert.Equal(t, "null", encode(t, sjfields.FieldValue{}))
	assert.Equal(t, `"hi"`, encode(t, sjfields.String("hi")))
	assert.Equal(t, "-3", encode(t, sjfields.Int(-3)))
	assert.Equal(t, "18446744073709551615", encode(t, sjfields.Uint64(^uint64(0))))
	assert.Equal(t, "false", encode(t, sjfields.Bool(false)))
	assert.Equal(t, `[1,"two",null]`,
		encode(t, sjfields.Array(sjfields.Int(1), sjfields.String("two"), sjfields.Null())))
	assert.Equal(t, `{"a":1,"b":{"c":true}}`,
		encode(t, sjfields.Object(
			sjfields.F("a", sjfields.Int(1)),
			sjfields.F("b", sjfields.Object(sjfields.F("c", sjfields.Bool(true)))),
		)))
	assert.Equal(t, `{"pre":"baked"}`, encode(t, sjfields.Raw([]byte(`{"pre":"baked"}`))))
}

func TestValueAnyUsesJSON(t *testing.T) {
	type payload struct {
		Rows int    `json:"rows"`
		Tag  string `json:"tag"`
	}
	assert.Equal(t, `{"rows":5,"tag":"a<b"}`, encode(t, sjfields.Any(payload{Rows: 5, Tag: "a<b"})))
}

func TestValueInvalidRawErrors(t *testing.T) {
	var b sjutil.Builder
	b.AppendString("keep")
	err := sjfields.Raw([]byte(`{"broken":`)).AppendTo(&b)
	require.Error(t, err)
	assert.Equal(t, "keep", string(b.B), "failed encode must append nothing")
}

func TestValueObjectMemberFailureAppendsNothing(t *testing.T) {
	var b sjutil.Builder
	err := sjfields.Object(
		sjfields.F("good", sjfields.Int(1)),
		sjfields.F("bad", sjfields.Any(func() {})),
	).AppendTo(&b)
	require.Error(t, err)
	assert.Empty(t, b.B)
}
