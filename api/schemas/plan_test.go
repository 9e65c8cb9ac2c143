package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/auroch/api/schemas"
)

func TestBoxGeometry(t *testing.T) {
	t.Parallel()
	b := schemas.Box{X: 10, Y: 20, Width: 31, Height: 11}
	assert.Equal(t, schemas.Point{X: 25, Y: 25}, b.Center())

	assert.True(t, b.Contains(schemas.Point{X: 10, Y: 20}))
	assert.True(t, b.Contains(schemas.Point{X: 40, Y: 30}))
	assert.False(t, b.Contains(schemas.Point{X: 41, Y: 30}), "right edge is exclusive")
	assert.False(t, b.Contains(schemas.Point{X: 40, Y: 31}), "bottom edge is exclusive")
}

func TestPointJSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(schemas.Point{X: -3, Y: 9})
	require.NoError(t, err)
	assert.Equal(t, `[-3,9]`, string(data))

	var p schemas.Point
	require.NoError(t, json.Unmarshal([]byte(`[7,8]`), &p))
	assert.Equal(t, schemas.Point{X: 7, Y: 8}, p)
	require.Error(t, json.Unmarshal([]byte(`{"x":1}`), &p))
}

func TestActionUnmarshal_LenientBoxID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  string
		want *int
	}{
		{`2`, schemas.BoxRef(2)},
		{`2.0`, schemas.BoxRef(2)},
		{`" 3 "`, schemas.BoxRef(3)},
		{`null`, nil},
		{`1.5`, nil},
		{`"two"`, nil},
		{`[1]`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			var a schemas.Action
			require.NoError(t, json.Unmarshal([]byte(`{"type":"click","box_id":`+tc.raw+`}`), &a))
			assert.Equal(t, schemas.ActionClick, a.Type)
			assert.Equal(t, tc.want, a.BoxID)
		})
	}
}

func TestActionParams(t *testing.T) {
	t.Parallel()
	var a schemas.Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"SCROLL","params":{
		"amount": "-4", "seconds": 1.25, "text": "hi", "n": 12, "junk": "x"
	}}`), &a))

	assert.Equal(t, -4, a.IntParam("amount"))
	assert.Equal(t, 12, a.IntParam("n"))
	assert.Equal(t, 0, a.IntParam("junk"))
	assert.Equal(t, 0, a.IntParam("missing"))
	assert.InDelta(t, 1.25, a.FloatParam("seconds"), 1e-9)
	assert.InDelta(t, -4.0, a.FloatParam("amount"), 1e-9)
	assert.Equal(t, 0.0, a.FloatParam("junk"))
	for _, bad := range []string{"NaN", "Inf", "-Inf", "+infinity"} {
		a.Params["bad"] = bad
		assert.Equal(t, 0.0, a.FloatParam("bad"), bad)
	}
	assert.Equal(t, "hi", a.StringParam("text"))
	assert.Equal(t, "12", a.StringParam("n"))
	assert.Equal(t, "", a.StringParam("missing"))
}

func TestActionTypeVocabulary(t *testing.T) {
	t.Parallel()
	for _, ty := range []schemas.ActionType{schemas.ActionClick, schemas.ActionText, schemas.ActionScroll, schemas.ActionMove, schemas.ActionWait, schemas.ActionWake} {
		assert.True(t, ty.Known(), ty)
	}
	assert.False(t, schemas.ActionType("DRAG").Known())
	assert.True(t, schemas.ActionMove.RequiresBox())
	assert.False(t, schemas.ActionWake.RequiresBox())
}

func TestPlanBox(t *testing.T) {
	t.Parallel()
	p := schemas.Plan{Boxes: []schemas.Box{{ID: 0, Width: 1, Height: 1}, {ID: 1, X: 5, Width: 2, Height: 2}}}
	b, ok := p.Box(schemas.BoxRef(1))
	require.True(t, ok)
	assert.Equal(t, 5, b.X)
	for _, id := range []*int{nil, schemas.BoxRef(-1), schemas.BoxRef(2)} {
		_, ok := p.Box(id)
		assert.False(t, ok)
	}
}

func TestInferredMoveRoundTrip(t *testing.T) {
	t.Parallel()
	from, to := schemas.Point{X: 1, Y: 2}, schemas.Point{X: 30, Y: 40}
	in := schemas.Action{
		Type: schemas.ActionMove, BoxID: schemas.BoxRef(1), Params: map[string]any{},
		Generated: true, Timestamp: 12.5, From: &from, To: &to,
		DurationMs: 380, Curve: "lognormal", Seed: 99,
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"from":[1,2]`)

	var out schemas.Action
	require.NoError(t, json.Unmarshal(data, &out))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
