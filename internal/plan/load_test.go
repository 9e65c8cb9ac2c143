package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/auroch/api/schemas"
	"go.uber.org/zap/zaptest"
)

const samplePlan = `{
  "boxes": [
    {"id": 0, "x": 10, "y": 20, "width": 100, "height": 40},
    {"id": 1, "x": 600, "y": 400, "width": 31, "height": 11}
  ],
  "actions": [
    {"type": "WAKE", "box_id": null, "params": {}, "generated": false, "timestamp": 1.5},
    {"type": "CLICK", "box_id": 0, "params": {"button": "Left"}, "generated": false, "timestamp": 2},
    {"type": "TYPE", "box_id": null, "params": {"text": "hi{ENTER}"}, "generated": false, "timestamp": 3},
    {"type": "SCROLL", "box_id": null, "params": {"amount": "-17"}, "generated": false, "timestamp": 4},
    {"type": "WAIT", "box_id": null, "params": {"seconds": 0.25}, "generated": false, "timestamp": 5},
    {"type": "MOVE", "box_id": 1, "from": [60, 40], "to": [615, 405], "duration_ms": 388,
     "curve": "lognormal", "seed": 3735928559, "generated": true, "timestamp": 6}
  ]
}`

func TestParse_SamplePlan(t *testing.T) {
	p, err := Parse([]byte(samplePlan), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Len(t, p.Boxes, 2)
	assert.Equal(t, schemas.Point{X: 615, Y: 405}, p.Boxes[1].Center())

	require.Len(t, p.Actions, 6)
	assert.Equal(t, schemas.ActionWake, p.Actions[0].Type)
	assert.Nil(t, p.Actions[0].BoxID)
	assert.Equal(t, 0, *p.Actions[1].BoxID)
	assert.Equal(t, -17, p.Actions[3].IntParam("amount"))
	assert.Equal(t, 0.25, p.Actions[4].FloatParam("seconds"))

	move := p.Actions[5]
	assert.True(t, move.Generated)
	assert.Equal(t, uint32(3735928559), move.Seed)
	assert.Equal(t, &schemas.Point{X: 60, Y: 40}, move.From)
	assert.Equal(t, 388, move.DurationMs)
}

func TestParse_RejectsStructurallyInvalidPlans(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"boxes": [`,
		"missing boxes":   `{"actions": []}`,
		"missing actions": `{"boxes": []}`,
		"boxes not array": `{"boxes": {}, "actions": []}`,
		"actions string":  `{"boxes": [], "actions": "CLICK"}`,
		"zero width box":  `{"boxes": [{"id":0,"x":0,"y":0,"width":0,"height":5}], "actions": []}`,
		"top level array": `[]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), zaptest.NewLogger(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPlan)
		})
	}
}

func TestParse_LenientActions(t *testing.T) {
	doc := `{"boxes": [], "actions": [
		"garbage",
		{"type": "click", "box_id": "2"},
		{"type": "MOVE", "box_id": 1.5}
	]}`
	p, err := Parse([]byte(doc), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, p.Actions, 3)

	assert.Equal(t, schemas.ActionType(""), p.Actions[0].Type)
	assert.Equal(t, schemas.ActionClick, p.Actions[1].Type)
	require.NotNil(t, p.Actions[1].BoxID)
	assert.Equal(t, 2, *p.Actions[1].BoxID)
	assert.Nil(t, p.Actions[2].BoxID)
}

func TestLoad_AndMarshalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o644))

	p, err := Load(path, nil)
	require.NoError(t, err)

	data, err := Marshal(p)
	require.NoError(t, err)
	again, err := Parse(data, nil)
	require.NoError(t, err)
	assert.Equal(t, p, again)

	_, err = Load(filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)
}
