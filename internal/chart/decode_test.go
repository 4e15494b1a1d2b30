package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstats/internal/models"
)

const followersGraph = `{
	"columns": [
		["x", 1700000000000, 1700086400000, 1700172800000],
		["y0", 10, 12, 9],
		["y1", 3, 0, 7]
	],
	"types": {"y0": "line", "y1": "line", "x": "x"},
	"names": {"y0": "Joined", "y1": "Left"},
	"colors": {"y0": "GREEN#55BB60", "y1": "#E05356"},
	"hidden": ["y1"],
	"subchart": {"show": true, "defaultZoom": [1700000000000, 1700172800000]},
	"xTickFormatter": "function(x) { return x; }",
	"y_scaled": true
}`

func TestDecode_Lines(t *testing.T) {
	c, err := Decode([]byte(followersGraph))
	require.NoError(t, err)

	assert.Equal(t, []int64{1700000000000, 1700086400000, 1700172800000}, c.X)
	assert.Equal(t, int64(86400000), c.TimeStep)
	require.Len(t, c.Lines, 2)

	joined := c.Lines[0]
	assert.Equal(t, "y0", joined.ID)
	assert.Equal(t, "Joined", joined.Name)
	assert.Equal(t, models.ChartLineLine, joined.Type)
	assert.Equal(t, "GREEN", joined.ColorKey)
	assert.Equal(t, "#55BB60", joined.Color)
	assert.Equal(t, int64(9), joined.MinValue)
	assert.Equal(t, int64(12), joined.MaxValue)
	assert.False(t, joined.IsHiddenOnStart)

	left := c.Lines[1]
	assert.Empty(t, left.ColorKey)
	assert.Equal(t, "#E05356", left.Color)
	assert.True(t, left.IsHiddenOnStart)

	assert.Equal(t, int64(0), c.MinValue)
	assert.Equal(t, int64(12), c.MaxValue)
	assert.True(t, c.YScaled)
	assert.False(t, c.Percentage)
	assert.True(t, c.HasZoom)
	assert.Equal(t, [2]int64{1700000000000, 1700172800000}, c.DefaultZoomX)
}

func TestDecode_PercentageFlags(t *testing.T) {
	c, err := Decode([]byte(`{"columns":[["x",1],["y0",100]],"types":{"x":"x","y0":"area"},"percentage":true,"stacked":1}`))
	require.NoError(t, err)

	assert.True(t, c.Percentage)
	assert.True(t, c.Stacked)
	assert.Equal(t, defaultTimeStep, c.TimeStep)
	assert.Equal(t, models.ChartLineArea, c.Lines[0].Type)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `not json`},
		{"no x column", `{"columns":[["y0",1,2]]}`},
		{"length mismatch", `{"columns":[["x",1,2],["y0",1]]}`},
		{"column without id", `{"columns":[[]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestDecode_NoXColumnSentinel(t *testing.T) {
	_, err := Decode([]byte(`{"columns":[]}`))
	assert.ErrorIs(t, err, ErrNoXColumn)
}
