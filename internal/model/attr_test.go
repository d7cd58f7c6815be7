package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagesetAttrSetters(t *testing.T) {
	var im Imageset
	set := func(name, v string) error {
		a, ok := AttrByName(ImagesetAttrs, name)
		require.True(t, ok, name)
		return a.Set(&im, v)
	}

	require.NoError(t, set("Url", "http://x/"))
	require.NoError(t, set("TileLevels", "4"))
	require.NoError(t, set("BaseDegreesPerTile", "0.000123"))
	require.NoError(t, set("BottomsUp", "True"))
	assert.Error(t, set("TileLevels", "four"))
	assert.Error(t, set("StockSet", "maybe"))
	assert.Error(t, set("BaseDegreesPerTile", "NaN"))
	assert.Error(t, set("BaseDegreesPerTile", "Inf"))

	assert.Equal(t, map[string]string{
		"url":                   "http://x/",
		"tile_levels":           "4",
		"base_degrees_per_tile": "0.000123",
		"bottoms_up":            "True",
	}, im.Attrs())
}

func TestDiff(t *testing.T) {
	old := &Imageset{URL: "u", Credits: "A", Extra: map[string]string{"MeanRadius": "1"}}
	upd := &Imageset{URL: "u", Credits: "B", Name: "n"}

	changes := Diff(old.Attrs(), upd.Attrs())

	assert.Equal(t, []Change{
		{Key: "credits", Old: "A", New: "B"},
		{Key: "extra.MeanRadius", Old: "1", New: ""},
		{Key: "name", Old: "", New: "n"},
	}, changes)
	assert.False(t, old.Equal(upd))
	assert.True(t, old.Equal(old.Clone()))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.000001", FormatFloat(1e-6))
	assert.Equal(t, "1000000", FormatFloat(1e6))
	assert.Equal(t, "-12.5", FormatFloat(-12.5))
}
