package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox_Validate(t *testing.T) {
	tests := []struct {
		name    string
		box     BoundingBox
		wantErr bool
	}{
		{name: "valid", box: BoundingBox{North: 40.75, South: 40.70, East: -73.97, West: -74.02}},
		{name: "north below south", box: BoundingBox{North: 40.70, South: 40.75, East: -73.97, West: -74.02}, wantErr: true},
		{name: "east west of west", box: BoundingBox{North: 40.75, South: 40.70, East: -74.02, West: -73.97}, wantErr: true},
		{name: "zero size", box: BoundingBox{North: 40.70, South: 40.70, East: -74.0, West: -74.0}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBoundingBox_Contains(t *testing.T) {
	box := BoundingBox{North: 40.75, South: 40.70, East: -73.97, West: -74.02}

	assert.True(t, box.Contains(Point{Latitude: 40.73, Longitude: -73.99}))
	assert.True(t, box.Contains(Point{Latitude: 40.75, Longitude: -73.97}), "edges are inclusive")
	assert.False(t, box.Contains(Point{Latitude: 40.76, Longitude: -73.99}))
	assert.False(t, box.Contains(Point{Latitude: 40.73, Longitude: -73.90}))
}

func TestBoundingBoxFromRadius(t *testing.T) {
	const lat, lng = 40.7128, -74.0060 // lower Manhattan
	box := BoundingBoxFromRadius(lat, lng, 2.0)

	require.NoError(t, box.Validate())
	assert.True(t, box.Contains(Point{Latitude: lat, Longitude: lng}), "center is inside")

	// Latitude span is radius/69 degrees either side of the center.
	wantLatSpan := 2 * (2.0 / 69.0)
	assert.InDelta(t, wantLatSpan, box.North-box.South, 1e-9)

	// Longitude span is widened by the cosine correction at this latitude.
	wantLngSpan := 2 * (2.0 / (69.0 * math.Cos(lat*math.Pi/180)))
	assert.InDelta(t, wantLngSpan, box.East-box.West, 1e-9)
	assert.Greater(t, box.East-box.West, box.North-box.South)
}

func TestBoundingBoxFromRadius_ScalesLinearly(t *testing.T) {
	const lat, lng = 40.7128, -74.0060
	small := BoundingBoxFromRadius(lat, lng, 1.0)
	large := BoundingBoxFromRadius(lat, lng, 2.0)

	assert.InDelta(t, 2*(small.North-small.South), large.North-large.South, 1e-9)
	assert.InDelta(t, 2*(small.East-small.West), large.East-large.West, 1e-9)
}

func TestBoundingBoxFromRadius_ZeroRadiusFailsValidate(t *testing.T) {
	box := BoundingBoxFromRadius(40.7128, -74.0060, 0)
	assert.ErrorIs(t, box.Validate(), ErrInvalidInput)
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "alice", NormalizeUsername("ALICE"))
	assert.Equal(t, "", NormalizeUsername("   "))
}
