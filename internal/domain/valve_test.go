package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValveVectorWireForm(t *testing.T) {
	v := Vector(0, 1, 0, 0, 1, 0, 1, 1, 0)
	assert.Equal(t, "010010110", v.String())
	assert.Equal(t, []int{0, 1, 0, 0, 1, 0, 1, 1, 0}, v.Ints())
	assert.Equal(t, []ValveID{GOX1, Fuel1, GOX2, Fuel2}, v.OpenValves())

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,1,0,0,1,0,1,1,0]`, string(raw))
}

func TestValveVectorUnmarshalAcceptsBooleans(t *testing.T) {
	var v ValveVector
	require.NoError(t, json.Unmarshal([]byte(`[true,false,1,0,0,0,0,0,1]`), &v))
	assert.Equal(t, Vector(1, 0, 1, 0, 0, 0, 0, 0, 1), v)

	require.Error(t, json.Unmarshal([]byte(`["x"]`), &v))
}

func TestVectorFromIntsPadsAndTruncates(t *testing.T) {
	assert.Equal(t, Vector(1, 1, 0, 0, 0, 0, 0, 0, 0), VectorFromInts([]int{1, 2}))
	assert.Equal(t, Vector(1, 1, 1, 1, 1, 1, 1, 1, 1), VectorFromInts([]int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}))
}

func TestVectorPanicsOnWrongLength(t *testing.T) {
	assert.Panics(t, func() { Vector(1, 0) })
}

func TestWithLeavesReceiverUntouched(t *testing.T) {
	var v ValveVector
	w := v.With(Ignition, true)
	assert.False(t, v.IsOpen(Ignition))
	assert.True(t, w.IsOpen(Ignition))
}

func TestParseValveID(t *testing.T) {
	cases := []struct {
		in   string
		want ValveID
		ok   bool
	}{
		{"gox2", GOX2, true},
		{" IGNITION ", Ignition, true},
		{"1", Relief1, true},
		{"9", Ignition, true},
		{"0", 0, false},
		{"10", 0, false},
		{"nope", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseValveID(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
	assert.Equal(t, "VALVE(12)", ValveID(12).String())
}
