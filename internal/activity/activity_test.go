package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		typ     string
		moving  bool
		cycling bool
		foot    bool
	}{
		{Running, true, false, true},
		{Cycling, true, true, false},
		{StationaryBike, false, true, false},
		{Treadmill, false, false, true},
		{PushUp, false, false, false},
		{OpenWaterSwim, true, false, false},
		{"Unknown", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.moving, IsMoving(tt.typ))
			assert.Equal(t, tt.cycling, IsCycling(tt.typ))
			assert.Equal(t, tt.foot, IsFoot(tt.typ))
		})
	}
	assert.True(t, IsKnown(Triathlon))
	assert.False(t, IsKnown("Unknown"))
	assert.True(t, IsSwim(PoolSwim))
}
