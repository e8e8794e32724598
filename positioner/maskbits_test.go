package positioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFPSStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NONE", FPSStatus(0).String())
	assert.Equal(t, "MOVING", FPSMoving.String())
	assert.Equal(t, "MOVING|LOCKED", (FPSMoving | FPSLocked).String())
}

func TestFPSStatusHasAny(t *testing.T) {
	t.Parallel()

	s := FPSMoving | FPSCollided
	assert.True(t, s.Has(FPSMoving))
	assert.False(t, s.Has(FPSMoving|FPSLocked))
	assert.True(t, s.Any(FPSLocked|FPSMoving))
	assert.False(t, s.Any(FPSLocked|FPSBootloader))
}

func TestPositionerStatusCollided(t *testing.T) {
	t.Parallel()

	assert.False(t, PositionerStatus(0).Collided())
	assert.True(t, CollisionA.Collided())
	assert.True(t, CollisionB.Collided())
	assert.True(t, (CollisionA | CollisionB).Collided())
	assert.False(t, Moving.Collided())
}

func TestPositionerStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NONE", PositionerStatus(0).String())
	assert.Equal(t, "COLLISION_ALPHA|MOVING", (CollisionA | Moving).String())
}
