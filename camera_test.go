package spritevk

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	lin "github.com/xlab/linmath"
)

func TestCameraPitchClamp(t *testing.T) {
	camera := NewCoreCamera(16.0 / 9.0)

	camera.Rotate(lin.Vec3{1000.0 * 2.0, 0.0, 0.0}) // rotationSpeed halves the delta
	assert.Equal(t, float32(89.0), camera.rotation[0])

	camera.Rotate(lin.Vec3{-5000.0, 0.0, 0.0})
	assert.Equal(t, float32(-89.0), camera.rotation[0])
}

func TestCameraYawWrapsAtFullTurn(t *testing.T) {
	camera := NewCoreCamera(1.0)

	camera.Rotate(lin.Vec3{0.0, 2.0 * 360.0, 0.0})
	camera.Rotate(lin.Vec3{0.0, 2.0, 0.0})
	assert.Equal(t, float32(1.0), camera.rotation[1])
}

func TestCameraLockGatesMovement(t *testing.T) {
	camera := NewCoreCamera(1.0)
	start := camera.Position()

	camera.Move(CameraDirForward, true)
	camera.Update(1.0)
	assert.Equal(t, start, camera.Position())

	camera.SetLock(true)
	camera.Update(1.0)
	assert.NotEqual(t, start, camera.Position())
}

func TestCameraMovementFollowsFront(t *testing.T) {
	camera := NewCoreCamera(1.0)
	camera.SetLock(true)
	camera.Move(CameraDirForward, true)
	camera.Update(0.5)

	// default yaw 0, pitch 0 faces +X
	pos := camera.Position()
	assert.InDelta(t, 0.5, pos[0], 1e-5)
	assert.InDelta(t, 1.0, pos[1], 1e-5)
	assert.InDelta(t, 0.0, pos[2], 1e-5)
}

func TestCameraSpeedModifier(t *testing.T) {
	camera := NewCoreCamera(1.0)
	camera.SetLock(true)
	camera.SetSpeedModifier(true, 2.5)
	camera.Move(CameraDirBackward, true)
	camera.Update(1.0)

	pressed, value := camera.SpeedModifier()
	assert.True(t, pressed)
	assert.Equal(t, float32(2.5), value)
	assert.InDelta(t, -2.5, camera.Position()[0], 1e-5)
}

func TestCameraAspectRatioRebuildsPerspective(t *testing.T) {
	camera := NewCoreCamera(1.0)
	before := camera.Perspective()

	camera.SetAspectRatio(800.0 / 600.0)
	after := camera.Perspective()

	assert.Equal(t, float32(800.0/600.0), camera.AspectRatio())
	assert.NotEqual(t, before[0][0], after[0][0])

	// vulkan convention: Y flipped, depth 0..1
	assert.Less(t, after[1][1], float32(0.0))
}

func TestCameraViewInverseRoundTrips(t *testing.T) {
	camera := NewCoreCamera(1.0)
	camera.Translate(lin.Vec3{3.0, -2.0, 5.0})
	camera.Rotate(lin.Vec3{20.0, 60.0, 0.0})

	view := camera.View()
	inverse := camera.ViewInverse()

	product := mat4Mul(&view, &inverse)
	identity := mat4IdentityValue()
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			assert.InDelta(t, identity[col][row], product[col][row], 1e-4)
		}
	}
}

func TestPerspectiveInverseRoundTrips(t *testing.T) {
	fov := toRadians(45.0)
	proj := perspectiveVulkan(fov, 16.0/9.0, 0.1, 256.0)
	projInv := perspectiveInverseVulkan(fov, 16.0/9.0, 0.1, 256.0)

	product := mat4Mul(&proj, &projInv)
	identity := mat4IdentityValue()
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			assert.InDelta(t, identity[col][row], product[col][row], 1e-4)
		}
	}
}

func TestToRadians(t *testing.T) {
	assert.InDelta(t, math32.Pi, toRadians(180.0), 1e-6)
}

// mat4Mul multiplies column-major matrices for the round-trip checks.
func mat4Mul(a, b *lin.Mat4x4) lin.Mat4x4 {
	var out lin.Mat4x4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k][row] * b[col][k]
			}
			out[col][row] = sum
		}
	}
	return out
}
