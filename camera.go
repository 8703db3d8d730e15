package spritevk

import (
	"github.com/chewxy/math32"
	lin "github.com/xlab/linmath"
)

// CoreCamera is a first-person fly camera producing Vulkan-convention view
// and projection matrices with cached inverses.
type CoreCamera struct {
	fov           float32
	nearDist      float32
	farDist       float32
	aspectRatio   float32
	movementSpeed float32
	rotationSpeed float32
	modifierSpeed float32

	view               lin.Mat4x4
	viewInverse        lin.Mat4x4
	perspective        lin.Mat4x4
	perspectiveInverse lin.Mat4x4
	rotation           lin.Vec3 // pitch, yaw, roll in degrees
	position           lin.Vec3
	scale              lin.Vec3
	front              lin.Vec3

	shouldMove      bool
	modifierPressed bool
	movingForward   bool
	movingBackward  bool
	movingLeft      bool
	movingRight     bool
}

var worldUp = lin.Vec3{0.0, 1.0, 0.0}

// NewCoreCamera creates a camera at the default pose looking down +X.
func NewCoreCamera(aspectRatio float32) *CoreCamera {
	camera := &CoreCamera{
		fov:           45.0,
		nearDist:      0.1,
		farDist:       256.0,
		aspectRatio:   aspectRatio,
		movementSpeed: 1.0,
		rotationSpeed: 1.0,
		modifierSpeed: 2.5,
		position:      lin.Vec3{0.0, 1.0, 0.0},
		scale:         lin.Vec3{1.0, 1.0, 1.0},
		front:         lin.Vec3{1.0, 0.0, 0.0},
	}

	mat4Identity(&camera.view)
	mat4Identity(&camera.viewInverse)
	camera.SetAspectRatio(aspectRatio)
	camera.updateViewMatrix()

	return camera
}

// Update applies the pressed movement directions scaled by the timestep,
// then rebuilds the view. A locked camera (shouldMove false) is a no-op.
func (camera *CoreCamera) Update(timestep float32) {
	if camera == nil || !camera.shouldMove {
		return
	}

	yaw := toRadians(camera.rotation[1])
	pitch := toRadians(camera.rotation[0])
	camera.front = vec3Normalize(lin.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	})

	moveSpeed := timestep * camera.movementSpeed
	if camera.modifierPressed {
		moveSpeed *= camera.modifierSpeed
	}

	right := vec3Normalize(vec3Cross(worldUp, camera.front))

	if camera.movingForward {
		camera.position = vec3Add(camera.position, vec3Scale(camera.front, moveSpeed))
	}
	if camera.movingBackward {
		camera.position = vec3Sub(camera.position, vec3Scale(camera.front, moveSpeed))
	}
	if camera.movingLeft {
		camera.position = vec3Sub(camera.position, vec3Scale(right, moveSpeed))
	}
	if camera.movingRight {
		camera.position = vec3Add(camera.position, vec3Scale(right, moveSpeed))
	}

	camera.updateViewMatrix()
}

// updateViewMatrix rebuilds the view from position and front and caches its
// inverse.
func (camera *CoreCamera) updateViewMatrix() {
	target := vec3Add(camera.position, camera.front)
	camera.view = lookAtVulkan(camera.position, target, worldUp)
	camera.viewInverse = mat4InverseRigid(&camera.view)
}

// SetAspectRatio rebuilds the perspective matrix and its inverse using the
// Vulkan convention (flipped Y, depth 0..1).
func (camera *CoreCamera) SetAspectRatio(aspect float32) {
	if camera == nil {
		return
	}
	camera.perspective = perspectiveVulkan(toRadians(camera.fov), aspect, camera.nearDist, camera.farDist)
	camera.perspectiveInverse = perspectiveInverseVulkan(toRadians(camera.fov), aspect, camera.nearDist, camera.farDist)
	camera.aspectRatio = aspect
}

// AspectRatio returns the camera's current aspect ratio.
func (camera *CoreCamera) AspectRatio() float32 {
	if camera == nil {
		return 1.0
	}
	return camera.aspectRatio
}

// Fov returns the camera's current field of view in degrees.
func (camera *CoreCamera) Fov() float32 {
	if camera == nil {
		return 1.0
	}
	return camera.fov
}

// Translate moves the camera by dir and rebuilds the view.
func (camera *CoreCamera) Translate(dir lin.Vec3) {
	if camera == nil {
		return
	}
	camera.position = vec3Add(camera.position, dir)
	camera.updateViewMatrix()
}

// Rotate applies a rotation delta scaled by half the rotation speed, with
// pitch clamped to [-89, 89] degrees and pitch/yaw wrapping back to zero at
// a full turn.
func (camera *CoreCamera) Rotate(dir lin.Vec3) {
	if camera == nil {
		return
	}

	dir[0] *= camera.rotationSpeed * 0.5
	dir[1] *= camera.rotationSpeed * 0.5
	camera.rotation = vec3Add(camera.rotation, dir)

	// avoid scene flip
	if camera.rotation[0] >= 89.0 {
		camera.rotation[0] = 89.0
	}
	if camera.rotation[0] <= -89.0 {
		camera.rotation[0] = -89.0
	}

	// reset rotation on full 360 degrees
	if camera.rotation[1] >= 360.0 || camera.rotation[1] <= -360.0 {
		camera.rotation[1] = 0.0
	}

	camera.updateViewMatrix()
}

// View returns the camera's view matrix.
func (camera *CoreCamera) View() lin.Mat4x4 {
	if camera == nil {
		return mat4IdentityValue()
	}
	return camera.view
}

// ViewInverse returns the cached inverse view matrix.
func (camera *CoreCamera) ViewInverse() lin.Mat4x4 {
	if camera == nil {
		return mat4IdentityValue()
	}
	return camera.viewInverse
}

// Perspective returns the camera's projection matrix.
func (camera *CoreCamera) Perspective() lin.Mat4x4 {
	if camera == nil {
		return mat4IdentityValue()
	}
	return camera.perspective
}

// PerspectiveInverse returns the cached inverse projection matrix.
func (camera *CoreCamera) PerspectiveInverse() lin.Mat4x4 {
	if camera == nil {
		return mat4IdentityValue()
	}
	return camera.perspectiveInverse
}

// SetLock enables or disables camera movement.
func (camera *CoreCamera) SetLock(value bool) {
	if camera == nil {
		return
	}
	camera.shouldMove = value
}

// Locked reports whether the camera can currently move.
func (camera *CoreCamera) Locked() bool {
	if camera == nil {
		return false
	}
	return camera.shouldMove
}

// Move starts or stops movement towards a direction.
func (camera *CoreCamera) Move(dir CameraDir, moving bool) {
	if camera == nil {
		return
	}
	switch dir {
	case CameraDirForward:
		camera.movingForward = moving
	case CameraDirBackward:
		camera.movingBackward = moving
	case CameraDirLeft:
		camera.movingLeft = moving
	case CameraDirRight:
		camera.movingRight = moving
	}
}

// SpeedModifier reports whether the modifier is pressed and its value.
func (camera *CoreCamera) SpeedModifier() (bool, float32) {
	if camera == nil {
		return false, 0.0
	}
	return camera.modifierPressed, camera.modifierSpeed
}

// SetSpeedModifier presses or releases the speed modifier.
func (camera *CoreCamera) SetSpeedModifier(status bool, value float32) {
	if camera == nil {
		return
	}
	camera.modifierPressed = status
	camera.modifierSpeed = value
}

// Position returns the camera's current 3d position.
func (camera *CoreCamera) Position() lin.Vec3 {
	if camera == nil {
		return lin.Vec3{}
	}
	return camera.position
}

// Front returns the camera's current forward vector.
func (camera *CoreCamera) Front() lin.Vec3 {
	if camera == nil {
		return lin.Vec3{}
	}
	return camera.front
}

func toRadians(degrees float32) float32 {
	return degrees * math32.Pi / 180.0
}

func vec3Add(a, b lin.Vec3) lin.Vec3 {
	return lin.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func vec3Sub(a, b lin.Vec3) lin.Vec3 {
	return lin.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func vec3Scale(v lin.Vec3, k float32) lin.Vec3 {
	return lin.Vec3{v[0] * k, v[1] * k, v[2] * k}
}

func vec3Cross(a, b lin.Vec3) lin.Vec3 {
	return lin.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func vec3Dot(a, b lin.Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func vec3Normalize(v lin.Vec3) lin.Vec3 {
	length := math32.Sqrt(vec3Dot(v, v))
	if length == 0 {
		return v
	}
	return vec3Scale(v, 1.0/length)
}

func mat4Identity(m *lin.Mat4x4) {
	*m = lin.Mat4x4{}
	m[0][0] = 1.0
	m[1][1] = 1.0
	m[2][2] = 1.0
	m[3][3] = 1.0
}

func mat4IdentityValue() lin.Mat4x4 {
	var m lin.Mat4x4
	mat4Identity(&m)
	return m
}

// lookAtVulkan builds a right-handed view matrix (column-major).
func lookAtVulkan(eye, center, up lin.Vec3) lin.Mat4x4 {
	f := vec3Normalize(vec3Sub(center, eye))
	s := vec3Normalize(vec3Cross(f, up))
	u := vec3Cross(s, f)

	var m lin.Mat4x4
	m[0] = lin.Vec4{s[0], u[0], -f[0], 0.0}
	m[1] = lin.Vec4{s[1], u[1], -f[1], 0.0}
	m[2] = lin.Vec4{s[2], u[2], -f[2], 0.0}
	m[3] = lin.Vec4{-vec3Dot(s, eye), -vec3Dot(u, eye), vec3Dot(f, eye), 1.0}
	return m
}

// mat4InverseRigid inverts a view matrix made of rotation plus translation:
// the rotation transposes, the translation negates through it.
func mat4InverseRigid(m *lin.Mat4x4) lin.Mat4x4 {
	var inv lin.Mat4x4
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			inv[col][row] = m[row][col]
		}
	}

	t := lin.Vec3{m[3][0], m[3][1], m[3][2]}
	inv[3] = lin.Vec4{
		-(inv[0][0]*t[0] + inv[1][0]*t[1] + inv[2][0]*t[2]),
		-(inv[0][1]*t[0] + inv[1][1]*t[1] + inv[2][1]*t[2]),
		-(inv[0][2]*t[0] + inv[1][2]*t[1] + inv[2][2]*t[2]),
		1.0,
	}
	return inv
}

// perspectiveVulkan builds a projection for the Vulkan clip space: X right,
// Y down (flipped), depth in [0, 1].
func perspectiveVulkan(fovY, aspect, near, far float32) lin.Mat4x4 {
	f := 1.0 / math32.Tan(fovY/2.0)

	var m lin.Mat4x4
	m[0][0] = f / aspect
	m[1][1] = -f
	m[2][2] = far / (near - far)
	m[2][3] = -1.0
	m[3][2] = (near * far) / (near - far)
	return m
}

// perspectiveInverseVulkan builds the analytic inverse of perspectiveVulkan.
func perspectiveInverseVulkan(fovY, aspect, near, far float32) lin.Mat4x4 {
	f := 1.0 / math32.Tan(fovY/2.0)

	var m lin.Mat4x4
	m[0][0] = aspect / f
	m[1][1] = -1.0 / f
	m[2][3] = (near - far) / (near * far)
	m[3][2] = -1.0
	m[3][3] = 1.0 / near
	return m
}
