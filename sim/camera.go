package sim

import (
	"github.com/go-gl/mathgl/mgl32"
)

var (
	axisX = mgl32.Vec3{1, 0, 0}
	axisY = mgl32.Vec3{0, 1, 0}
)

// FrameSpeed normalizes movement to the configured frame baseline.
func FrameSpeed(moveSpeed, dt, baseline float64) float32 {
	return float32(moveSpeed * dt * baseline)
}

// LocalVelocity builds the camera-space step for the held keys.
// Forward is -Z, right is +X.
func LocalVelocity(in Input, speed float32) mgl32.Vec3 {
	var v mgl32.Vec3
	if in.Forward {
		v[2] -= speed
	}
	if in.Backward {
		v[2] += speed
	}
	if in.Left {
		v[0] -= speed
	}
	if in.Right {
		v[0] += speed
	}
	return v
}

// MoveCamera rotates the local step by the camera orientation and applies it.
// There is no collision and no bounds clamp.
func MoveCamera(cam Camera, in Input, speed float32) Camera {
	if !in.Locked {
		return cam
	}
	step := LocalVelocity(in, speed)
	if step.Len() == 0 {
		return cam
	}
	cam.Position = cam.Position.Add(cam.Orientation.Rotate(step))
	return cam
}

// LookOrientation composes yaw around world Y with pitch around local X.
func LookOrientation(yaw, pitch float32) mgl32.Quat {
	return mgl32.QuatRotate(yaw, axisY).Mul(mgl32.QuatRotate(pitch, axisX)).Normalize()
}

// Look applies a mouse delta in pixels to yaw/pitch and clamps pitch to ±limit.
func Look(yaw, pitch float32, dx, dy float64, sensitivity, limitDegrees float32) (float32, float32) {
	yaw -= float32(dx) * sensitivity
	pitch -= float32(dy) * sensitivity

	limit := mgl32.DegToRad(limitDegrees)
	if pitch > limit {
		pitch = limit
	}
	if pitch < -limit {
		pitch = -limit
	}
	return yaw, pitch
}
