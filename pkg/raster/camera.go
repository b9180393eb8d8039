package raster

import (
	"fmt"
	"math"

	"github.com/taigrr/duskraster/pkg/math3d"
)

// Camera is a perspective viewport with position and orientation. Cached
// view/projection matrices are invalidated lazily via the embedded
// viewport's dirty flags, mirroring the teacher's own Camera caching.
type Camera struct {
	viewport
}

// NewCamera creates a camera at the origin looking down -Z.
func NewCamera(width, height int, fovRadians, near, far float64) (*Camera, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	if fovRadians <= 0 {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidFOV, fovRadians)
	}
	if near <= 0 || near >= far {
		return nil, fmt.Errorf("%w: near=%f far=%f", ErrInvalidClipPlanes, near, far)
	}
	return &Camera{viewport: newViewport(width, height, fovRadians, near, far)}, nil
}

// SetPosition sets the camera's world position.
func (c *Camera) SetPosition(p math3d.Vec3) { c.setPosition(p) }

// SetRotation sets the camera's orientation.
func (c *Camera) SetRotation(q math3d.Quat) { c.setRotation(q) }

// SetFOV sets the vertical field of view, in radians.
func (c *Camera) SetFOV(fov float64) { c.setFOV(fov) }

// SetNearFar sets the near and far clip planes.
func (c *Camera) SetNearFar(near, far float64) { c.setNearFar(near, far) }

// Position returns the camera's world position.
func (c *Camera) Position() math3d.Vec3 { return c.position }

// Forward returns the camera's forward direction.
func (c *Camera) Forward() math3d.Vec3 { return c.forward() }

// WorldToClip returns the cached projection * view matrix.
func (c *Camera) WorldToClip() math3d.Mat4 { return c.worldToClip() }

// LinkTo subscribes other to this camera's transform updates, and vice
// versa: moving either invalidates both view matrices.
func (c *Camera) LinkTo(other *Camera) { c.link(&other.viewport) }

// LookAt points the camera at target.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.position).Normalize()
	pitch := math.Asin(dir.Y)
	yaw := math.Atan2(-dir.X, -dir.Z)
	c.SetRotation(math3d.QFromEuler(pitch, yaw, 0))
}
