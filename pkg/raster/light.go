package raster

import (
	"fmt"

	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/scene"
)

// PerspectiveLight is a spotlight: it owns a perspective viewport (for
// shadow-map rendering) in addition to its photometric properties. Cone
// cutoffs are stored as cosines of the half-angles, following the
// convention of distance-attenuated spot lights generally.
type PerspectiveLight struct {
	viewport

	color     scene.Color
	intensity float64
	quadratic float64
	innerCos  float64
	outerCos  float64
}

// NewPerspectiveLight creates a spotlight with a W x H shadow map, the given
// projection parameters, and photometric properties. innerDeg and outerDeg
// are cone half-angles in degrees; innerDeg must be <= outerDeg.
func NewPerspectiveLight(width, height int, fovRadians, near, far float64, color scene.Color, intensity, quadratic, innerDeg, outerDeg float64) (*PerspectiveLight, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	if fovRadians <= 0 {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidFOV, fovRadians)
	}
	if near <= 0 || near >= far {
		return nil, fmt.Errorf("%w: near=%f far=%f", ErrInvalidClipPlanes, near, far)
	}
	return &PerspectiveLight{
		viewport:  newViewport(width, height, fovRadians, near, far),
		color:     color,
		intensity: intensity,
		quadratic: quadratic,
		innerCos:  cosDeg(innerDeg),
		outerCos:  cosDeg(outerDeg),
	}, nil
}

// SetPosition sets the light's world position.
func (l *PerspectiveLight) SetPosition(p math3d.Vec3) { l.setPosition(p) }

// SetRotation sets the light's orientation; its forward direction (the cone
// axis) is derived from this.
func (l *PerspectiveLight) SetRotation(q math3d.Quat) { l.setRotation(q) }

// SetSpotCone sets the inner and outer cone half-angles, in degrees.
func (l *PerspectiveLight) SetSpotCone(innerDeg, outerDeg float64) {
	l.innerCos = cosDeg(innerDeg)
	l.outerCos = cosDeg(outerDeg)
}

// Position returns the light's world position.
func (l *PerspectiveLight) Position() math3d.Vec3 { return l.position }

// Forward returns the cone axis direction.
func (l *PerspectiveLight) Forward() math3d.Vec3 { return l.forward() }

// Color returns the light's radiant color.
func (l *PerspectiveLight) Color() scene.Color { return l.color }

// Intensity returns the scalar intensity multiplier.
func (l *PerspectiveLight) Intensity() float64 { return l.intensity }

// Quadratic returns the quadratic attenuation coefficient.
func (l *PerspectiveLight) Quadratic() float64 { return l.quadratic }

// ConeCosines returns (innerCos, outerCos).
func (l *PerspectiveLight) ConeCosines() (inner, outer float64) { return l.innerCos, l.outerCos }

// WorldToClip returns the cached projection * view matrix for this light.
func (l *PerspectiveLight) WorldToClip() math3d.Mat4 { return l.worldToClip() }
