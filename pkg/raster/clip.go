package raster

import "github.com/taigrr/duskraster/pkg/scene"

// clipPlane identifies one of the six homogeneous clip planes a triangle is
// tested against, named the way the teacher's frustum.go names its own six
// planes.
type clipPlane int

const (
	planeLeft clipPlane = iota
	planeRight
	planeBottom
	planeTop
	planeNear
	planeFar
)

// distance returns d = plane . v for the given homogeneous vertex, where a
// vertex is inside the plane iff d >= 0.
func (p clipPlane) distance(v scene.Vertex) float64 {
	c := v.Clip
	switch p {
	case planeLeft:
		return c.W + c.X
	case planeRight:
		return c.W - c.X
	case planeBottom:
		return c.W + c.Y
	case planeTop:
		return c.W - c.Y
	case planeNear:
		return c.Z
	case planeFar:
		return c.W - c.Z
	default:
		return 0
	}
}

// clipEpsilon treats near-parallel edges (d_a - d_b ~ 0) as non-intersecting
// rather than dividing by a near-zero denominator.
const clipEpsilon = 1e-9

// ClipTriangle clips a triangle against all six homogeneous planes
// (|x|<=w, |y|<=w, 0<=z<=w) using Sutherland-Hodgman, returning zero or more
// triangles fanned from the resulting convex polygon. A triangle fully
// outside any plane produces no output.
func ClipTriangle(tri scene.Triangle) []scene.Triangle {
	poly := tri.V[:]
	for plane := planeLeft; plane <= planeFar; plane++ {
		poly = clipPolygonAgainstPlane(poly, plane)
		if len(poly) == 0 {
			return nil
		}
	}
	return fanTriangulate(poly)
}

func clipPolygonAgainstPlane(poly []scene.Vertex, plane clipPlane) []scene.Vertex {
	if len(poly) == 0 {
		return nil
	}
	out := make([]scene.Vertex, 0, len(poly)+1)
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		da := plane.distance(a)
		db := plane.distance(b)
		aInside := da >= 0
		bInside := db >= 0

		if aInside {
			out = append(out, a)
		}
		if aInside != bInside {
			denom := da - db
			if denom > -clipEpsilon && denom < clipEpsilon {
				continue // parallel to the plane: no well-defined intersection
			}
			t := da / denom
			out = append(out, a.Lerp(b, t))
		}
	}
	return out
}

// fanTriangulate re-triangulates a convex polygon (3 or more vertices) as a
// triangle fan from its first vertex.
func fanTriangulate(poly []scene.Vertex) []scene.Triangle {
	if len(poly) < 3 {
		return nil
	}
	tris := make([]scene.Triangle, 0, len(poly)-2)
	for i := 1; i < len(poly)-1; i++ {
		tris = append(tris, scene.Triangle{V: [3]scene.Vertex{poly[0], poly[i], poly[i+1]}})
	}
	return tris
}
