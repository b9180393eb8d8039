package scene

import (
	"math"
	"testing"

	"github.com/taigrr/duskraster/pkg/math3d"
)

func triangleMesh() *Mesh {
	m := NewMesh("tri")
	m.AddTriangle(
		MeshVertex{Position: math3d.V3(-1, -1, 0), Color: ColorWhite},
		MeshVertex{Position: math3d.V3(1, -1, 0), Color: ColorWhite},
		MeshVertex{Position: math3d.V3(0, 1, 0), Color: ColorWhite},
	)
	return m
}

func TestMeshLocalBounds(t *testing.T) {
	m := triangleMesh()
	b := m.LocalBounds()
	if b.Min != math3d.V3(-1, -1, 0) || b.Max != math3d.V3(1, 1, 0) {
		t.Errorf("LocalBounds = %+v, want min(-1,-1,0) max(1,1,0)", b)
	}
}

func TestMeshModelMatrixIdentityByDefault(t *testing.T) {
	m := triangleMesh()
	if got := m.ModelMatrix(); got != math3d.Identity() {
		t.Errorf("ModelMatrix = %v, want identity", got)
	}
}

func TestMeshWorldBoundsFollowsTransform(t *testing.T) {
	m := triangleMesh()
	m.SetPosition(math3d.V3(5, 0, 0))

	b := m.WorldBounds()
	want := AABB{Min: math3d.V3(4, -1, 0), Max: math3d.V3(6, 1, 0)}
	if b.Min != want.Min || b.Max != want.Max {
		t.Errorf("WorldBounds = %+v, want %+v", b, want)
	}
}

func TestMeshIsOpaqueUntextured(t *testing.T) {
	m := triangleMesh()
	if !m.IsOpaque() {
		t.Error("mesh with fully opaque vertex colors should be opaque")
	}

	m.Vertices[0].Color.A = 128
	if m.IsOpaque() {
		t.Error("mesh with a translucent vertex color should not be opaque")
	}
}

func TestMeshIsOpaqueDefersToTexture(t *testing.T) {
	m := triangleMesh()
	tex := NewTexture(1, 1)
	tex.IsOpaque = false
	m.SetTexture(tex)

	if m.IsOpaque() {
		t.Error("textured mesh should defer opacity to the texture, even with opaque vertex colors")
	}
}

func TestMeshCalculateFlatNormals(t *testing.T) {
	m := triangleMesh()
	m.CalculateFlatNormals()

	want := math3d.V3(0, 0, 1)
	for i, v := range m.Vertices {
		if math.Abs(v.Normal.X-want.X) > 1e-9 || math.Abs(v.Normal.Y-want.Y) > 1e-9 || math.Abs(v.Normal.Z-want.Z) > 1e-9 {
			t.Errorf("vertex %d normal = %v, want %v", i, v.Normal, want)
		}
	}
}

func TestMeshCalculateSmoothNormalsAveragesSharedVertex(t *testing.T) {
	m := NewMesh("fan")
	// Two coplanar triangles sharing vertex 1 (the origin) by index: the
	// shared vertex's averaged normal should equal the flat per-face normal
	// (0,0,1), since both faces are coplanar. AddTriangle never shares
	// vertices, so the faces are built directly.
	m.Vertices = []MeshVertex{
		{Position: math3d.V3(-1, 0, 0)},
		{Position: math3d.V3(0, 0, 0)},
		{Position: math3d.V3(-1, 1, 0)},
		{Position: math3d.V3(1, 0, 0)},
		{Position: math3d.V3(0, 1, 0)},
	}
	m.Faces = []Face{{V: [3]int{0, 1, 2}}, {V: [3]int{1, 3, 4}}}
	m.CalculateSmoothNormals()

	for i, v := range m.Vertices {
		if math.Abs(v.Normal.Len()-1) > 1e-9 {
			t.Errorf("vertex %d normal not normalized: %v (len %v)", i, v.Normal, v.Normal.Len())
		}
	}
	want := math3d.V3(0, 0, 1)
	if n := m.Vertices[1].Normal; math.Abs(n.X-want.X) > 1e-9 || math.Abs(n.Y-want.Y) > 1e-9 || math.Abs(n.Z-want.Z) > 1e-9 {
		t.Errorf("shared vertex normal = %v, want %v", n, want)
	}
}
