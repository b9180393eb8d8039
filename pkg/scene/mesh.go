package scene

import "github.com/taigrr/duskraster/pkg/math3d"

// MeshVertex holds the per-vertex attributes a Mesh stores, prior to any
// frame's geometry pipeline run.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2
	Color    Color
}

// Face is a triangle, given as indices into Mesh.Vertices.
type Face struct {
	V [3]int
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max math3d.Vec3
}

// Mesh is immutable geometry (vertices, faces) plus an optional texture and
// a world transform. The model matrix is cached and recomputed only when the
// transform changes; the local bounding box is recomputed when geometry is
// added, and WorldBounds transforms it on every call.
type Mesh struct {
	Name     string
	Vertices []MeshVertex
	Faces    []Face
	Texture  *Texture

	translation math3d.Vec3
	rotation    math3d.Quat
	scale       math3d.Vec3

	localBounds AABB
	modelMatrix math3d.Mat4
	worldDirty  bool
}

// NewMesh creates an empty mesh with an identity transform.
func NewMesh(name string) *Mesh {
	m := &Mesh{
		Name:        name,
		rotation:    math3d.QIdentity(),
		scale:       math3d.V3(1, 1, 1),
		modelMatrix: math3d.Identity(),
	}
	return m
}

// AddTriangle appends a new triangle built from three mesh vertices,
// returning the face index.
func (m *Mesh) AddTriangle(v0, v1, v2 MeshVertex) int {
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, v0, v1, v2)
	m.Faces = append(m.Faces, Face{V: [3]int{base, base + 1, base + 2}})
	m.recalculateLocalBounds()
	return len(m.Faces) - 1
}

// SetTexture binds a texture to the mesh.
func (m *Mesh) SetTexture(tex *Texture) {
	m.Texture = tex
}

// SetTransform sets the translation, rotation, and scale in one call.
func (m *Mesh) SetTransform(translation math3d.Vec3, rotation math3d.Quat, scale math3d.Vec3) {
	m.translation = translation
	m.rotation = rotation
	m.scale = scale
	m.worldDirty = true
}

// SetPosition sets the translation component of the transform.
func (m *Mesh) SetPosition(p math3d.Vec3) {
	m.translation = p
	m.worldDirty = true
}

// SetRotation sets the rotation component of the transform.
func (m *Mesh) SetRotation(q math3d.Quat) {
	m.rotation = q
	m.worldDirty = true
}

// SetScale sets the scale component of the transform.
func (m *Mesh) SetScale(s math3d.Vec3) {
	m.scale = s
	m.worldDirty = true
}

// ModelMatrix returns the cached model matrix M = T * R * S (column-major,
// so applied to a column vector this scales first, then rotates, then
// translates) recomputing it lazily if the transform changed.
func (m *Mesh) ModelMatrix() math3d.Mat4 {
	if m.worldDirty {
		m.modelMatrix = math3d.Translate(m.translation).
			Mul(m.rotation.ToMat4()).
			Mul(math3d.Scale(m.scale))
		m.worldDirty = false
	}
	return m.modelMatrix
}

// LocalBounds returns the mesh's untransformed bounding box.
func (m *Mesh) LocalBounds() AABB {
	return m.localBounds
}

// WorldBounds returns the bounding box after the current model transform,
// computed by transforming all 8 corners of the local box.
func (m *Mesh) WorldBounds() AABB {
	model := m.ModelMatrix()
	lo, hi := m.localBounds.Min, m.localBounds.Max
	corners := [8]math3d.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z}, {X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z}, {X: hi.X, Y: hi.Y, Z: hi.Z},
	}
	world := model.MulVec3(corners[0])
	b := AABB{Min: world, Max: world}
	for _, c := range corners[1:] {
		w := model.MulVec3(c)
		b.Min = b.Min.Min(w)
		b.Max = b.Max.Max(w)
	}
	return b
}

// IsOpaque reports whether the mesh can never produce a translucent
// fragment: textured meshes defer to the texture's IsOpaque, untextured
// meshes require every vertex color to have alpha 255.
func (m *Mesh) IsOpaque() bool {
	if m.Texture != nil {
		return m.Texture.IsOpaque
	}
	for _, v := range m.Vertices {
		if v.Color.A != 255 {
			return false
		}
	}
	return true
}

// CalculateFlatNormals assigns each face's geometric normal to its three
// vertices, overwriting any previously assigned normals.
func (m *Mesh) CalculateFlatNormals() {
	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position
		n := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		m.Vertices[f.V[0]].Normal = n
		m.Vertices[f.V[1]].Normal = n
		m.Vertices[f.V[2]].Normal = n
	}
}

// CalculateSmoothNormals computes area-weighted averaged normals per vertex.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}
	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position
		n := v1.Sub(v0).Cross(v2.Sub(v0)) // unnormalized: weights by area
		m.Vertices[f.V[0]].Normal = m.Vertices[f.V[0]].Normal.Add(n)
		m.Vertices[f.V[1]].Normal = m.Vertices[f.V[1]].Normal.Add(n)
		m.Vertices[f.V[2]].Normal = m.Vertices[f.V[2]].Normal.Add(n)
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

func (m *Mesh) recalculateLocalBounds() {
	if len(m.Vertices) == 0 {
		return
	}
	min, max := m.Vertices[0].Position, m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		min = min.Min(v.Position)
		max = max.Max(v.Position)
	}
	m.localBounds = AABB{Min: min, Max: max}
}
