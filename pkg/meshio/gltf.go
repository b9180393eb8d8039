// Package meshio bridges an already-parsed glTF document into the renderer's
// own Mesh type. It performs no file I/O itself: opening a .gltf/.glb file
// and any texture decoding are an external collaborator's job (SPEC_FULL.md
// §2.1), so the entry point here accepts a *gltf.Document the caller
// already loaded.
package meshio

import (
	"fmt"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/scene"
)

// MeshFromDocument converts one mesh (by index into doc.Meshes) of an
// in-memory glTF document into a *scene.Mesh, grounded on the teacher's
// processMesh/readVec3Accessor/readIndices accessor-reading logic but
// trimmed to the single in-memory conversion step: no file opening, no
// texture extraction.
func MeshFromDocument(doc *gltf.Document, meshIndex int) (*scene.Mesh, error) {
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("meshio: mesh index %d out of range (doc has %d meshes)", meshIndex, len(doc.Meshes))
	}
	gm := doc.Meshes[meshIndex]
	out := scene.NewMesh(gm.Name)

	for _, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			continue // skip non-triangle primitives (lines, points)
		}
		if err := appendPrimitive(doc, prim, out); err != nil {
			return nil, fmt.Errorf("meshio: primitive in mesh %q: %w", gm.Name, err)
		}
	}

	hasNormals := false
	for _, v := range out.Vertices {
		if v.Normal.LenSq() > 1e-6 {
			hasNormals = true
			break
		}
	}
	if !hasNormals {
		out.CalculateSmoothNormals()
	}
	return out, nil
}

func appendPrimitive(doc *gltf.Document, prim *gltf.Primitive, out *scene.Mesh) error {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	positions, err := readVec3Accessor(doc, int(posIdx))
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}

	var normals []math3d.Vec3
	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = readVec3Accessor(doc, int(normIdx)); err != nil {
			return fmt.Errorf("read normals: %w", err)
		}
	}

	var uvs []math3d.Vec2
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = readVec2Accessor(doc, int(uvIdx)); err != nil {
			return fmt.Errorf("read uvs: %w", err)
		}
	}

	baseVertex := len(out.Vertices)
	for i := range positions {
		mv := scene.MeshVertex{Position: positions[i], Color: scene.ColorWhite}
		if i < len(normals) {
			mv.Normal = normals[i]
		}
		if i < len(uvs) {
			// glTF's V=0 is the image top; this renderer's UV=0 is the bottom.
			mv.UV = math3d.V2(uvs[i].X, 1.0-uvs[i].Y)
		}
		out.Vertices = append(out.Vertices, mv)
	}

	if prim.Indices != nil {
		indices, err := readIndices(doc, int(*prim.Indices))
		if err != nil {
			return fmt.Errorf("read indices: %w", err)
		}
		for i := 0; i+2 < len(indices); i += 3 {
			out.Faces = append(out.Faces, scene.Face{V: [3]int{
				baseVertex + indices[i],
				baseVertex + indices[i+2], // glTF is CCW front-facing; this renderer's Y-flipped
				baseVertex + indices[i+1], // screen space treats CW as front, so swap winding
			}})
		}
	} else {
		for i := 0; i+2 < len(positions); i += 3 {
			out.Faces = append(out.Faces, scene.Face{V: [3]int{
				baseVertex + i,
				baseVertex + i + 2,
				baseVertex + i + 1,
			}})
		}
	}
	return nil
}

func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC3")
	}
	out := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		out[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}
	return out, nil
}

func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([][2]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC2")
	}
	out := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		out[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return out, nil
}

func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case []uint8:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []uint16:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []uint32:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected index type: %T", data)
	}
}

// readAccessorData reads an accessor's raw buffer-view data, supporting
// only embedded (GLB-style) buffers: external buffer URIs are a file I/O
// concern out of this package's scope.
func readAccessorData(doc *gltf.Document, accessor *gltf.Accessor) (any, error) {
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[int(*accessor.BufferView)]
	buffer := doc.Buffers[bufferView.Buffer]
	if buffer.URI != "" {
		return nil, fmt.Errorf("external buffers not supported")
	}
	bufData := buffer.Data
	if bufData == nil {
		return nil, fmt.Errorf("buffer has no data")
	}

	start := int(bufferView.ByteOffset) + int(accessor.ByteOffset)
	stride := int(bufferView.ByteStride)
	count := int(accessor.Count)

	switch accessor.Type {
	case gltf.AccessorVec3:
		if stride == 0 {
			stride = 12
		}
		out := make([][3]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 3 {
				out[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return out, nil
	case gltf.AccessorVec2:
		if stride == 0 {
			stride = 8
		}
		out := make([][2]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 2 {
				out[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return out, nil
	case gltf.AccessorScalar:
		return readScalarAccessor(bufData, accessor, start, stride, count)
	}
	return nil, fmt.Errorf("unsupported accessor type: %v / %v", accessor.Type, accessor.ComponentType)
}

func readScalarAccessor(bufData []byte, accessor *gltf.Accessor, start, stride, count int) (any, error) {
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		if stride == 0 {
			stride = 1
		}
		out := make([]uint8, count)
		for i := range count {
			out[i] = bufData[start+i*stride]
		}
		return out, nil
	case gltf.ComponentUshort:
		if stride == 0 {
			stride = 2
		}
		out := make([]uint16, count)
		for i := range count {
			offset := start + i*stride
			out[i] = uint16(bufData[offset]) | uint16(bufData[offset+1])<<8
		}
		return out, nil
	case gltf.ComponentUint:
		if stride == 0 {
			stride = 4
		}
		out := make([]uint32, count)
		for i := range count {
			offset := start + i*stride
			out[i] = uint32(bufData[offset]) |
				uint32(bufData[offset+1])<<8 |
				uint32(bufData[offset+2])<<16 |
				uint32(bufData[offset+3])<<24
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported scalar component type: %v", accessor.ComponentType)
}

// readFloat32 reads a little-endian float32 without resorting to
// unsafe.Pointer (the teacher's own approach), using math.Float32frombits.
func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
