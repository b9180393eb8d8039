package meshio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
)

func packFloat32s(vals ...float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// triangleDocument builds a minimal in-memory glTF document containing one
// mesh, one triangle, an interleaved-free position accessor, and a uint16
// index accessor, all backed by a single embedded buffer.
func triangleDocument(withNormals bool) *gltf.Document {
	posBytes := packFloat32s(
		-1, -1, 0,
		1, -1, 0,
		0, 1, 0,
	)
	idxBytes := []byte{0, 0, 1, 0, 2, 0} // uint16 little-endian: 0, 1, 2

	buffers := []*gltf.Buffer{{}}
	views := []*gltf.BufferView{}
	accessors := []*gltf.Accessor{}

	data := append([]byte{}, posBytes...)
	posViewIdx := len(views)
	views = append(views, &gltf.BufferView{Buffer: 0, ByteOffset: 0, ByteLength: len(posBytes)})
	posAccessorIdx := len(accessors)
	accessors = append(accessors, &gltf.Accessor{
		BufferView: &posViewIdx, ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3,
	})

	attrs := gltf.PrimitiveAttributes{gltf.POSITION: posAccessorIdx}

	if withNormals {
		normBytes := packFloat32s(
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
		)
		normOffset := len(data)
		data = append(data, normBytes...)
		normViewIdx := len(views)
		views = append(views, &gltf.BufferView{Buffer: 0, ByteOffset: normOffset, ByteLength: len(normBytes)})
		normAccessorIdx := len(accessors)
		accessors = append(accessors, &gltf.Accessor{
			BufferView: &normViewIdx, ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3,
		})
		attrs[gltf.NORMAL] = normAccessorIdx
	}

	idxOffset := len(data)
	data = append(data, idxBytes...)
	idxViewIdx := len(views)
	views = append(views, &gltf.BufferView{Buffer: 0, ByteOffset: idxOffset, ByteLength: len(idxBytes)})
	idxAccessorIdx := len(accessors)
	accessors = append(accessors, &gltf.Accessor{
		BufferView: &idxViewIdx, ComponentType: gltf.ComponentUshort, Type: gltf.AccessorScalar, Count: 3,
	})

	buffers[0].ByteLength = len(data)
	buffers[0].Data = data

	return &gltf.Document{
		Buffers:     buffers,
		BufferViews: views,
		Accessors:   accessors,
		Meshes: []*gltf.Mesh{{
			Name: "triangle",
			Primitives: []*gltf.Primitive{{
				Attributes: attrs,
				Indices:    &idxAccessorIdx,
				Mode:       gltf.PrimitiveTriangles,
			}},
		}},
	}
}

func TestMeshFromDocumentBuildsTriangle(t *testing.T) {
	doc := triangleDocument(true)
	m, err := MeshFromDocument(doc, 0)
	if err != nil {
		t.Fatalf("MeshFromDocument: %v", err)
	}

	if len(m.Vertices) != 3 {
		t.Fatalf("got %d vertices, want 3", len(m.Vertices))
	}
	if len(m.Faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(m.Faces))
	}
	// Winding is swapped relative to glTF's CCW convention.
	if m.Faces[0].V != [3]int{0, 2, 1} {
		t.Errorf("face indices = %v, want [0 2 1] (winding swapped)", m.Faces[0].V)
	}
}

func TestMeshFromDocumentFallsBackToSmoothNormals(t *testing.T) {
	doc := triangleDocument(false)
	m, err := MeshFromDocument(doc, 0)
	if err != nil {
		t.Fatalf("MeshFromDocument: %v", err)
	}

	for i, v := range m.Vertices {
		if math.Abs(v.Normal.Len()-1) > 1e-9 {
			t.Errorf("vertex %d normal not normalized after fallback: %v", i, v.Normal)
		}
	}
}

func TestMeshFromDocumentRejectsOutOfRangeIndex(t *testing.T) {
	doc := triangleDocument(true)
	if _, err := MeshFromDocument(doc, 5); err == nil {
		t.Error("MeshFromDocument with an out-of-range mesh index should error")
	}
}
