package raster

import "github.com/taigrr/duskraster/pkg/scene"

// Scene is everything a Pipeline needs to render one frame. Lights are not
// part of Scene: shadow-map resources are preallocated per light at
// Pipeline construction, tying light lifetime to the pipeline rather than
// to any one frame's scene description.
type Scene struct {
	Camera     *Camera
	Meshes     []*scene.Mesh
	Background scene.Color
	Ambient    scene.Color
}
