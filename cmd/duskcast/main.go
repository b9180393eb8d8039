// duskcast is a headless driver that exercises the rendering pipeline end
// to end: it builds a small procedural scene, renders a fixed number of
// frames, and writes the last one to a PNG. It replaces the teacher's
// interactive terminal viewer (cmd/trophy) with a non-interactive smoke
// test suited to CI and benchmarking.
package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/raster"
	"github.com/taigrr/duskraster/pkg/scene"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "duskcast:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		width, height int
		frames        int
		outPath       string
		workers       int
		spotDeg       float64
	)

	cmd := &cobra.Command{
		Use:   "duskcast",
		Short: "Render a procedural scene headlessly and save the last frame as a PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), width, height, frames, workers, spotDeg, outPath)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&width, "width", 640, "output image width in pixels")
	flags.IntVar(&height, "height", 480, "output image height in pixels")
	flags.IntVar(&frames, "frames", 60, "number of frames to render before saving")
	flags.IntVar(&workers, "workers", 0, "tile worker count (0 selects GOMAXPROCS)")
	flags.Float64Var(&spotDeg, "spot-outer-deg", 35, "spotlight outer cone half-angle in degrees")
	flags.StringVar(&outPath, "out", "duskcast.png", "output PNG path")
	return cmd
}

func run(ctx context.Context, width, height, frames, workers int, spotOuterDeg float64, outPath string) error {
	camera, err := raster.NewCamera(width, height, math.Pi/3, 0.1, 100)
	if err != nil {
		return fmt.Errorf("build camera: %w", err)
	}
	camera.SetPosition(math3d.V3(0, 1.5, 5))
	camera.LookAt(math3d.V3(0, 0, 0))

	light, err := raster.NewPerspectiveLight(512, 512, math.Pi/2.5, 0.1, 50,
		scene.RGB(255, 244, 214), 18, 0.05, spotOuterDeg*0.6, spotOuterDeg)
	if err != nil {
		return fmt.Errorf("build light: %w", err)
	}
	light.SetPosition(math3d.V3(3, 4, 3))
	lightForward := math3d.V3(0, 0, 0).Sub(light.Position()).Normalize()
	light.SetRotation(lookRotation(lightForward))

	opts := []raster.PipelineOption{}
	if workers > 0 {
		opts = append(opts, raster.WithWorkers(workers))
	}
	pipeline, err := raster.NewPipeline(width, height, []*raster.PerspectiveLight{light}, opts...)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer pipeline.Close()

	floor := floorMesh(8, scene.RGB(90, 90, 100))
	cube := cubeMesh(1, scene.RGB(200, 80, 60))
	cube.SetPosition(math3d.V3(0, 1, 0))

	sc := &raster.Scene{
		Camera:     camera,
		Meshes:     []*scene.Mesh{floor, cube},
		Background: scene.RGB(18, 18, 24),
		Ambient:    scene.RGB(40, 40, 48),
	}

	var frame []byte
	for i := range frames {
		angle := float64(i) / float64(frames) * 2 * math.Pi
		cube.SetRotation(math3d.QFromEuler(0, angle, 0))

		frame, err = pipeline.Render(ctx, sc)
		if err != nil {
			return fmt.Errorf("render frame %d: %w", i, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return savePNG(outPath, frame, width, height)
}

func savePNG(path string, rgba []byte, width, height int) error {
	img := &image.NRGBA{
		Pix:    rgba,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// lookRotation builds the quaternion that rotates -Z onto forward, matching
// Camera.LookAt's own pitch/yaw derivation.
func lookRotation(forward math3d.Vec3) math3d.Quat {
	pitch := math.Asin(forward.Y)
	yaw := math.Atan2(-forward.X, -forward.Z)
	return math3d.QFromEuler(pitch, yaw, 0)
}

// floorMesh builds a single flat quad (two triangles) of the given
// half-extent, centered at the origin, facing +Y.
func floorMesh(halfExtent float64, color scene.Color) *scene.Mesh {
	m := scene.NewMesh("floor")
	normal := math3d.V3(0, 1, 0)
	corners := [4]math3d.Vec3{
		math3d.V3(-halfExtent, 0, -halfExtent),
		math3d.V3(halfExtent, 0, -halfExtent),
		math3d.V3(halfExtent, 0, halfExtent),
		math3d.V3(-halfExtent, 0, halfExtent),
	}
	uvs := [4]math3d.Vec2{
		math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(1, 1), math3d.V2(0, 1),
	}
	verts := [4]scene.MeshVertex{}
	for i := range corners {
		verts[i] = scene.MeshVertex{Position: corners[i], Normal: normal, UV: uvs[i], Color: color}
	}
	m.AddTriangle(verts[0], verts[1], verts[2])
	m.AddTriangle(verts[0], verts[2], verts[3])
	return m
}

// cubeMesh builds an axis-aligned cube of the given half-extent, centered
// at the origin, with per-face flat normals and a solid vertex color.
func cubeMesh(halfExtent float64, color scene.Color) *scene.Mesh {
	m := scene.NewMesh("cube")

	type face struct {
		normal     math3d.Vec3
		a, b, c, d math3d.Vec3
	}
	h := halfExtent
	faces := []face{
		{math3d.V3(0, 0, 1), math3d.V3(-h, -h, h), math3d.V3(h, -h, h), math3d.V3(h, h, h), math3d.V3(-h, h, h)},
		{math3d.V3(0, 0, -1), math3d.V3(h, -h, -h), math3d.V3(-h, -h, -h), math3d.V3(-h, h, -h), math3d.V3(h, h, -h)},
		{math3d.V3(1, 0, 0), math3d.V3(h, -h, h), math3d.V3(h, -h, -h), math3d.V3(h, h, -h), math3d.V3(h, h, h)},
		{math3d.V3(-1, 0, 0), math3d.V3(-h, -h, -h), math3d.V3(-h, -h, h), math3d.V3(-h, h, h), math3d.V3(-h, h, -h)},
		{math3d.V3(0, 1, 0), math3d.V3(-h, h, h), math3d.V3(h, h, h), math3d.V3(h, h, -h), math3d.V3(-h, h, -h)},
		{math3d.V3(0, -1, 0), math3d.V3(-h, -h, -h), math3d.V3(h, -h, -h), math3d.V3(h, -h, h), math3d.V3(-h, -h, h)},
	}
	uvs := [4]math3d.Vec2{math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(1, 1), math3d.V2(0, 1)}

	for _, f := range faces {
		va := scene.MeshVertex{Position: f.a, Normal: f.normal, UV: uvs[0], Color: color}
		vb := scene.MeshVertex{Position: f.b, Normal: f.normal, UV: uvs[1], Color: color}
		vc := scene.MeshVertex{Position: f.c, Normal: f.normal, UV: uvs[2], Color: color}
		vd := scene.MeshVertex{Position: f.d, Normal: f.normal, UV: uvs[3], Color: color}
		// Clockwise as seen from outside the face: the rasterizer's
		// front-facing winding, the same one the floor uses.
		m.AddTriangle(va, vc, vb)
		m.AddTriangle(va, vd, vc)
	}
	return m
}
