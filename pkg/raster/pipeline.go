package raster

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taigrr/duskraster/pkg/math3d"
	"github.com/taigrr/duskraster/pkg/scene"
)

// Pipeline owns every cross-frame resource this renderer needs: the main
// framebuffer, one DeepShadowMap and one shadow-pass Tiler per light, and
// the color-pass Tiler. It is constructed once and reused frame to frame,
// per the "shared mutable state for cross-frame resources" design note:
// no global singletons, the pipeline is passed explicitly and owns its
// worker pool's lifetime.
type Pipeline struct {
	width, height int
	cfg           pipelineConfig

	fb          *FrameBuffer
	colorTiler  *Tiler
	lights      []*PerspectiveLight
	shadowMaps  []*DeepShadowMap
	shadowTiler []*Tiler

	closed bool
	mu     sync.Mutex
}

// NewPipeline preallocates the framebuffer, depth buffer, worker pool, and
// one DeepShadowMap + shadow-pass Tiler per light, per SPEC_FULL.md §6's
// library surface.
func NewPipeline(width, height int, lights []*PerspectiveLight, opts ...PipelineOption) (*Pipeline, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}

	cfg := defaultPipelineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pipeline{
		width:      width,
		height:     height,
		cfg:        cfg,
		fb:         NewFrameBuffer(width, height),
		colorTiler: NewTiler(width, height, cfg.workers),
		lights:     lights,
	}

	p.shadowMaps = make([]*DeepShadowMap, len(lights))
	p.shadowTiler = make([]*Tiler, len(lights))
	for i, l := range lights {
		p.shadowMaps[i] = NewDeepShadowMapEpsilon(l.Width(), l.Height(), cfg.compressionEpsilon)
		p.shadowTiler[i] = NewTiler(l.Width(), l.Height(), cfg.workers)
	}

	cfg.logger.Info("pipeline constructed", "width", width, "height", height, "lights", len(lights), "workers", cfg.workers)
	return p, nil
}

// Resize reallocates the framebuffer and color-pass tiler for new output
// dimensions. Shadow-map resources are unaffected: their resolution is tied
// to each light's own viewport, not the camera's.
func (p *Pipeline) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	p.width, p.height = width, height
	p.fb.Resize(width, height)
	p.colorTiler.Resize(width, height)
	return nil
}

// Close shuts down every Tiler's persistent worker pool: the color-pass
// tiler and one shadow-pass tiler per light. Render must not be called
// after Close.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.colorTiler.Close()
	for _, t := range p.shadowTiler {
		t.Close()
	}
}

// Render produces one frame's framebuffer as packed row-major RGBA8 bytes.
// It runs the three bulk-synchronous phases of SPEC_FULL.md §2: per-light
// shadow passes, an optional depth pre-pass, then the opaque and
// transparent color passes.
func (p *Pipeline) Render(ctx context.Context, sc *Scene) ([]byte, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		panic("raster: Render called on a closed Pipeline")
	}
	if sc == nil || sc.Camera == nil {
		return nil, fmt.Errorf("raster: scene and scene.Camera must be non-nil")
	}

	lightsToClip := make([]math3d.Mat4, len(p.lights))
	for i, l := range p.lights {
		lightsToClip[i] = l.WorldToClip()
	}

	if err := p.buildShadowMaps(ctx, sc.Meshes); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opaque, transparent := p.prepareCameraGeometry(sc, lightsToClip)

	p.fb.Clear(sc.Background)

	needDepthPrePass := len(opaque) > 0 && (len(p.lights) > 0 || len(opaque) > 1)
	if needDepthPrePass {
		if err := p.drawDepthPrePass(ctx, opaque); err != nil {
			return nil, err
		}
	}

	shadingLights := p.shadingLights()
	if err := p.drawColorBatches(ctx, opaque, sc, shadingLights); err != nil {
		return nil, err
	}
	if err := p.drawColorBatches(ctx, transparent, sc, shadingLights); err != nil {
		return nil, err
	}

	return p.fb.RGBA8(), nil
}

// buildShadowMaps runs the per-light shadow pass: clips scene geometry
// against each light's own frustum, rasterizes alpha-only fragments into a
// tile-local DeepShadowMap, merges into the light's main map, then
// finalizes every pixel's visibility function. Lights are independent, so
// this fans out one errgroup goroutine per light.
func (p *Pipeline) buildShadowMaps(ctx context.Context, meshes []*scene.Mesh) error {
	if len(p.lights) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range p.lights {
		i := i
		g.Go(func() error {
			light := p.lights[i]
			dsm := p.shadowMaps[i]
			dsm.Reset()

			geoms := make([]meshGeometry, 0, len(meshes))
			for _, mesh := range meshes {
				tris := prepareMesh(mesh, light.Width(), light.Height(), light.WorldToClip(), nil)
				geoms = append(geoms, meshGeometry{texture: mesh.Texture, opaque: mesh.IsOpaque(), tris: tris})
			}
			opaque, transparent := buildBatches(geoms)

			for _, b := range append(opaque, transparent...) {
				err := p.shadowTiler[i].Draw(gctx, b.tris, DrawOptions{
					ShadowMap:    dsm,
					BackfaceCull: p.cfg.backfaceCull,
					Shade:        (&shadowAlphaShader{texture: b.texture}).Shade,
				})
				if err != nil {
					return err
				}
			}
			dsm.Initialize()
			return nil
		})
	}
	return g.Wait()
}

// prepareCameraGeometry runs every mesh through the geometry pipeline
// against the camera's frustum, attaching each configured light's clip
// position to every vertex, then batches the resulting triangles by
// texture identity into opaque and transparent sets.
func (p *Pipeline) prepareCameraGeometry(sc *Scene, lightsToClip []math3d.Mat4) (opaque, transparent []textureBatch) {
	worldToClip := sc.Camera.WorldToClip()
	geoms := make([]meshGeometry, 0, len(sc.Meshes))
	for _, mesh := range sc.Meshes {
		tris := prepareMesh(mesh, p.width, p.height, worldToClip, lightsToClip)
		geoms = append(geoms, meshGeometry{texture: mesh.Texture, opaque: mesh.IsOpaque(), tris: tris})
	}
	return buildBatches(geoms)
}

// drawDepthPrePass writes depth only for every opaque batch, front-to-back,
// so the subsequent color pass rejects occluded fragments before shading
// them. Used when there is shading work worth accelerating: at least one
// light, or more than one opaque batch to order.
func (p *Pipeline) drawDepthPrePass(ctx context.Context, opaque []textureBatch) error {
	for _, b := range opaque {
		if err := p.colorTiler.Draw(ctx, b.tris, DrawOptions{
			FrameBuffer:  p.fb,
			DepthTest:    true,
			DepthOnly:    true,
			BackfaceCull: p.cfg.backfaceCull,
		}); err != nil {
			return err
		}
	}
	return nil
}

// drawColorBatches runs the Blinn-Phong color pass over one ordered batch
// set. The depth test always runs (it's what lets an opaque depth pre-pass
// reject shading work, and what lets a transparent fragment discard against
// whatever opaque geometry is in front of it); only an opaque fragment
// (alpha >= OpaqueAlphaThreshold) writes depth, decided per-fragment inside
// shadeFragmentPixel.
func (p *Pipeline) drawColorBatches(ctx context.Context, batches []textureBatch, sc *Scene, lights []shadingLight) error {
	for _, b := range batches {
		shader := newBlinnPhongShader(sc.Camera.Position(), sc.Ambient, p.cfg.material, b.texture, lights)
		if err := p.colorTiler.Draw(ctx, b.tris, DrawOptions{
			FrameBuffer:  p.fb,
			DepthTest:    true,
			BackfaceCull: p.cfg.backfaceCull,
			Shade:        shader.Shade,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) shadingLights() []shadingLight {
	out := make([]shadingLight, len(p.lights))
	for i, l := range p.lights {
		out[i] = shadingLight{light: l, dsm: p.shadowMaps[i]}
	}
	return out
}
