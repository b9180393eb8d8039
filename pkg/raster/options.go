package raster

import (
	"log/slog"
	"runtime"
)

// PipelineOption configures optional Pipeline parameters at construction,
// following the functional-options shape used throughout the retrieved
// pack's constructors rather than growing NewPipeline's positional arity.
type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	workers            int
	compressionEpsilon float32
	material           Material
	backfaceCull       bool
	logger             *slog.Logger
}

func defaultPipelineConfig() pipelineConfig {
	return pipelineConfig{
		workers:            runtime.GOMAXPROCS(0),
		compressionEpsilon: DefaultCompressionEpsilon,
		material:           DefaultMaterial(),
		backfaceCull:       true,
		logger:             slog.New(slog.DiscardHandler),
	}
}

// WithWorkers overrides the tiled rasterizer's worker-goroutine count,
// which otherwise defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithCompressionEpsilon overrides the deep shadow map's compression
// tolerance, which otherwise defaults to DefaultCompressionEpsilon.
func WithCompressionEpsilon(epsilon float32) PipelineOption {
	return func(c *pipelineConfig) { c.compressionEpsilon = epsilon }
}

// WithMaterial overrides the default specular strength and shininess used
// for every fragment (per-mesh materials are out of scope).
func WithMaterial(m Material) PipelineOption {
	return func(c *pipelineConfig) { c.material = m }
}

// WithBackfaceCulling toggles back-face culling, enabled by default.
func WithBackfaceCulling(enabled bool) PipelineOption {
	return func(c *pipelineConfig) { c.backfaceCull = enabled }
}

// WithLogger injects a structured logger for internal diagnostics.
// NewPipeline logs one Info record with its dimensions, light count and
// worker count; nothing else is logged through it. A nil logger is ignored.
// The core never
// picks a logging destination itself; callers that want output configure
// their own slog.Handler and pass the resulting logger here.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(c *pipelineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
