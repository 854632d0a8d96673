package router

import "github.com/gin-gonic/gin"

const apiPrefix = "/api"

// Registry collects modules and group middleware, then mounts them in the
// order they were added.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group(apiPrefix)}
}

// Use adds middleware to the /api group only; engine-wide middleware goes on
// Engine directly.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// AddIf adds mod only when enabled, for feature-flagged surfaces such as
// the metrics endpoint.
func (r *Registry) AddIf(enabled bool, mod Module) {
	if enabled {
		r.Add(mod)
	}
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
