package api

import (
	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/uploads"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Uploads uploads.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	uploadsSystem := uploads.New(
		&cfg.Uploads,
		runtime.Previews,
		uploads.NewLogSink(runtime.Logger),
		uploads.PNGRasterizer{},
		runtime.Pagination,
		runtime.Logger,
	)

	return &Domain{
		Uploads: uploadsSystem,
	}
}
