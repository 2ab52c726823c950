package app

import (
	"github.com/omeister/jpegbatch/internal/domain"
	"github.com/omeister/jpegbatch/internal/infra/config"
	"github.com/omeister/jpegbatch/internal/infra/logger"
)

// Store is the run-history surface the API needs, kept as an interface so
// controllers don't import the sqlite package.
type Store interface {
	SaveRun(run *domain.Run) error
	Runs() ([]*domain.Run, error)
	Run(id string) (*domain.Run, error)
	Close() error
}

// Context holds the shared environment for one invocation.
type Context struct {
	Config *config.Config
	Logger *logger.Logger
	Store  Store
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
