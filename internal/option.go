package internal

import (
	"log/slog"

	"github.com/mk12/zendown/internal/project"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	project *project.Project
	logger  *slog.Logger
	version string
	port    int
}

// WithProject sets the project to serve.
func WithProject(p *project.Project) Option {
	return func(a *application) {
		a.project = p
	}
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithPort overrides the serve port from zendown.yml.
func WithPort(port int) Option {
	return func(a *application) {
		a.port = port
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.project == nil {
		return nil, errProjectRequired
	}
	if app.logger == nil {
		app.logger = app.project.Logger()
	}
	if app.port == 0 {
		app.port = app.project.Config().Serve.Port
	}
	return app, nil
}
