// Package build implements the output targets: a browsable HTML tree, a
// single-page export, and a cross-reference report.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mk12/zendown/internal/index"
	"github.com/mk12/zendown/internal/macro"
	"github.com/mk12/zendown/internal/metrics"
	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/render"
)

var (
	// ErrUnknownTarget is returned by Lookup for names no target has.
	ErrUnknownTarget = errors.New("unknown build target")
	// ErrRenderErrors is returned by Run when articles rendered with error
	// markers and Options.IgnoreErrors is unset.
	ErrRenderErrors = errors.New("articles contain errors")
)

// Target is one output format.
type Target interface {
	project.Builder
	Description() string
	Build(ctx context.Context, env *Env) (Result, error)
}

// Options control a build run.
type Options struct {
	// IgnoreErrors makes a build with error markers succeed.
	IgnoreErrors bool
	// LiveReload adds the preview server's reload script to HTML pages.
	LiveReload bool
	// Stdout sends single-file output to Env.Stdout instead of out/.
	Stdout bool
}

// Env is what a target builds from.
type Env struct {
	Project  *project.Project
	Macros   *macro.Registry
	Options  Options
	Recorder metrics.Recorder
	Logger   *slog.Logger
	// Stdout receives report and single-file output.
	Stdout io.Writer
	// Index is the link graph. The links target opens the project's index
	// when it is nil.
	Index *index.DB

	errors atomic.Int64
}

// NewEnv returns an Env for p with project macros loaded and defaults set.
func NewEnv(p *project.Project, opts Options) (*Env, error) {
	reg, err := macro.ForProject(p)
	if err != nil {
		return nil, err
	}
	return &Env{
		Project:  p,
		Macros:   reg,
		Options:  opts,
		Recorder: metrics.NoopRecorder{},
		Logger:   p.Logger(),
		Stdout:   os.Stdout,
	}, nil
}

// optionsAdjuster is implemented by targets that render differently from
// the project defaults.
type optionsAdjuster interface {
	adjustOptions(o *render.Options)
}

// RenderOptions returns the options t renders the articles of p with.
func RenderOptions(t Target, p *project.Project) render.Options {
	opts := render.OptionsFor(p.Config())
	if a, ok := t.(optionsAdjuster); ok {
		a.adjustOptions(&opts)
	}
	return opts
}

// Renderer returns a renderer for b that counts error markers into env.
func (env *Env) Renderer(b project.Builder, opts render.Options) *render.Renderer {
	return render.New(env.Project, b, env.Macros, opts,
		render.WithRecorder(&countingRecorder{Recorder: env.recorder(), n: &env.errors}),
		render.WithLogger(env.logger()),
	)
}

func (env *Env) recorder() metrics.Recorder {
	if env.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return env.Recorder
}

func (env *Env) logger() *slog.Logger {
	if env.Logger == nil {
		return env.Project.Logger()
	}
	return env.Logger
}

// Result summarizes a build.
type Result struct {
	Target   string
	Articles int
	Written  int
	Removed  int
	Errors   int
	Duration time.Duration
}

func (r Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d articles, %d written, %d removed", r.Target, r.Articles, r.Written, r.Removed)
	if r.Errors > 0 {
		fmt.Fprintf(&b, ", %d errors", r.Errors)
	}
	return b.String()
}

// Run builds t, recording metrics and logging the outcome.
func Run(ctx context.Context, t Target, env *Env) (Result, error) {
	logger := env.logger().With(slog.String("target", t.Name()))
	rec := env.recorder()
	env.errors.Store(0)

	logger.Info("build: started")
	start := time.Now()
	res, err := t.Build(ctx, env)
	res.Target = t.Name()
	res.Duration = time.Since(start)
	res.Errors = int(env.errors.Load())
	rec.ObserveBuildDuration(t.Name(), res.Duration)

	switch {
	case err != nil:
		rec.IncBuildOutcome(t.Name(), metrics.OutcomeFailed)
		logger.Error("build: failed", slog.String("error", err.Error()))
		return res, fmt.Errorf("build %s: %w", t.Name(), err)
	case res.Errors > 0:
		rec.IncBuildOutcome(t.Name(), metrics.OutcomeWarning)
		logger.Warn("build: finished with errors", slog.Int("errors", res.Errors), slog.Duration("duration", res.Duration))
		if !env.Options.IgnoreErrors {
			return res, fmt.Errorf("build %s: %w: %d", t.Name(), ErrRenderErrors, res.Errors)
		}
	default:
		rec.IncBuildOutcome(t.Name(), metrics.OutcomeSuccess)
		logger.Info("build: finished",
			slog.Int("articles", res.Articles),
			slog.Int("written", res.Written),
			slog.Duration("duration", res.Duration))
	}
	return res, nil
}

// countingRecorder counts error markers on their way to the real recorder.
type countingRecorder struct {
	metrics.Recorder
	n *atomic.Int64
}

func (c *countingRecorder) IncRenderError(kind string) {
	c.n.Add(1)
	c.Recorder.IncRenderError(kind)
}
