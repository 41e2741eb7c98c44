// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pipeline runs the ordered authorization checks that guard every route.

A [Pipeline] is a named, immutable list of [Step] values. Each request gets a
fresh [RequestContext] which the steps read and enrich in declared order. The
first step that fails halts the run; no later step executes and the business
handler is never reached.

Architecture:

  - Step: a named check. Returns nil to continue, a [*Failure] to halt.
  - Pipeline: runs steps, classifies stray errors, records metrics.
  - Handler: adapts a pipeline and a final handler to net/http.

Concurrency: a pipeline holds no per-request state and may be shared by any
number of goroutines. A RequestContext is confined to its request.
*/
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/bazaar/internal/platform/ctxutil"
)

// StepFunc is the body of a step.
type StepFunc func(ctx context.Context, rc *RequestContext) error

// Step is a single named authorization check.
type Step struct {
	Name string
	Run  StepFunc
}

// Pipeline is an ordered list of steps, executed first to last.
type Pipeline struct {
	name    string
	steps   []Step
	metrics *Metrics
}

// New composes steps into a pipeline. The slice is copied.
func New(name string, steps ...Step) *Pipeline {
	return &Pipeline{
		name:  name,
		steps: append([]Step(nil), steps...),
	}
}

// WithMetrics attaches a metrics recorder and returns the pipeline.
func (p *Pipeline) WithMetrics(metrics *Metrics) *Pipeline {
	p.metrics = metrics
	return p
}

// Name returns the pipeline's label.
func (p *Pipeline) Name() string { return p.name }

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name
	}
	return names
}

/*
Run executes the steps in order against rc.

Returns:
  - nil when every step passed
  - the first [*Failure] otherwise, with Step set to the halting step

The context is checked before each step. Once it is done no further step
runs and the run fails as internal. An error that is not a [*Failure] is
logged and reported as internal.
*/
func (p *Pipeline) Run(ctx context.Context, rc *RequestContext) *Failure {
	logger := ctxutil.GetLogger(ctx)
	start := time.Now()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return p.halt(ctx, logger, start, step.Name, Internal(err))
		}

		err := step.Run(ctx, rc)
		if err == nil {
			p.metrics.observeStep(p.name, step.Name, OutcomePass)
			continue
		}

		failure, ok := AsFailure(err)
		if !ok {
			logger.ErrorContext(ctx, "pipeline_unclassified_error",
				slog.String("pipeline", p.name),
				slog.String("step", step.Name),
				slog.String("error", err.Error()),
			)
			failure = Internal(err)
		}

		return p.halt(ctx, logger, start, step.Name, failure)
	}

	p.metrics.observeRun(p.name, OutcomePass, time.Since(start).Seconds())
	logger.DebugContext(ctx, "pipeline_passed",
		slog.String("pipeline", p.name),
		slog.Any("request", rc),
	)
	return nil
}

func (p *Pipeline) halt(ctx context.Context, logger *slog.Logger, start time.Time, step string, failure *Failure) *Failure {
	halted := *failure
	halted.Step = step

	p.metrics.observeStep(p.name, step, OutcomeFail)
	p.metrics.observeRun(p.name, OutcomeFail, time.Since(start).Seconds())

	level := slog.LevelWarn
	if halted.Kind == KindInternal || halted.Kind == KindCodeDispatchFailed {
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("pipeline", p.name),
		slog.String("step", step),
		slog.String("kind", halted.Kind.String()),
	}
	if halted.Cause != nil {
		attrs = append(attrs, slog.String("cause", halted.Cause.Error()))
	}
	logger.LogAttrs(ctx, level, "pipeline_halted", attrs...)

	return &halted
}
