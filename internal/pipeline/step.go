package pipeline

import (
	"context"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
)

// Step transforms a batch of files. Steps may drop, replace or add files.
type Step interface {
	Name() string
	Apply(ctx context.Context, files []*asset.File) ([]*asset.File, error)
}

type funcStep struct {
	name string
	fn   func(ctx context.Context, files []*asset.File) ([]*asset.File, error)
}

func (s funcStep) Name() string { return s.name }

func (s funcStep) Apply(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
	return s.fn(ctx, files)
}

// Func adapts a batch function to a Step.
func Func(name string, fn func(ctx context.Context, files []*asset.File) ([]*asset.File, error)) Step {
	return funcStep{name: name, fn: fn}
}

// Map applies fn to every file in turn. The first error stops the batch.
func Map(name string, fn func(ctx context.Context, f *asset.File) (*asset.File, error)) Step {
	return funcStep{name: name, fn: func(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
		out := make([]*asset.File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			next, err := fn(ctx, f)
			if err != nil {
				return nil, err
			}
			if next != nil {
				out = append(out, next)
			}
		}
		return out, nil
	}}
}

type filterStep struct {
	name string
	keep func(ctx context.Context, f *asset.File) (bool, error)
}

func (s filterStep) Name() string { return s.name }

func (s filterStep) Apply(ctx context.Context, files []*asset.File) ([]*asset.File, error) {
	out := files[:0:0]
	for _, f := range files {
		ok, err := s.keep(ctx, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Filter keeps the files keep accepts. Dropped files are counted as skipped
// in the run result.
func Filter(name string, keep func(ctx context.Context, f *asset.File) (bool, error)) Step {
	return filterStep{name: name, keep: keep}
}

// When returns step if cond holds and nil otherwise; New drops nil steps.
func When(cond bool, step Step) Step {
	if !cond {
		return nil
	}
	return step
}
