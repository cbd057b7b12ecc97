package workflow

import (
	"context"

	"github.com/kbukum/flowgraph/graph"
)

// Request is one document to validate or compile.
type Request struct {
	Document *graph.Document
	Metadata Metadata
	// Saved overrides the payload's detail-saved mark per node.
	Saved graph.SaveState
}

// Service validates and compiles documents. Compile gates on validation: an
// invalid document fails with the validator's coded error.
type Service interface {
	Validate(ctx context.Context, req Request) (graph.Result, error)
	Compile(ctx context.Context, req Request) (*Result, error)
}

// NewService returns a Service backed by compiler.
func NewService(compiler *Compiler) Service {
	return &service{compiler: compiler}
}

type service struct {
	compiler *Compiler
}

func (s *service) Validate(ctx context.Context, req Request) (graph.Result, error) {
	if err := ctx.Err(); err != nil {
		return graph.Result{}, err
	}
	return graph.Validate(req.Document, req.Saved), nil
}

func (s *service) Compile(ctx context.Context, req Request) (*Result, error) {
	res, err := s.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, res.Err()
	}
	return s.compiler.Compile(req.Document, req.Metadata)
}
