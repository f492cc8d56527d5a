package parser

import (
	"github.com/franz-lang/franzc/internal/diagnostics"
	"github.com/franz-lang/franzc/internal/pipeline"
)

// ParserProcessor adapts the parser to the pipeline.
type ParserProcessor struct{}

func (p *ParserProcessor) Name() string { return "parser" }

func (p *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	root, err := New(ctx.Tokens).Parse()
	if err != nil {
		ctx.AddError(&diagnostics.DiagnosticError{Message: err.Error()})
		return ctx
	}
	ctx.AstRoot = root
	return ctx
}
