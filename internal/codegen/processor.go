package codegen

import (
	"github.com/franz-lang/franzc/internal/pipeline"
)

// CodeGenProcessor adapts the generator to the pipeline.
type CodeGenProcessor struct{}

func (p *CodeGenProcessor) Name() string { return "codegen" }

func (p *CodeGenProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	gen := New()
	m, err := gen.Generate(ctx.AstRoot)
	ctx.Module = m
	if err != nil {
		for _, diag := range gen.Errors() {
			ctx.AddError(diag)
		}
	}
	return ctx
}
