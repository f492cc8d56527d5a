package lexer

import (
	"github.com/franz-lang/franzc/internal/diagnostics"
	"github.com/franz-lang/franzc/internal/pipeline"
)

// LexerProcessor adapts the lexer to the pipeline.
type LexerProcessor struct{}

func (p *LexerProcessor) Name() string { return "lexer" }

func (p *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	l := New(ctx.SourceCode)
	ctx.Tokens = l.Tokens()
	if err := l.Err(); err != nil {
		ctx.AddError(&diagnostics.DiagnosticError{Message: err.Error()})
	}
	return ctx
}
