// Package pipeline chains the compilation stages. Each stage is a Processor
// that reads and extends a shared PipelineContext; a stage that records
// errors stops the stages after it.
package pipeline

import (
	"github.com/llir/llvm/ir"

	"github.com/franz-lang/franzc/internal/ast"
	"github.com/franz-lang/franzc/internal/diagnostics"
	"github.com/franz-lang/franzc/internal/token"
)

// PipelineContext is the shared state threaded through the stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string

	Tokens  []token.Token
	AstRoot *ast.Node
	Module  *ir.Module

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(sourceCode string) *PipelineContext {
	return &PipelineContext{SourceCode: sourceCode}
}

// AddError records a diagnostic on the context.
func (c *PipelineContext) AddError(err *diagnostics.DiagnosticError) {
	c.Errors = append(c.Errors, err)
}

// HasErrors reports whether any stage recorded a diagnostic.
func (c *PipelineContext) HasErrors() bool { return len(c.Errors) > 0 }

// Processor is one compilation stage.
type Processor interface {
	Name() string
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline runs processors in order.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the stages until one records an error.
func (p *Pipeline) Run(ctx *PipelineContext) *PipelineContext {
	for _, proc := range p.processors {
		ctx = proc.Process(ctx)
		if ctx.HasErrors() {
			break
		}
	}
	return ctx
}
