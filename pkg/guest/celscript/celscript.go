// Package celscript evaluates holder predicate scripts against parsed
// credential details using CEL, a sandboxed, side-effect-free expression
// language. It stands in for an embedded scripting engine: scripts never see
// raw credential strings, only the parsed `details` object of each
// credential, and evaluation is bounded so a malicious script cannot loop
// forever or blow the stack.
package celscript

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"
)

// maxCost bounds the evaluation "fuel" a single script may spend, keeping
// evaluation deterministic and cheap regardless of which host runs it.
const maxCost = 10_000

// Engine compiles and evaluates CEL predicate scripts. It is safe for
// concurrent use; compiled programs are cached by script text.
type Engine struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEngine builds a CEL environment with a single input variable,
// `credentials`, bound to the list of parsed credential detail objects.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("credentials", cel.ListType(cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("build cel environment: %w", err)
	}
	return &Engine{env: env, cache: make(map[string]cel.Program)}, nil
}

// Eval runs script against the supplied credential detail objects and
// expects it to produce a boolean result. Any compile error, runtime error,
// non-boolean result, or cost-limit overrun is returned as err.
func (e *Engine) Eval(script string, credentials []map[string]any) (bool, error) {
	prg, err := e.program(script)
	if err != nil {
		return false, err
	}

	vars := map[string]any{"credentials": toDynList(credentials)}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("script error: %w", err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("script error: expected boolean result, got %s", describe(out))
	}

	return b, nil
}

func (e *Engine) program(script string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[script]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[script]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(script)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("script error: %w", issues.Err())
	}

	prg, err := e.env.Program(ast, cel.CostLimit(maxCost), cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	e.cache[script] = prg
	return prg, nil
}

func toDynList(credentials []map[string]any) []any {
	out := make([]any, len(credentials))
	for i, c := range credentials {
		out[i] = c
	}
	return out
}

func describe(v ref.Val) string {
	return v.Type().TypeName()
}
