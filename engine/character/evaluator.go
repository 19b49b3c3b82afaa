package character

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// VarJointPalette is the registry variable skinned shaders read their palette from.
const VarJointPalette = "JointPalette"

// Evaluator advances and evaluates many characters per frame on a persistent worker pool.
type Evaluator struct {
	pool    worker.DynamicWorkerPool
	workers int
	queue   int

	registry variable.Registry
	palette  variable.Handle
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithWorkers sets the number of pool workers. Defaults to runtime.NumCPU()-1, at least 1.
func WithWorkers(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.workers = max(n, 1)
	}
}

// WithRegistry makes Publish write palettes into reg.
func WithRegistry(reg variable.Registry) EvaluatorOption {
	return func(e *Evaluator) {
		e.registry = reg
	}
}

// NewEvaluator creates an evaluator and starts its pool.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Evaluator: the evaluator, Stop it when done
func NewEvaluator(options ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		workers: max(runtime.NumCPU()-1, 1),
		queue:   256,
		palette: variable.InvalidHandle,
	}
	for _, option := range options {
		option(e)
	}
	if e.registry != nil {
		e.palette = e.registry.DeclareVariable(VarJointPalette, variable.MakeFourCC("jpal"))
	}
	e.pool = worker.NewDynamicWorkerPool(e.workers, e.queue, time.Second)
	return e
}

// Workers returns the configured worker count.
func (e *Evaluator) Workers() int {
	return e.workers
}

// Evaluate updates every character by deltaTime and evaluates its palette. It returns
// once all characters are done.
//
// Parameters:
//   - deltaTime: elapsed time in seconds
//   - chars: the characters, each must appear once
func (e *Evaluator) Evaluate(deltaTime float32, chars []Character) {
	// a WaitGroup is the frame barrier; pool.Wait blocks until workers idle out
	var wg sync.WaitGroup
	for i, c := range chars {
		wg.Add(1)
		ch := c
		e.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				ch.Update(deltaTime)
				ch.Evaluate()
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// Publish stores the palette of c in the JointPalette registry variable.
// Without a registry it does nothing.
//
// Parameters:
//   - c: the character whose palette is published
//
// Returns:
//   - [][16]float32: the published palette
func (e *Evaluator) Publish(c Character) [][16]float32 {
	p := c.Palette()
	if e.registry != nil {
		e.registry.SetObject(e.palette, p)
	}
	return p
}

// Stop shuts down the worker pool.
func (e *Evaluator) Stop() {
	e.pool.Stop()
}
