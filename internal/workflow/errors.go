package workflow

import (
	"context"
	"fmt"
)

// Step names one stage of the pipeline.
type Step string

const (
	StepSeed   Step = "seed"
	StepFetch  Step = "fetch"
	StepEmbed  Step = "embed"
	StepUpsert Step = "upsert"
	StepQuery  Step = "query"
	StepRender Step = "render"
)

// StepError reports which step failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrorHandler decides what happens after a step fails. Returning nil
// recovers: the step yields an empty result and the pipeline continues.
// Returning an error aborts the run with that error.
type ErrorHandler func(ctx context.Context, err *StepError) error

// FailFast is the default handler.
func FailFast(_ context.Context, err *StepError) error { return err }
