package orchestrator

import (
	"context"
	"fmt"
)

// Result summarizes a repository run.
type Result struct {
	Errors    []string
	Warnings  []string
	Cancelled bool
	Success   bool
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) finish() *Result {
	r.Success = len(r.Errors) == 0 && !r.Cancelled
	return r
}

// run tracks messages and cancellation for one invocation.
type run struct {
	ctx       context.Context
	result    *Result
	onMessage func(string)
	notice    string
}

func newRun(ctx context.Context, onMessage func(string), notice string) *run {
	return &run{ctx: ctx, result: &Result{}, onMessage: onMessage, notice: notice}
}

// emit forwards a progress message unless the run was cancelled.
func (r *run) emit(format string, args ...any) {
	if r.result.Cancelled || r.onMessage == nil {
		return
	}
	r.onMessage(fmt.Sprintf(format, args...))
}

// stopped reports whether the context is done. The first time it is, the
// cancellation notice is emitted and the result is marked cancelled.
func (r *run) stopped() bool {
	if r.result.Cancelled {
		return true
	}
	if r.ctx.Err() == nil {
		return false
	}
	r.emit("%s", r.notice)
	r.result.Cancelled = true
	return true
}
