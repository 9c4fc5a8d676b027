// Package oracletest provides a scripted Oracle for tests.
package oracletest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/Chative-querybot/server/internal/agent/oracle"
)

var ErrUnscripted = errors.New("oracletest: no scripted response")

type Call struct {
	Purpose oracle.Purpose
	Prompt  string
	Options oracle.Options
}

// Oracle answers from per-purpose queues. The last answer of a queue repeats once the
// queue is drained.
type Oracle struct {
	mu        sync.Mutex
	responses map[oracle.Purpose][]string
	errs      map[oracle.Purpose]error
	calls     []Call
}

func New() *Oracle {
	return &Oracle{
		responses: map[oracle.Purpose][]string{},
		errs:      map[oracle.Purpose]error{},
	}
}

// On queues responses for purpose.
func (o *Oracle) On(purpose oracle.Purpose, responses ...string) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses[purpose] = append(o.responses[purpose], responses...)
	delete(o.errs, purpose)
	return o
}

// Fail makes every call with purpose return err.
func (o *Oracle) Fail(purpose oracle.Purpose, err error) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[purpose] = err
	return o
}

func (o *Oracle) Calls() []Call {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Call(nil), o.calls...)
}

func (o *Oracle) CallsFor(purpose oracle.Purpose) int {
	n := 0
	for _, c := range o.Calls() {
		if c.Purpose == purpose {
			n++
		}
	}
	return n
}

// LastPrompt returns the most recent prompt sent with purpose.
func (o *Oracle) LastPrompt(purpose oracle.Purpose) string {
	calls := o.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Purpose == purpose {
			return calls[i].Prompt
		}
	}
	return ""
}

func (o *Oracle) next(prompt string, opts []oracle.Option) (string, error) {
	opt := oracle.ApplyOptions(oracle.Options{}, opts...)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, Call{Purpose: opt.Purpose, Prompt: prompt, Options: opt})

	if err := o.errs[opt.Purpose]; err != nil {
		return "", err
	}
	queue := o.responses[opt.Purpose]
	if len(queue) == 0 {
		return "", fmt.Errorf("%w for purpose %q", ErrUnscripted, opt.Purpose)
	}
	resp := queue[0]
	if len(queue) > 1 {
		o.responses[opt.Purpose] = queue[1:]
	}
	return resp, nil
}

func (o *Oracle) Complete(ctx context.Context, prompt string, opts ...oracle.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := o.next(prompt, opts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp) == "" {
		return "", oracle.ErrEmptyCompletion
	}
	return strings.TrimSpace(resp), nil
}

// Stream yields the scripted answer word by word.
func (o *Oracle) Stream(ctx context.Context, prompt string, opts ...oracle.Option) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := o.next(prompt, opts)
		if err != nil {
			yield("", err)
			return
		}
		for _, fragment := range strings.SplitAfter(resp, " ") {
			if fragment == "" {
				continue
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

var _ oracle.Oracle = (*Oracle)(nil)
