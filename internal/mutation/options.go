package mutation

import (
	"context"
	"time"

	"github.com/spec-kit/campus-console/internal/domain"
)

// Option tunes one Submit call.
type Option func(*submitOptions)

type submitOptions struct {
	label   string
	success string
	timeout time.Duration
	refetch func(ctx context.Context) error
	check   func(cur domain.Record) error
}

// WithLabel names the action in user-facing notifications, e.g. "approve enrollment".
func WithLabel(label string) Option {
	return func(o *submitOptions) { o.label = label }
}

// WithSuccessMessage enqueues a success notification after commit.
func WithSuccessMessage(msg string) Option {
	return func(o *submitOptions) { o.success = msg }
}

// WithTimeout bounds the server call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *submitOptions) { o.timeout = d }
}

// WithRefetch runs fn after a successful commit, for actions whose effects
// reach data the response does not carry.
func WithRefetch(fn func(ctx context.Context) error) Option {
	return func(o *submitOptions) { o.refetch = fn }
}

// WithPrecondition rejects the submit with the returned error when check
// fails on the current record. check runs under the coordinator lock, after
// the pending check and before the optimistic write.
func WithPrecondition(check func(cur domain.Record) error) Option {
	return func(o *submitOptions) { o.check = check }
}
