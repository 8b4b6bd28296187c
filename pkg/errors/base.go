/*
Package errors carries the error kinds the meta-server distinguishes
between: configuration problems, unavailable providers, failed tool
invocations, bad meta-tool arguments, and shutdown cancellations.
*/
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for the dispatch and reporting paths.
type Kind string

const (
	// KindConfig marks a malformed or rejected provider configuration.
	// Never fatal to the process; the provider is dropped.
	KindConfig Kind = "config"

	// KindProviderUnavailable marks a provider that exists but is not
	// connected. The router skips it.
	KindProviderUnavailable Kind = "provider_unavailable"

	// KindToolInvocation marks a failed remote tool call. Recorded as a
	// metric failure and triggers the next fallback.
	KindToolInvocation Kind = "tool_invocation"

	// KindMetaToolUsage marks bad arguments to a meta-tool.
	KindMetaToolUsage Kind = "meta_tool_usage"

	// KindShutdown marks outbound calls canceled mid-flight. Surfaced
	// but never recorded as a metric failure.
	KindShutdown Kind = "shutdown"
)

// Error aggregates one or more causes and messages under a Kind.
type Error struct {
	Kind Kind
	Errs []error
	Msgs []any
}

// New builds an Error of the given kind from a mix of errors and
// messages.
func New(kind Kind, parts ...any) *Error {
	err := &Error{Kind: kind}

	for _, part := range parts {
		switch v := part.(type) {
		case error:
			err.Errs = append(err.Errs, v)
		default:
			err.Msgs = append(err.Msgs, v)
		}
	}

	return err
}

func (err *Error) Error() string {
	builder := &strings.Builder{}

	for _, msg := range err.Msgs {
		builder.WriteString(fmt.Sprintf("%v", msg))
		builder.WriteString(": ")
	}

	for i, cause := range err.Errs {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(cause.Error())
	}

	return strings.TrimSuffix(strings.TrimSpace(builder.String()), ":")
}

// Unwrap exposes the first cause for errors.Is / errors.As chains.
func (err *Error) Unwrap() error {
	if len(err.Errs) == 0 {
		return nil
	}
	return err.Errs[0]
}

// KindOf extracts the Kind from an error, or empty when it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether the error carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
