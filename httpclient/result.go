package httpclient

import "fmt"

// Canonical failure titles of the result family.
const (
	TitleRequestCanceled    = "Request canceled"
	TitleSomethingWentWrong = "Something went wrong"
	TitleServiceUnavailable = "Service unavailable"
	TitleInvalidResponse    = "Invalid response"
	TitleInvalidRequest     = "Invalid request"
)

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p Problem) Error() string {
	if p.Detail == "" {
		return fmt.Sprintf("%s (status: %d)", p.Title, p.Status)
	}
	return fmt.Sprintf("%s: %s (status: %d)", p.Title, p.Detail, p.Status)
}

// isDocument reports whether p was actually populated by a decoded body.
func (p Problem) isDocument() bool {
	return p.Title != "" || p.Type != "" || p.Detail != ""
}

// Result holds either a value or a Problem, never both. The zero Result is a
// failure without details.
type Result[T any] struct {
	value   T
	problem Problem
	ok      bool
}

// Ok returns a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Fail returns a failed Result.
func Fail[T any](title, detail string, statusCode int) Result[T] {
	return Result[T]{problem: Problem{Title: title, Detail: detail, Status: statusCode}}
}

// FailWith returns a failed Result carrying p.
func FailWith[T any](p Problem) Result[T] {
	return Result[T]{problem: p}
}

// Succeeded reports whether the result holds a value.
func (r Result[T]) Succeeded() bool { return r.ok }

// Failed reports whether the result holds a problem.
func (r Result[T]) Failed() bool { return !r.ok }

// Value returns the value and true on success.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Problem returns the failure description and true on failure.
func (r Result[T]) Problem() (Problem, bool) {
	if r.ok {
		return Problem{}, false
	}
	return r.problem, true
}

// Pair carries at most one of a success value and an error value. Both are
// nil when the call obtained no usable answer.
type Pair[S, E any] struct {
	Success *S
	Error   *E
}

// HasSuccess reports whether the success side was decoded.
func (p Pair[S, E]) HasSuccess() bool { return p.Success != nil }

// HasError reports whether the error side was decoded.
func (p Pair[S, E]) HasError() bool { return p.Error != nil }
