// Package httpclient executes HTTP requests with bounded retries and projects
// the final response into one of several result shapes.
//
// Every public operation runs the same pipeline: the request is duplicated
// for each attempt, sent once through the Doer, classified into an
// OutcomeKind, and either retried after a backoff or projected.
//
// Families
//   - Send / TrySend: the live *http.Response.
//   - SendToString / TrySendToString: the body text, whatever the status.
//   - SendToType / TrySendToType: the body decoded into *T.
//   - SendWithError / TrySendWithError: a Pair of decoded success and error bodies.
//   - SendWithProblem / TrySendWithProblem: SendWithError with a Problem error body.
//   - SendToResult / TrySendToResult: a Result holding a value or a Problem.
//
// Try variants never return errors; failure is reported through the shape
// itself (false, nil, an empty Pair or a failed Result).
//
// Backoff
//   - Retry k waits BaseDelay * 2^(k-1) plus jitter drawn from [0, JitterUpperBound).
//   - There is no delay cap; bound the call with its context instead.
//   - Cancellation before a send, during a send or during a delay ends the call
//     with OutcomeCanceled and no further sends.
//
// Notes
//   - Each family has its own default retry classes; see the family docs and
//     WithRetryOn / WithRetryableStatus to change them.
//   - Interceptor errors and recovered panics are not retried.
package httpclient
