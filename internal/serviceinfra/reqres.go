// Package serviceinfra is the gateway's ambient HTTP plumbing: a ReqRes
// carried through an ordered chain of Policy functions, the same shape the
// gateway's teacher codebase uses for every HTTP-facing service it builds.
// Route dispatch here is deliberately a single, fixed set of routes (the
// gateway has no API-version surface to manage) rather than the teacher's
// multi-version ApiVersionInfo machinery.
package serviceinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Policy specifies the function signature for a single link in the
// request-handling chain. A policy calls r.Next(ctx) to continue the chain,
// or returns (possibly after calling r.Error) to stop it.
type Policy func(context.Context, *ReqRes) error

// ReqRes encapsulates the incoming *http.Request and outgoing
// http.ResponseWriter and is threaded through the policy chain.
type ReqRes struct {
	R  *http.Request
	RW http.ResponseWriter
	p  []Policy
}

// NewReqRes creates a ReqRes carrying the given policy chain.
func NewReqRes(p []Policy, r *http.Request, rw http.ResponseWriter) *ReqRes {
	return &ReqRes{p: p, R: r, RW: rw}
}

// Next invokes the next policy in the chain.
func (r *ReqRes) Next(ctx context.Context) error {
	if len(r.p) == 0 {
		return r.Error(http.StatusNotFound, "NotFound", "no route matched")
	}
	nextPolicy := r.p[0]
	r.p = r.p[1:]
	return nextPolicy(ctx, r)
}

// ServiceError is a standard HTTP error response body.
type ServiceError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"code"`
	Message    string `json:"message,omitempty"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// Error writes statusCode and a JSON ServiceError body to the response and
// returns it as an error so it can propagate up the policy chain.
func (r *ReqRes) Error(statusCode int, errorCode, messageFmt string, a ...any) error {
	se := &ServiceError{StatusCode: statusCode, ErrorCode: errorCode, Message: fmt.Sprintf(messageFmt, a...)}
	r.RW.Header().Set("Content-Type", "application/json")
	r.RW.WriteHeader(se.StatusCode)
	_ = json.NewEncoder(r.RW).Encode(struct {
		Error *ServiceError `json:"error"`
	}{Error: se})
	return se
}

// UnmarshalBody decodes the request body's JSON into s. On failure it writes
// a 400-BadRequest ServiceError and returns it.
func (r *ReqRes) UnmarshalBody(s any) error {
	if err := json.NewDecoder(r.R.Body).Decode(s); err != nil {
		return r.Error(http.StatusBadRequest, "InvalidJSON", "%s", err.Error())
	}
	return nil
}

// WriteJSON writes statusCode and body as a JSON response.
func (r *ReqRes) WriteJSON(statusCode int, body any) error {
	r.RW.Header().Set("Content-Type", "application/json")
	r.RW.WriteHeader(statusCode)
	return json.NewEncoder(r.RW).Encode(body)
}

// Ptr converts a value to a pointer, for optional/nullable struct fields.
func Ptr[T any](t T) *T { return &t }
