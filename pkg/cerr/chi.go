package cerr

import (
	"context"
	"net/http"
)

type responseReceiverKey struct{}

// responseReceiver collects what a handler wants to send; the middleware
// renders it after the handler returns.
type responseReceiver struct {
	status   int
	response any
	err      error
	written  bool
}

func contextWithResponseReceiver(ctx context.Context, rr *responseReceiver) context.Context {
	return context.WithValue(ctx, responseReceiverKey{}, rr)
}

func responseReceiverFromContext(ctx context.Context) *responseReceiver {
	if rr, ok := ctx.Value(responseReceiverKey{}).(*responseReceiver); ok {
		return rr
	}
	return nil
}

func SetJSONResponse(ctx context.Context, response any) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.response = response
		rr.written = true
	}
}

// SetJSONResponseWithStatus is SetJSONResponse with a non-200 success status,
// e.g. 201 for created resources.
func SetJSONResponseWithStatus(ctx context.Context, status int, response any) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.status = status
		rr.response = response
		rr.written = true
	}
}

func SetJSONError(ctx context.Context, err error) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.err = err
		rr.written = true
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// Handled marks the response as already written by the handler itself, for
// streaming endpoints that bypass the JSON envelope.
func Handled(ctx context.Context) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.written = false
		rr.err = nil
		rr.response = nil
		rr.status = -1
	}
}

func NewConvertConnectErrorChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rr := &responseReceiver{}
			ctx := contextWithResponseReceiver(r.Context(), rr)
			next.ServeHTTP(rw, r.WithContext(ctx))
			if rr.status == -1 {
				return
			}
			if !rr.written {
				rr.err = NewError(Internal, "server error", nil)
			}
			ExtractToHTTPResponse(ctx, rw, rr)
		})
	}
}
