package cerr

import (
	"context"

	"connectrpc.com/connect"
)

// convertConnectErrorInterceptor turns *Error values returned by connect
// handlers into *connect.Error so clients see the mapped code.
type convertConnectErrorInterceptor struct{}

func NewConvertConnectErrorInterceptor() connect.Interceptor {
	return convertConnectErrorInterceptor{}
}

func (convertConnectErrorInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		resp, err := next(ctx, req)
		return resp, ExtractConnectError(ctx, err)
	}
}

func (convertConnectErrorInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (convertConnectErrorInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		return ExtractConnectError(ctx, next(ctx, conn))
	}
}
