package cerr

import (
	"fmt"
	"net/http"

	"connectrpc.com/connect"
)

// Code classifies an error for both connect and plain HTTP responses.
type Code int

const (
	OK                 = Code(0)
	Canceled           = Code(1)
	Unknown            = Code(2)
	InvalidArgument    = Code(3)
	DeadlineExceeded   = Code(4)
	NotFound           = Code(5)
	AlreadyExists      = Code(6)
	PermissionDenied   = Code(7)
	ResourceExhausted  = Code(8)
	FailedPrecondition = Code(9)
	Aborted            = Code(10)
	OutOfRange         = Code(11)
	Unimplemented      = Code(12)
	Internal           = Code(13)
	Unavailable        = Code(14)
	DataLoss           = Code(15)
	Unauthenticated    = Code(16)
)

type codeInfo struct {
	connect connect.Code
	http    int
}

// Codes 1-16 share their numeric values with connect.Code.
var codeTable = map[Code]codeInfo{
	Canceled:           {connect.CodeCanceled, 499},
	Unknown:            {connect.CodeUnknown, http.StatusInternalServerError},
	InvalidArgument:    {connect.CodeInvalidArgument, http.StatusBadRequest},
	DeadlineExceeded:   {connect.CodeDeadlineExceeded, http.StatusGatewayTimeout},
	NotFound:           {connect.CodeNotFound, http.StatusNotFound},
	AlreadyExists:      {connect.CodeAlreadyExists, http.StatusConflict},
	PermissionDenied:   {connect.CodePermissionDenied, http.StatusForbidden},
	ResourceExhausted:  {connect.CodeResourceExhausted, http.StatusRequestEntityTooLarge},
	FailedPrecondition: {connect.CodeFailedPrecondition, http.StatusPreconditionFailed},
	Aborted:            {connect.CodeAborted, http.StatusConflict},
	OutOfRange:         {connect.CodeOutOfRange, http.StatusBadRequest},
	Unimplemented:      {connect.CodeUnimplemented, http.StatusNotImplemented},
	Internal:           {connect.CodeInternal, http.StatusInternalServerError},
	Unavailable:        {connect.CodeUnavailable, http.StatusServiceUnavailable},
	DataLoss:           {connect.CodeDataLoss, http.StatusInternalServerError},
	Unauthenticated:    {connect.CodeUnauthenticated, http.StatusUnauthorized},
}

func NewCodeFromConnectError(err error) Code {
	cc := connect.CodeOf(err)
	for c, info := range codeTable {
		if info.connect == cc {
			return c
		}
	}
	return Unknown
}

func (c Code) ConnectCode() connect.Code {
	if c == OK {
		return 0
	}
	info, ok := codeTable[c]
	if !ok {
		return connect.CodeUnknown
	}
	return info.connect
}

func (c Code) HTTPCode() int {
	if c == OK {
		return http.StatusOK
	}
	info, ok := codeTable[c]
	if !ok {
		return http.StatusInternalServerError
	}
	return info.http
}

// String returns the snake_case name shared with connect, e.g. "not_found".
func (c Code) String() string {
	if c == OK {
		return "ok"
	}
	if _, ok := codeTable[c]; !ok {
		return fmt.Sprintf("code_%d", int(c))
	}
	return c.ConnectCode().String()
}
