package deployment

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind categorizes a failure talking to the deployment server.
type Kind int

const (
	// KindUnknown indicates an unclassified failure.
	KindUnknown Kind = iota
	// KindAuthentication indicates the login exchange failed.
	KindAuthentication
	// KindServiceUnavailable indicates a network or transport failure.
	KindServiceUnavailable
	// KindUnexpectedStatus indicates the server answered with a status the call site does not accept.
	KindUnexpectedStatus
	// KindMalformedResponse indicates an expected field was absent from the response body.
	KindMalformedResponse
)

// String returns the name used for the kind in results and logs.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "AuthenticationError"
	case KindServiceUnavailable:
		return "ServiceUnavailable"
	case KindUnexpectedStatus:
		return "UnexpectedStatus"
	case KindMalformedResponse:
		return "MalformedResponse"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is checks against an *Error of the matching kind.
var (
	ErrAuthentication     = &Error{Kind: KindAuthentication}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrUnexpectedStatus   = &Error{Kind: KindUnexpectedStatus}
	ErrMalformedResponse  = &Error{Kind: KindMalformedResponse}
)

// TransportClass narrows down a KindServiceUnavailable failure.
type TransportClass int

const (
	TransportUnknown TransportClass = iota
	TransportTLS
	TransportDNS
	TransportTimeout
	TransportNetwork
)

// String returns a human-readable name for the transport class.
func (c TransportClass) String() string {
	switch c {
	case TransportTLS:
		return "TLS certificate error"
	case TransportDNS:
		return "DNS resolution error"
	case TransportTimeout:
		return "connection timeout"
	case TransportNetwork:
		return "network error"
	default:
		return "connection error"
	}
}

// Error is returned by every Client operation.
type Error struct {
	// Kind is the failure category.
	Kind Kind
	// Op names the operation, e.g. "login" or "reload".
	Op string
	// Endpoint is the request path that failed.
	Endpoint string
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	// Transport is set for KindServiceUnavailable.
	Transport TransportClass
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " %s", e.Endpoint)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.Kind == KindServiceUnavailable {
		fmt.Fprintf(&b, " (%s)", e.Transport)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

func transportError(op, endpoint string, err error) *Error {
	return &Error{
		Kind:      KindServiceUnavailable,
		Op:        op,
		Endpoint:  endpoint,
		Transport: classifyTransport(err),
		Err:       err,
	}
}

func statusError(op, endpoint string, status int) *Error {
	return &Error{
		Kind:       KindUnexpectedStatus,
		Op:         op,
		Endpoint:   endpoint,
		StatusCode: status,
	}
}

func malformedError(op, endpoint string, err error) *Error {
	return &Error{
		Kind:     KindMalformedResponse,
		Op:       op,
		Endpoint: endpoint,
		Err:      err,
	}
}

// classifyTransport inspects a transport-level error to pick a TransportClass.
func classifyTransport(err error) TransportClass {
	if err == nil {
		return TransportUnknown
	}

	var certErr x509.CertificateInvalidError
	var hostErr x509.HostnameError
	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return TransportTLS
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimeout
	}

	msg := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:"} {
		if strings.Contains(msg, keyword) {
			return TransportTLS
		}
	}
	for _, keyword := range []string{"connection refused", "no route to host", "network is unreachable", "connection reset"} {
		if strings.Contains(msg, keyword) {
			return TransportNetwork
		}
	}
	return TransportUnknown
}
