// Package deployment is a minimal client for the Splunk deployment server
// management API.
//
// It covers exactly the calls needed to manage the whitelist of one server
// class: login, lookup, create/update and reload. Requests go to the
// management port (8089 by default) over HTTPS with form-encoded bodies;
// responses are XML.
//
// Every failure is an *Error carrying a Kind so callers can distinguish a
// rejected login from an unreachable server, an unexpected status or a body
// missing the expected field:
//
//	size, err := client.WhitelistSize(ctx, session, "CLASS_A")
//	if errors.Is(err, deployment.ErrMalformedResponse) {
//		// the class exists but whitelist-size could not be read
//	}
//
// The client holds no per-invocation state; the Session returned by Login is
// passed explicitly to every call.
package deployment
