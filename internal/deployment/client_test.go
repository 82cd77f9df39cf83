package deployment

import (
	"context"
	"crypto/x509"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsclients/internal/deployment/deploymenttest"
)

func newTestClient(t *testing.T, address string) *Client {
	t.Helper()
	c, err := NewClient(address, WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

func login(t *testing.T, c *Client) Session {
	t.Helper()
	s, err := c.Login(context.Background(), Credentials{Username: "admin", Password: "pwd"})
	require.NoError(t, err)
	return s
}

func TestNewClient_Address(t *testing.T) {
	tests := []struct {
		name    string
		address string
		opts    []ClientOption
		want    string
	}{
		{name: "bare host gets default port", address: "10.0.0.5", want: "https://10.0.0.5:8089"},
		{name: "hostname", address: "ds.example.com", want: "https://ds.example.com:8089"},
		{name: "explicit port kept", address: "ds.example.com:9089", want: "https://ds.example.com:9089"},
		{name: "custom default port", address: "ds", opts: []ClientOption{WithPort(18089)}, want: "https://ds:18089"},
		{name: "ipv6", address: "::1", want: "https://[::1]:8089"},
		{name: "full url", address: "http://127.0.0.1:1234/", want: "http://127.0.0.1:1234"},
		{name: "url without port gets default port", address: "https://ds.example.com", want: "https://ds.example.com:8089"},
		{name: "url without port gets custom port", address: "https://ds.example.com/", opts: []ClientOption{WithPort(9089)}, want: "https://ds.example.com:9089"},
		{name: "ipv6 url without port", address: "https://[::1]", want: "https://[::1]:8089"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.address, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestNewClient_RejectsEmptyAddress(t *testing.T) {
	_, err := NewClient("  ")
	assert.Error(t, err)

	_, err = NewClient("https://")
	assert.Error(t, err)
}

func TestNewClient_AppliesTimeout(t *testing.T) {
	c, err := NewClient("ds", WithTimeout(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)

	custom := &http.Client{}
	c, err = NewClient("ds", WithHTTPClient(custom))
	require.NoError(t, err)
	assert.Same(t, custom, c.httpClient)
}

func TestLogin(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	c := newTestClient(t, srv.URL())

	t.Run("valid credentials return the session key", func(t *testing.T) {
		s, err := c.Login(context.Background(), Credentials{Username: "admin", Password: "pwd"})
		require.NoError(t, err)
		assert.Equal(t, srv.Token(), s.Token)

		calls := srv.Calls(http.MethodPost, deploymenttest.LoginPath())
		require.NotEmpty(t, calls)
		last := calls[len(calls)-1]
		assert.Equal(t, "admin", last.Form.Get("username"))
		assert.Empty(t, last.Authorization)
	})

	t.Run("invalid credentials are an authentication error", func(t *testing.T) {
		_, err := c.Login(context.Background(), Credentials{Username: "admin", Password: "wrong"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.Equal(t, KindAuthentication, KindOf(err))
		assert.NotContains(t, err.Error(), "wrong")
	})
}

func TestLogin_UnparseableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<response><messages/></response>"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Login(context.Background(), Credentials{Username: "a", Password: "b"})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestLogin_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newTestClient(t, addr).Login(context.Background(), Credentials{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	// The transport failure stays reachable through the chain.
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestServerClassExists(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	srv.AddServerClass("CLASS_A", "10.0.0.1")
	c := newTestClient(t, srv.URL())
	s := login(t, c)
	ctx := context.Background()

	got, err := c.ServerClassExists(ctx, s, "CLASS_A")
	require.NoError(t, err)
	assert.Equal(t, ExistencePresent, got)

	got, err = c.ServerClassExists(ctx, s, "CLASS_B")
	require.NoError(t, err)
	assert.Equal(t, ExistenceAbsent, got)

	calls := srv.Calls(http.MethodGet, deploymenttest.ServerClassPath("CLASS_A"))
	require.Len(t, calls, 1)
	assert.Equal(t, "Splunk "+srv.Token(), calls[0].Authorization)
}

func TestServerClassExists_UnexpectedStatusIsUnknown(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	srv.LookupStatus = http.StatusInternalServerError
	c := newTestClient(t, srv.URL())

	got, err := c.ServerClassExists(context.Background(), login(t, c), "CLASS_A")
	assert.Equal(t, ExistenceUnknown, got)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusInternalServerError, de.StatusCode)
}

func TestServerClassExists_BadTokenIsUnknown(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	c := newTestClient(t, srv.URL())

	got, err := c.ServerClassExists(context.Background(), Session{Token: "stale"}, "CLASS_A")
	assert.Equal(t, ExistenceUnknown, got)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestWhitelistSize(t *testing.T) {
	t.Run("atom feed", func(t *testing.T) {
		srv := deploymenttest.NewServer(t, "admin", "pwd")
		srv.AddServerClass("CLASS_A", "a", "b", "c")
		c := newTestClient(t, srv.URL())

		size, err := c.WhitelistSize(context.Background(), login(t, c), "CLASS_A")
		require.NoError(t, err)
		assert.Equal(t, 3, size)
	})

	t.Run("bare document", func(t *testing.T) {
		srv := deploymenttest.NewServer(t, "admin", "pwd")
		srv.AddServerClass("CLASS_A", "a", "b")
		srv.BareXML = true
		c := newTestClient(t, srv.URL())

		size, err := c.WhitelistSize(context.Background(), login(t, c), "CLASS_A")
		require.NoError(t, err)
		assert.Equal(t, 2, size)
	})

	t.Run("missing field is malformed", func(t *testing.T) {
		srv := deploymenttest.NewServer(t, "admin", "pwd")
		srv.AddServerClass("CLASS_A", "a")
		srv.OmitWhitelistSize = true
		c := newTestClient(t, srv.URL())

		_, err := c.WhitelistSize(context.Background(), login(t, c), "CLASS_A")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("lookup failure is not reported as zero", func(t *testing.T) {
		srv := deploymenttest.NewServer(t, "admin", "pwd")
		c := newTestClient(t, srv.URL())

		size, err := c.WhitelistSize(context.Background(), login(t, c), "MISSING")
		assert.Zero(t, size)
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	})
}

func TestWriteServerClass_CreateThenRead(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	c := newTestClient(t, srv.URL())
	s := login(t, c)
	ctx := context.Background()

	err := c.WriteServerClass(ctx, s, WriteRequest{
		Create:  true,
		Name:    "CLASS_NEW",
		Clients: []string{"127.0.0.1", "127.0.0.2"},
		Start:   7, // ignored on create
	})
	require.NoError(t, err)

	size, err := c.WhitelistSize(ctx, s, "CLASS_NEW")
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	calls := srv.Calls(http.MethodPost, deploymenttest.ServerClassesPath())
	require.Len(t, calls, 1)
	assert.Equal(t, "CLASS_NEW", calls[0].Form.Get("name"))
	assert.Equal(t, "127.0.0.1", calls[0].Form.Get("whitelist.0"))
	assert.Equal(t, "127.0.0.2", calls[0].Form.Get("whitelist.1"))
}

func TestWriteServerClass_UpdateAppends(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	srv.AddServerClass("CLASS_A", "h0", "h1", "h2")
	c := newTestClient(t, srv.URL())

	err := c.WriteServerClass(context.Background(), login(t, c), WriteRequest{
		Name:    "CLASS_A",
		Clients: []string{"h3", "h4"},
		Start:   3,
	})
	require.NoError(t, err)

	sc, ok := srv.ServerClass("CLASS_A")
	require.True(t, ok)
	assert.Equal(t, map[int]string{0: "h0", 1: "h1", 2: "h2", 3: "h3", 4: "h4"}, sc.Whitelist)

	calls := srv.Calls(http.MethodPost, deploymenttest.ServerClassPath("CLASS_A"))
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Form.Get("name"))
}

func TestWriteServerClass_Rejected(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	srv.WriteStatus = http.StatusBadRequest
	c := newTestClient(t, srv.URL())

	err := c.WriteServerClass(context.Background(), login(t, c), WriteRequest{Create: true, Name: "X", Clients: []string{"a"}})
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestReload(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	srv.AddServerClass("CLASS_A")
	c := newTestClient(t, srv.URL())
	s := login(t, c)

	require.NoError(t, c.Reload(context.Background(), s, "CLASS_A"))
	sc, _ := srv.ServerClass("CLASS_A")
	assert.Equal(t, 1, sc.Reloads)

	calls := srv.Calls(http.MethodPost, deploymenttest.ReloadPath())
	require.Len(t, calls, 1)
	assert.Equal(t, "CLASS_A", calls[0].Form.Get("serverclass"))

	srv.ReloadStatus = http.StatusServiceUnavailable
	assert.ErrorIs(t, c.Reload(context.Background(), s, "CLASS_A"), ErrUnexpectedStatus)
}

func TestRequests_HonourContext(t *testing.T) {
	srv := deploymenttest.NewServer(t, "admin", "pwd")
	c := newTestClient(t, srv.URL())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ServerClassExists(ctx, Session{Token: srv.Token()}, "CLASS_A")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCredentials_Redacted(t *testing.T) {
	creds := Credentials{Username: "admin", Password: "s3cret"}
	assert.NotContains(t, creds.String(), "s3cret")
	assert.NotContains(t, creds.LogValue().String(), "s3cret")
}

func TestClient_TLS(t *testing.T) {
	srv := deploymenttest.NewTLSServer(t, "admin", "pwd")
	creds := Credentials{Username: "admin", Password: "pwd"}

	t.Run("self-signed certificate is rejected by default", func(t *testing.T) {
		c := newTestClient(t, srv.URL())

		_, err := c.Login(context.Background(), creds)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.ErrorIs(t, err, ErrServiceUnavailable)

		_, err = c.ServerClassExists(context.Background(), Session{Token: "x"}, "CLASS_A")
		var de *Error
		require.True(t, errors.As(err, &de))
		assert.Equal(t, KindServiceUnavailable, de.Kind)
		assert.Equal(t, TransportTLS, de.Transport)
		assert.Empty(t, srv.Requests())
	})

	t.Run("insecure skip verify accepts it", func(t *testing.T) {
		c, err := NewClient(srv.URL(), WithTimeout(2*time.Second), WithInsecureSkipVerify(true))
		require.NoError(t, err)

		s, err := c.Login(context.Background(), creds)
		require.NoError(t, err)
		assert.Equal(t, srv.Token(), s.Token)
	})

	t.Run("root CAs holding the certificate accept it", func(t *testing.T) {
		pool := x509.NewCertPool()
		pool.AddCert(srv.Certificate())
		c, err := NewClient(srv.URL(), WithTimeout(2*time.Second), WithRootCAs(pool))
		require.NoError(t, err)

		s, err := c.Login(context.Background(), creds)
		require.NoError(t, err)
		assert.Equal(t, srv.Token(), s.Token)
	})
}
