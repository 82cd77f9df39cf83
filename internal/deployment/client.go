package deployment

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dsclients/pkg/logging"
)

const (
	// DefaultPort is the management port of a Splunk deployment server.
	DefaultPort = 8089

	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

const (
	loginPath         = "/services/auth/login"
	serverClassesPath = "/services/deployment/server/serverclasses"
	reloadPath        = "/services/deployment/server/config/_reload"
)

// Credentials authenticate against the management API.
type Credentials struct {
	Username string
	Password string
}

// String redacts the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: <redacted>}", c.Username)
}

// LogValue redacts the password when credentials end up in a log call.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username), slog.String("password", "<redacted>"))
}

// Session is an authorised session on the deployment server.
// It lives for one invocation and is never persisted or refreshed.
type Session struct {
	Token string
}

// Existence is the outcome of a server class lookup.
type Existence int

const (
	// ExistenceUnknown means the lookup failed and nothing can be said.
	ExistenceUnknown Existence = iota
	// ExistenceAbsent means the server confirmed the class does not exist.
	ExistenceAbsent
	// ExistencePresent means the server returned the class.
	ExistencePresent
)

func (e Existence) String() string {
	switch e {
	case ExistenceAbsent:
		return "absent"
	case ExistencePresent:
		return "present"
	default:
		return "unknown"
	}
}

// WriteRequest describes a create or update of a server class whitelist.
type WriteRequest struct {
	// Create selects the create endpoint; otherwise the class endpoint is updated.
	Create bool
	// Name is the server class name.
	Name string
	// Clients are appended starting at Start.
	Clients []string
	// Start is the first whitelist index to write. Always 0 on create.
	Start int
}

// Client talks to the deployment server management API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger

	port               int
	timeout            time.Duration
	insecureSkipVerify bool
	rootCAs            *x509.CertPool
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Timeout and TLS options are ignored when set.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithPort sets the port used when the address carries none.
func WithPort(port int) ClientOption {
	return func(c *Client) {
		c.port = port
	}
}

// WithInsecureSkipVerify disables server certificate verification.
// Deployment servers commonly run with the self-signed certificate Splunk ships.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *Client) {
		c.insecureSkipVerify = skip
	}
}

// WithRootCAs sets the pool used to verify the server certificate.
func WithRootCAs(pool *x509.CertPool) ClientOption {
	return func(c *Client) {
		c.rootCAs = pool
	}
}

// NewClient creates a client for the deployment server at address.
// address may be a bare host, host:port, or a full https URL. The port
// option applies whenever address carries no port of its own.
func NewClient(address string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		port:    DefaultPort,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Logger("Deployment")
	}

	base, err := baseURL(address, c.port)
	if err != nil {
		return nil, err
	}
	c.baseURL = base

	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.insecureSkipVerify, //nolint:gosec // opt-in for self-signed management certs
			RootCAs:            c.rootCAs,
		}
		c.httpClient = &http.Client{Timeout: c.timeout, Transport: transport}
	}

	return c, nil
}

func baseURL(address string, port int) (*url.URL, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("deployment server address is required")
	}

	if strings.Contains(address, "://") {
		u, err := url.Parse(address)
		if err != nil {
			return nil, fmt.Errorf("invalid deployment server address %q: %w", address, err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("invalid deployment server address %q: missing host", address)
		}
		if u.Port() == "" {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
		}
		u.Path = strings.TrimSuffix(u.Path, "/")
		return u, nil
	}

	host := address
	if _, _, err := net.SplitHostPort(address); err != nil {
		host = net.JoinHostPort(strings.Trim(address, "[]"), strconv.Itoa(port))
	}
	return &url.URL{Scheme: "https", Host: host}, nil
}

// BaseURL returns the resolved management endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func serverClassPath(name string) string {
	return serverClassesPath + "/" + url.PathEscape(name)
}

// do performs one request. A nil session sends no Authorization header.
func (c *Client) do(ctx context.Context, op, method, path string, session *Session, form url.Values) (int, []byte, error) {
	endpoint := c.baseURL.String() + path

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != nil {
		req.Header.Set("Authorization", "Splunk "+session.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request failed", "op", op, "method", method, "path", path, "error", err)
		return 0, nil, transportError(op, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, transportError(op, path, err)
	}

	c.logger.Debug("Request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return resp.StatusCode, data, nil
}

// Login exchanges credentials for a session token. Every failure is
// reported as KindAuthentication wrapping the cause.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	const op = "login"

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	status, body, err := c.do(ctx, op, http.MethodPost, loginPath, nil, form)
	if err != nil {
		return Session{}, &Error{Kind: KindAuthentication, Op: op, Endpoint: loginPath, StatusCode: status, Err: err}
	}
	if status != http.StatusOK {
		return Session{}, &Error{Kind: KindAuthentication, Op: op, Endpoint: loginPath, StatusCode: status,
			Err: fmt.Errorf("login rejected for user %q", creds.Username)}
	}

	token, err := parseSessionKey(body)
	if err != nil {
		return Session{}, &Error{Kind: KindAuthentication, Op: op, Endpoint: loginPath, StatusCode: status, Err: err}
	}

	c.logger.Info("Authenticated against deployment server", "server", c.baseURL.Host, "username", creds.Username)
	return Session{Token: token}, nil
}

// ServerClassExists looks the server class up. Only 200 and 404 give a
// definite answer; anything else yields ExistenceUnknown and an error.
func (c *Client) ServerClassExists(ctx context.Context, session Session, name string) (Existence, error) {
	const op = "check server class"
	path := serverClassPath(name)

	status, _, err := c.do(ctx, op, http.MethodGet, path, &session, nil)
	if err != nil {
		return ExistenceUnknown, err
	}

	switch status {
	case http.StatusOK:
		return ExistencePresent, nil
	case http.StatusNotFound:
		return ExistenceAbsent, nil
	default:
		return ExistenceUnknown, statusError(op, path, status)
	}
}

// WhitelistSize returns the current whitelist-size of an existing server class.
func (c *Client) WhitelistSize(ctx context.Context, session Session, name string) (int, error) {
	const op = "read whitelist"
	path := serverClassPath(name)

	status, body, err := c.do(ctx, op, http.MethodGet, path, &session, nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, statusError(op, path, status)
	}

	size, err := parseWhitelistSize(body)
	if err != nil {
		return 0, malformedError(op, path, err)
	}
	return size, nil
}

// WriteServerClass creates the server class or appends to its whitelist in a single POST.
func (c *Client) WriteServerClass(ctx context.Context, session Session, req WriteRequest) error {
	op := "update server class"
	path := serverClassPath(req.Name)
	start := req.Start
	if req.Create {
		op = "create server class"
		path = serverClassesPath
		start = 0
	}

	form := WhitelistPayload(start, req.Clients)
	if req.Create {
		form.Set(fieldName, req.Name)
	}

	status, _, err := c.do(ctx, op, http.MethodPost, path, &session, form)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return statusError(op, path, status)
	}

	c.logger.Info("Wrote server class whitelist",
		"serverclass", req.Name,
		"create", req.Create,
		"start", start,
		"count", len(req.Clients))
	return nil
}

// Reload asks the server to reload the server class and push it to connected clients.
func (c *Client) Reload(ctx context.Context, session Session, name string) error {
	const op = "reload"

	form := url.Values{}
	form.Set("serverclass", name)

	status, _, err := c.do(ctx, op, http.MethodPost, reloadPath, &session, form)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return statusError(op, reloadPath, status)
	}

	c.logger.Info("Reloaded deployment server", "serverclass", name)
	return nil
}
