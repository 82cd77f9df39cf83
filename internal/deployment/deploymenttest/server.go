// Package deploymenttest provides an in-memory deployment server for tests.
package deploymenttest

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	loginPath         = "/services/auth/login"
	serverClassesPath = "/services/deployment/server/serverclasses"
	reloadPath        = "/services/deployment/server/config/_reload"
)

// Request is a request recorded by the fake server.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Form          url.Values
}

// ServerClass is the state of one server class on the fake server.
type ServerClass struct {
	Whitelist map[int]string
	Reloads   int
}

// Server is a fake deployment server backed by httptest.
// Zero status overrides mean the server behaves normally.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	username string
	password string
	token    string
	classes  map[string]*ServerClass
	requests []Request

	// LookupStatus forces the status of GET serverclasses/<name>.
	LookupStatus int
	// WriteStatus forces the status of create and update requests.
	WriteStatus int
	// ReloadStatus forces the status of reload requests.
	ReloadStatus int
	// SizeOverride reports this whitelist-size instead of the real one when >= 0.
	SizeOverride int
	// OmitWhitelistSize drops whitelist-size from lookup responses.
	OmitWhitelistSize bool
	// BareXML renders lookups as <entry><whitelist-size>N</whitelist-size></entry>
	// instead of an Atom feed.
	BareXML bool
}

// NewServer starts a plain HTTP fake server accepting the given credentials.
func NewServer(t testing.TB, username, password string) *Server {
	t.Helper()
	return newServer(t, username, password, false)
}

// NewTLSServer starts a fake server on HTTPS with a self-signed certificate
// valid for 127.0.0.1, like a deployment server running Splunk's default cert.
func NewTLSServer(t testing.TB, username, password string) *Server {
	t.Helper()
	return newServer(t, username, password, true)
}

func newServer(t testing.TB, username, password string, useTLS bool) *Server {
	s := &Server{
		username:     username,
		password:     password,
		token:        "fake-session-key",
		classes:      make(map[string]*ServerClass),
		SizeOverride: -1,
	}
	if useTLS {
		s.srv = httptest.NewUnstartedServer(http.HandlerFunc(s.handle))
		// Failed handshakes are expected in tests that reject the certificate.
		s.srv.Config.ErrorLog = log.New(io.Discard, "", 0)
		s.srv.StartTLS()
	} else {
		s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	}
	t.Cleanup(s.srv.Close)
	return s
}

// Certificate returns the server certificate, nil for a plain HTTP server.
func (s *Server) Certificate() *x509.Certificate {
	return s.srv.Certificate()
}

// WriteCAFile writes the server certificate as a PEM bundle into a temporary
// directory and returns its path.
func (s *Server) WriteCAFile(t testing.TB) string {
	t.Helper()
	cert := s.Certificate()
	if cert == nil {
		t.Fatal("deploymenttest: WriteCAFile needs a TLS server")
	}
	path := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("deploymenttest: writing CA file: %v", err)
	}
	return path
}

// URL returns the base URL of the fake server.
func (s *Server) URL() string {
	return s.srv.URL
}

// Token returns the session key issued on successful login.
func (s *Server) Token() string {
	return s.token
}

// AddServerClass seeds a server class with clients at indices 0..n-1.
func (s *Server) AddServerClass(name string, clients ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := &ServerClass{Whitelist: make(map[int]string)}
	for i, c := range clients {
		sc.Whitelist[i] = c
	}
	s.classes[name] = sc
}

// ServerClass returns a copy of the named server class.
func (s *Server) ServerClass(name string) (ServerClass, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.classes[name]
	if !ok {
		return ServerClass{}, false
	}
	cp := ServerClass{Whitelist: make(map[int]string, len(sc.Whitelist)), Reloads: sc.Reloads}
	for k, v := range sc.Whitelist {
		cp.Whitelist[k] = v
	}
	return cp, true
}

// Requests returns every request received so far, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns the recorded requests matching method and path.
func (s *Server) Calls(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// LoginPath returns the path of the login endpoint.
func LoginPath() string { return loginPath }

// ServerClassesPath returns the path server classes are created on.
func ServerClassesPath() string { return serverClassesPath }

// ReloadPath returns the path of the reload endpoint.
func ReloadPath() string { return reloadPath }

// ServerClassPath returns the path of one server class.
func ServerClassPath(name string) string {
	return serverClassesPath + "/" + name
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	form := url.Values{}
	for k, v := range r.PostForm {
		form[k] = append([]string(nil), v...)
	}
	s.requests = append(s.requests, Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Form:          form,
	})

	if r.URL.Path == loginPath && r.Method == http.MethodPost {
		s.login(w, form)
		return
	}

	if r.Header.Get("Authorization") != "Splunk "+s.token {
		http.Error(w, "<response><messages><msg type=\"WARN\">call not properly authenticated</msg></messages></response>", http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == reloadPath && r.Method == http.MethodPost:
		s.reload(w, form)
	case r.URL.Path == serverClassesPath && r.Method == http.MethodPost:
		s.create(w, form)
	case strings.HasPrefix(r.URL.Path, serverClassesPath+"/"):
		name := strings.TrimPrefix(r.URL.Path, serverClassesPath+"/")
		switch r.Method {
		case http.MethodGet:
			s.lookup(w, name)
		case http.MethodPost:
			s.update(w, name, form)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, form url.Values) {
	if form.Get("username") != s.username || form.Get("password") != s.password {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `<response><messages><msg code="" type="WARN">Login failed</msg></messages></response>`)
		return
	}
	fmt.Fprintf(w, "<response>\n  <sessionKey>%s</sessionKey>\n</response>\n", s.token)
}

func (s *Server) lookup(w http.ResponseWriter, name string) {
	if s.LookupStatus != 0 {
		w.WriteHeader(s.LookupStatus)
		return
	}
	sc, ok := s.classes[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `<response><messages><msg type="ERROR">Could not find object id=%s</msg></messages></response>`, name)
		return
	}

	size := len(sc.Whitelist)
	if s.SizeOverride >= 0 {
		size = s.SizeOverride
	}

	if s.BareXML {
		if s.OmitWhitelistSize {
			fmt.Fprintf(w, "<entry><name>%s</name></entry>", name)
			return
		}
		fmt.Fprintf(w, "<entry><name>%s</name><whitelist-size>%d</whitelist-size></entry>", name, size)
		return
	}

	var keys strings.Builder
	if !s.OmitWhitelistSize {
		fmt.Fprintf(&keys, `<s:key name="whitelist-size">%d</s:key>`, size)
	}
	for idx, client := range sc.Whitelist {
		fmt.Fprintf(&keys, `<s:key name="whitelist.%d">%s</s:key>`, idx, client)
	}
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:s="http://dev.splunk.com/ns/rest">
  <title>serverclasses</title>
  <entry>
    <title>%s</title>
    <content type="text/xml">
      <s:dict><s:key name="continueMatching">1</s:key>%s</s:dict>
    </content>
  </entry>
</feed>`, name, keys.String())
}

func (s *Server) create(w http.ResponseWriter, form url.Values) {
	if s.WriteStatus != 0 {
		w.WriteHeader(s.WriteStatus)
		return
	}
	name := form.Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	if _, exists := s.classes[name]; exists {
		http.Error(w, "already exists", http.StatusConflict)
		return
	}
	sc := &ServerClass{Whitelist: make(map[int]string)}
	applyWhitelist(sc, form)
	s.classes[name] = sc
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) update(w http.ResponseWriter, name string, form url.Values) {
	if s.WriteStatus != 0 {
		w.WriteHeader(s.WriteStatus)
		return
	}
	sc, ok := s.classes[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	applyWhitelist(sc, form)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) reload(w http.ResponseWriter, form url.Values) {
	if s.ReloadStatus != 0 {
		w.WriteHeader(s.ReloadStatus)
		return
	}
	if sc, ok := s.classes[form.Get("serverclass")]; ok {
		sc.Reloads++
	}
	w.WriteHeader(http.StatusOK)
}

func applyWhitelist(sc *ServerClass, form url.Values) {
	for key := range form {
		if !strings.HasPrefix(key, "whitelist.") {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(key, "whitelist."))
		if err != nil {
			continue
		}
		sc.Whitelist[idx] = form.Get(key)
	}
}
