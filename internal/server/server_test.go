package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-propform/internal/telemetry"
	"github.com/goliatone/go-propform/pkg/configs"
	"github.com/goliatone/go-propform/pkg/probe"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/store/sqlite"
	"github.com/goliatone/go-propform/pkg/testsupport"
)

type testServer struct {
	*httptest.Server
	srv     *Server
	metrics *telemetry.Metrics
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()

	st, err := sqlite.Open(context.Background(), sqlite.Config{
		DSN:    filepath.Join(t.TempDir(), "server.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	metrics := telemetry.NewMetrics()
	doc := schema.MustNewDocument(schema.SourceFromFile("portal.json"), testsupport.PortalDocument())
	base := []Option{
		WithConfigs(configs.NewService(st)),
		WithMetrics(metrics),
		WithHealthCheck(st),
		WithDefaultSchema(doc),
	}
	srv, err := New(Config{}, append(base, opts...)...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv, metrics: metrics}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestServer_HealthAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
	require.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	const id = "4b1c7a0e-8f3c-4d55-9a43-6a1f0b2f9e11"
	resp, _ = ts.do(t, http.MethodGet, "/healthz", nil, RequestIDHeader, id)
	require.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestServer_HealthUnavailable(t *testing.T) {
	ts := newTestServer(t, WithHealthCheck(failingPinger{}))

	resp, _ := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_ConfigurationsLifecycle(t *testing.T) {
	ts := newTestServer(t)
	owner := []string{"X-Propform-Owner", "alice"}

	resp, body := ts.do(t, http.MethodPost, "/api/configs", map[string]any{
		"name": "portal", "subcategory": "eu", "categoryName": "prod", "json": `{"global":{}}`,
	}, owner...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var saved configs.ConfigurationDTO
	require.NoError(t, json.Unmarshal(body, &saved))
	require.NotZero(t, saved.ID)
	require.Equal(t, "prod", saved.CategoryName)

	resp, body = ts.do(t, http.MethodGet, "/api/configs/with-categories", nil, owner...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grouped []configs.CategoryDTO
	require.NoError(t, json.Unmarshal(body, &grouped))
	require.Len(t, grouped, 1)
	require.Len(t, grouped[0].Configurations, 1)

	resp, body = ts.do(t, http.MethodPut, "/api/configs/"+itoa(saved.ID), map[string]any{"name": "portal-v2"}, owner...)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = ts.do(t, http.MethodGet, "/api/configs/"+itoa(saved.ID), nil, owner...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got configs.ConfigurationDTO
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "portal-v2", got.Name)
	require.NotEmpty(t, got.ContentBase64)

	// Default owner does not see alice's configuration.
	resp, _ = ts.do(t, http.MethodGet, "/api/configs/"+itoa(saved.ID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, http.MethodDelete, "/api/configs/"+itoa(saved.ID), nil, owner...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"deleted":true}`, string(body))

	resp, _ = ts.do(t, http.MethodDelete, "/api/configs/"+itoa(saved.ID), nil, owner...)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ConfigurationErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/configs", map[string]any{"name": "portal", "json": "{}"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "Category ID or name is required")

	resp, _ = ts.do(t, http.MethodPost, "/api/configs", map[string]any{"categoryName": "prod"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/configs", "{")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/configs/abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Categories(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "staging"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var category configs.CategoryDTO
	require.NoError(t, json.Unmarshal(body, &category))

	resp, body = ts.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"name":"staging"`)

	resp, _ = ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, http.MethodDelete, "/api/categories/"+itoa(category.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"deleted":true}`, string(body))
}

func TestServer_DecodeProperties(t *testing.T) {
	ts := newTestServer(t)

	input := "site.enabled=true\nsite.domains=2\nsite.domain1.name=alpha\nsite.domain2.name=beta\n"
	resp, body := ts.do(t, http.MethodPost, "/api/properties/decode?name=site.properties", input)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Contains(t, string(body), `"site.enabled"`)
	require.Contains(t, string(body), `domain{N}`)
}

func TestServer_EncodeProperties(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/properties/encode", map[string]any{})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict errorBody
	require.NoError(t, json.Unmarshal(body, &conflict))
	require.Equal(t, "UNCONFIRMED", conflict.Code)
	require.NotEmpty(t, conflict.Fields)

	resp, body = ts.do(t, http.MethodPost, "/api/properties/encode", map[string]any{
		"confirmAll": true,
		"properties": "portal.domains.total=3\n",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Contains(t, string(body), "portal.domains.total=3")
	require.Contains(t, string(body), "portal.domain3.name=")
	require.Contains(t, resp.Header.Get("Content-Disposition"), "portal.properties")

	resp, _ = ts.do(t, http.MethodPost, "/api/properties/encode", map[string]any{"schema": map[string]any{"globalProperties": 3}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_RenderForm(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/forms/render", map[string]any{
		"activeDomain": 2,
		"errors":       map[string][]string{"/global/portal.url": {"Unreachable"}, "": {"Try again"}},
		"variant":      "dark",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	html := string(body)
	require.Contains(t, html, `data-key="portal.domain2.name"`)
	require.Contains(t, html, "Unreachable")
	require.Contains(t, html, "Try again")
	require.Contains(t, html, "#111827")
	require.Contains(t, html, `<input type="hidden" name="_version" value="2.1.0">`)
}

var stateInput = regexp.MustCompile(`name="_state" value="([^"]*)"`)

// stateFrom returns the unescaped session state a rendered form carries.
func stateFrom(t *testing.T, page string) string {
	t.Helper()
	m := stateInput.FindStringSubmatch(page)
	require.Len(t, m, 2, "no _state input in form")
	return html.UnescapeString(m[1])
}

func (ts *testServer) submit(t *testing.T, values url.Values) (*http.Response, []byte) {
	t.Helper()
	resp, err := ts.Client().PostForm(ts.URL+"/api/forms/submit", values)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestServer_FormSubmitRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/forms/render", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	page := string(body)
	require.Contains(t, page, `action="/api/forms/submit"`)
	require.Contains(t, page, `data-active-domain="1"`)
	require.Contains(t, page, `name="_domain" value="2"`)
	require.Contains(t, page, "4 field(s) need confirmation")

	// Edit domain 1, confirm it and switch to the second tab.
	resp, body = ts.submit(t, url.Values{
		"_state":              {stateFrom(t, page)},
		"portal.domain1.name": {"Acme"},
		"_confirm":            {"portal.domain1.name"},
		"_domain":             {"2"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	page = string(body)
	require.Contains(t, page, `data-active-domain="2"`)
	require.Contains(t, page, `data-key="portal.domain2.name"`)
	require.Contains(t, page, "3 field(s) need confirmation")
	state := stateFrom(t, page)

	// Export stays blocked while fields are unconfirmed.
	resp, body = ts.submit(t, url.Values{"_state": {state}, "_action": {"export"}})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, string(body), "Portal URL needs confirmation")

	resp, body = ts.submit(t, url.Values{
		"_state":                {state},
		"portal.url":            {"https://portal.example.com"},
		"portal.admin.password": {"s3cret"},
		"portal.domain2.name":   {"Beta"},
		"_confirm":              {"portal.url", "portal.admin.password", "portal.domain2.name"},
		"_action":               {"export"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "portal.properties")
	out := string(body)
	require.Contains(t, out, "portal.domain1.name=Acme")
	require.Contains(t, out, "portal.domain2.name=Beta")
	require.Contains(t, out, "portal.admin.password=s3cret")

	resp, body = ts.submit(t, url.Values{"_state": {state}, "_action": {"add-domain"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Contains(t, string(body), `data-key="portal.domain3.name"`)

	resp, body = ts.submit(t, url.Values{"_state": {state}, "_action": {"save"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "portal.json")
	require.Contains(t, string(body), `"_domainValues"`)

	resp, _ = ts.submit(t, url.Values{"_state": {state}, "_action": {"launch"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.submit(t, url.Values{"_state": {"{not json"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_FormSubmitWithoutState(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.submit(t, url.Values{"_action": {"export"}, "portal.url": {"https://x.example.com"}})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Contains(t, string(body), `value="https://x.example.com"`)
}

func TestServer_Probe(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	metrics := telemetry.NewMetrics()
	ts := newTestServer(t,
		WithMetrics(metrics),
		WithProber(probe.New(probe.WithObserver(metrics.ObserveProbe))),
	)

	resp, body := ts.do(t, http.MethodGet, "/api/probe?url="+url.QueryEscape(target.URL), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"online":true`)

	resp, body = ts.do(t, http.MethodPost, "/api/probe", map[string]string{"url": "http://127.0.0.1:1/nothing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"online":false`)

	resp, _ = ts.do(t, http.MethodGet, "/api/probe", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `propform_probes_total{outcome="online"} 1`)
	require.Contains(t, string(body), `propform_http_requests_total{method="GET",route="/api/probe",status="200"}`)
}

func TestServer_ProbeDefaultsToPublicAddresses(t *testing.T) {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer internal.Close()

	ts := newTestServer(t)

	for _, target := range []string{internal.URL, "http://169.254.169.254/latest/meta-data/"} {
		resp, body := ts.do(t, http.MethodGet, "/api/probe?url="+url.QueryEscape(target), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(body), `"online":false`)
		require.Contains(t, string(body), "address not allowed")
	}
	require.Zero(t, hits.Load())

	resp, body := ts.do(t, http.MethodPost, "/api/probe", map[string]string{"url": "file:///etc/passwd"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"online":false`)
	require.Contains(t, string(body), "only http and https")
}

func TestServer_Assets(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/assets/propform.js", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "/api/probe")
}

func TestServer_OpenAPIDocumentsEveryRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/openapi.json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"openapi":"3.0.3"`)

	doc, err := LoadOpenAPI(context.Background())
	require.NoError(t, err)
	documented := make(map[string]bool)
	for _, op := range Operations(doc) {
		documented[op] = true
	}

	router, ok := ts.srv.Handler().(chi.Routes)
	require.True(t, ok)
	err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, "/assets/") {
			return nil
		}
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		require.True(t, documented[method+" "+route], "undocumented route %s %s", method, route)
		return nil
	})
	require.NoError(t, err)
}

type wsMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func TestServer_LiveSession(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/session", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	read := func() (wsMessage, StateData) {
		var msg wsMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		var state StateData
		if msg.Type == "session" || msg.Type == "state" {
			require.NoError(t, json.Unmarshal(msg.Data, &state))
		}
		return msg, state
	}
	write := func(typ, id string, data any) {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: typ, ID: id, Data: raw}))
	}

	msg, state := read()
	require.Equal(t, "session", msg.Type)
	require.NotEmpty(t, state.SessionID)
	require.Len(t, state.Domains, 2)
	require.Equal(t, 1, state.ActiveDomain)

	write("set", "1", setData{Key: "portal.domains.total", Value: "3"})
	msg, state = read()
	require.Equal(t, "state", msg.Type)
	require.Equal(t, "1", msg.RequestID)
	require.Len(t, state.Domains, 3)

	write("switch", "2", switchData{Domain: 3})
	_, state = read()
	require.Equal(t, 3, state.ActiveDomain)

	write("set", "3", setData{Key: "portal.enabled", Value: "false"})
	_, state = read()
	require.Contains(t, state.Hidden, "portal.url")

	write("export", "4", exportRequest{Format: "values"})
	msg, _ = read()
	require.Equal(t, "export", msg.Type)
	var export ExportData
	require.NoError(t, json.Unmarshal(msg.Data, &export))
	require.Equal(t, "values", export.Format)
	require.NotEmpty(t, export.Content)

	write("export", "5", exportRequest{Format: "properties"})
	msg, _ = read()
	require.Equal(t, "error", msg.Type)

	write("bogus", "6", nil)
	msg, _ = read()
	require.Equal(t, "error", msg.Type)
	require.Equal(t, "6", msg.RequestID)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
}

func TestServer_RunShutsDown(t *testing.T) {
	srv, err := New(Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
