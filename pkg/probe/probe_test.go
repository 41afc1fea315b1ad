package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-propform/pkg/probe"
	"github.com/goliatone/go-propform/pkg/testsupport"
)

func TestCheck_OnlineAndOffline(t *testing.T) {
	t.Parallel()

	var method atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method.Store(r.Method)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := probe.New()
	status := p.Check(context.Background(), " "+srv.URL+" ")
	if !status.Online || status.Code != http.StatusServiceUnavailable || status.URL != srv.URL {
		t.Fatalf("unexpected status %+v", status)
	}
	if method.Load() != http.MethodHead {
		t.Fatalf("expected HEAD, got %v", method.Load())
	}

	if status := p.Check(context.Background(), ""); status.Online || status.Message == "" {
		t.Fatalf("expected offline status for empty url, got %+v", status)
	}
	if status := p.Check(context.Background(), "http://127.0.0.1:1"); status.Online {
		t.Fatalf("expected offline status, got %+v", status)
	}
}

func TestCheck_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	var observed int32
	p := probe.New(
		probe.WithTimeout(50*time.Millisecond),
		probe.WithObserver(func(probe.Status) { atomic.AddInt32(&observed, 1) }),
	)
	if status := p.Check(context.Background(), srv.URL); status.Online {
		t.Fatalf("expected timeout to report offline, got %+v", status)
	}
	if atomic.LoadInt32(&observed) != 1 {
		t.Fatalf("expected observer call")
	}
}

func TestCheckAll_SessionTargets(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sess := testsupport.PortalSession(t)
	for key, value := range map[string]string{
		"portal.url":         srv.URL,
		"portal.domain1.api": srv.URL + "/one",
		"portal.domain2.api": "http://127.0.0.1:1",
	} {
		if _, err := sess.Set(key, value); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	before := sess.Snapshot()

	results, err := probe.New().CheckAll(context.Background(), sess)
	if err != nil {
		t.Fatalf("check all: %v", err)
	}

	var keys []string
	var online []bool
	for _, result := range results {
		keys = append(keys, result.Key)
		online = append(online, result.Status.Online)
	}
	if diff := cmp.Diff([]string{"portal.url", "portal.domain1.api", "portal.domain2.api"}, keys); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, true, false}, online); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
	if results[2].Domain != 2 {
		t.Fatalf("expected domain 2 target, got %+v", results[2].Target)
	}
	if diff := cmp.Diff(before, sess.Snapshot()); diff != "" {
		t.Fatalf("probe changed session (-before +after):\n%s", diff)
	}
}

func TestTargets_SkipsHiddenURL(t *testing.T) {
	t.Parallel()

	sess := testsupport.PortalSession(t)
	if _, err := sess.Set("portal.enabled", "false"); err != nil {
		t.Fatalf("set: %v", err)
	}
	targets, err := probe.Targets(sess)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	for _, target := range targets {
		if target.Key == "portal.url" {
			t.Fatalf("hidden url must not be probed")
		}
	}
	if len(targets) != 2 {
		t.Fatalf("expected the two domain api targets, got %+v", targets)
	}
}

func TestCheck_RejectsNonHTTPURLs(t *testing.T) {
	t.Parallel()

	p := probe.New()
	for _, raw := range []string{"file:///etc/passwd", "gopher://example.com", "example.com/path", "http://"} {
		status := p.Check(context.Background(), raw)
		if status.Online || !strings.Contains(status.Message, "only http and https") {
			t.Fatalf("%q: expected unsupported URL status, got %+v", raw, status)
		}
	}
}

func TestCheck_PublicOnlyRefusesInternalAddresses(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	p := probe.New(probe.WithPublicOnly(), probe.WithTimeout(time.Second))
	for _, raw := range []string{srv.URL, "http://169.254.169.254/latest/meta-data/", "http://[::1]:9/", "http://10.0.0.1/"} {
		status := p.Check(context.Background(), raw)
		if status.Online || !strings.Contains(status.Message, "address not allowed") {
			t.Fatalf("%q: expected blocked status, got %+v", raw, status)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("internal server was reached %d times", n)
	}

	if status := probe.New().Check(context.Background(), srv.URL); !status.Online {
		t.Fatalf("unrestricted prober should reach local servers, got %+v", status)
	}
}

func TestPublicAddress(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"127.0.0.1":        false,
		"10.1.2.3":         false,
		"172.16.0.1":       false,
		"192.168.1.1":      false,
		"169.254.169.254":  false,
		"100.64.0.1":       false,
		"0.0.0.0":          false,
		"::1":              false,
		"fe80::1":          false,
		"fd00::1":          false,
		"::ffff:127.0.0.1": false,
		"93.184.216.34":    true,
		"2606:4700::1111":  true,
	}
	for raw, want := range cases {
		if got := probe.PublicAddress(netip.MustParseAddr(raw)); got != want {
			t.Fatalf("PublicAddress(%s) = %v, want %v", raw, got, want)
		}
	}
}
