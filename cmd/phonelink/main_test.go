package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

type fakeService struct {
	mu       sync.Mutex
	server   *httptest.Server
	connects []map[string]string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	svc := &fakeService{}
	svc.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_live_1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid token"}`))
			return
		}
		switch r.URL.Path {
		case "/api/external/get-phone-numbers":
			_, _ = w.Write([]byte(`{"data":[{"number":"+15550001"},{"number":"+15550002"}]}`))
		case "/api/external/gh/connect-user":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			svc.mu.Lock()
			svc.connects = append(svc.connects, body)
			svc.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(svc.server.Close)
	t.Setenv("PHONELINK_API_BASE_URL", svc.server.URL)
	t.Setenv("PHONELINK_BRIDGE_ENABLED", "false")
	return svc
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNumbersCommandPrintsOnePerLine(t *testing.T) {
	newFakeService(t)
	dir := t.TempDir()
	out, err := executeCommand(t, "--dir", dir, "numbers", "--token", "tok_live_1")
	if err != nil {
		t.Fatalf("numbers: %v", err)
	}
	if out != "+15550001\n+15550002\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNumbersCommandSurfacesServerMessage(t *testing.T) {
	newFakeService(t)
	_, err := executeCommand(t, "--dir", t.TempDir(), "numbers", "--token", "nope")
	if err == nil || !strings.Contains(err.Error(), "invalid token") {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestConnectCommandPersistsLocation(t *testing.T) {
	svc := newFakeService(t)
	dir := t.TempDir()
	out, err := executeCommand(t, "--dir", dir,
		"--page-url", "https://widget.example.test/?locationId=ve9EPM428h8vShlRW1KT",
		"connect", "--token", "tok_live_1", "--number", "+15550002")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !strings.Contains(out, "User connected successfully! (+15550002)") {
		t.Fatalf("unexpected output %q", out)
	}
	svc.mu.Lock()
	if len(svc.connects) != 1 || svc.connects[0]["location_id"] != "ve9EPM428h8vShlRW1KT" || svc.connects[0]["from_number"] != "+15550002" {
		t.Fatalf("unexpected connect calls %+v", svc.connects)
	}
	svc.mu.Unlock()

	// a later launch without the query string falls back to the cache
	out, err = executeCommand(t, "--dir", dir, "location")
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if out != "ve9EPM428h8vShlRW1KT\tcache\n" {
		t.Fatalf("unexpected location output %q", out)
	}
}

func TestConnectWithoutLocationMakesNoCall(t *testing.T) {
	svc := newFakeService(t)
	_, err := executeCommand(t, "--dir", t.TempDir(),
		"--page-url", "https://widget.example.test/?locationId={{location.id}}",
		"connect", "--token", "tok_live_1", "--number", "+15550001")
	if err == nil || !strings.Contains(err.Error(), "location id missing") {
		t.Fatalf("expected missing location error, got %v", err)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.connects) != 0 {
		t.Fatalf("no connect call expected, got %d", len(svc.connects))
	}
}

func TestLocationCommandReportsSource(t *testing.T) {
	newFakeService(t)
	out, err := executeCommand(t, "--dir", t.TempDir(),
		"--referrer", "https://app.example.test/v2/location/referrervalue01/launchpad",
		"location")
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if out != "referrervalue01\treferrer\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRootRequiresTerminal(t *testing.T) {
	if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		t.Skip("test is attached to a terminal")
	}
	_, err := executeCommand(t, "--dir", t.TempDir())
	if !errors.Is(err, errNoTerminal) {
		t.Fatalf("expected errNoTerminal, got %v", err)
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable([]string{"ID", "Number"}, [][]string{{"1", "+15550001"}, {"2"}}, []columnAlignment{alignRight})
	// go-pretty upper-cases headers by default
	for _, want := range []string{"ID", "NUMBER", "+15550001", "2"} {
		if !strings.Contains(got, want) {
			t.Fatalf("table missing %q:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatalf("empty headers should render nothing")
	}
}
