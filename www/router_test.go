package www

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fleetconsole/config"
	"fleetconsole/engine"
	"fleetconsole/store"
	"fleetconsole/telemetry"
	"fleetconsole/wire"
)

type nullSender struct{}

func (nullSender) Send(cmd wire.Command, source string) error { return nil }

func testServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Fleet.Robots = []string{"alpha01"}
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := engine.New(engine.Config{
		AppConfig: cfg,
		DB:        db,
		Cache:     telemetry.NewCache(cfg.Fleet.Robots, cfg.Fleet.ExpectedChannels),
		Commander: nullSender{},
		LogFunc:   func(string, ...any) {},
	})

	handler, stop := NewRouter(eng)
	t.Cleanup(stop)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, eng
}

func loggedInClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}
	resp, err := client.PostForm(srv.URL+"/login", url.Values{
		"username": {"admin"},
		"password": {"admin"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	u, _ := url.Parse(srv.URL)
	for _, c := range jar.Cookies(u) {
		if c.Name == sessionName {
			return client
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestAPIRobotsList(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/robots")
	if err != nil {
		t.Fatalf("GET /api/robots: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var robots []engine.RobotOverview
	if err := json.NewDecoder(resp.Body).Decode(&robots); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(robots) != 1 || robots[0].RobotID != "alpha01" {
		t.Fatalf("robots = %+v, want alpha01", robots)
	}
	if robots[0].Status != "waiting" {
		t.Fatalf("fresh robot status = %s, want waiting", robots[0].Status)
	}
}

func TestMissionEndpointsRequireAuth(t *testing.T) {
	srv, _ := testServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Post(srv.URL+"/api/robots/alpha01/mission/start", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect to login", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("redirect = %q, want /login", loc)
	}
}

func TestMissionLifecycleOverHTTP(t *testing.T) {
	srv, eng := testServer(t)
	client := loggedInClient(t, srv)
	base := srv.URL + "/api/robots/alpha01"

	resp := postJSON(t, client, base+"/mission/waypoints", pointRequest{Latitude: 37.1, Longitude: -122.1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add waypoint: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, client, base+"/mission/customer", pointRequest{Latitude: 37.3, Longitude: -122.3})
	resp.Body.Close()

	// Robot has never been heard from, so start is rejected.
	resp = postJSON(t, client, base+"/mission/start", struct{}{})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("start while offline: status %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	eng.HandleTelemetry("alpha01", wire.ChannelRobotStatus, map[string]any{"battery": 90}, time.Now())

	resp = postJSON(t, client, base+"/mission/start", struct{}{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start while online: status %d, want 200", resp.StatusCode)
	}
	var snap struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.State != "active" {
		t.Fatalf("mission state = %s, want active", snap.State)
	}
}

func TestAddWaypointRejectsBadCoordinates(t *testing.T) {
	srv, _ := testServer(t)
	client := loggedInClient(t, srv)

	resp := postJSON(t, client, srv.URL+"/api/robots/alpha01/mission/waypoints",
		pointRequest{Latitude: 212.0, Longitude: 0})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("status = %q, want ok", body.Status)
	}
}
