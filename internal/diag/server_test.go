package diag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FernandoPintoL/socket-rentals/internal/bridge"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/database"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/logging"
	"github.com/FernandoPintoL/socket-rentals/internal/journal"
	"github.com/FernandoPintoL/socket-rentals/internal/wsclient"
)

type stubSession struct{ snap bridge.Snapshot }

func (s stubSession) Snapshot() bridge.Snapshot { return s.snap }

type stubTransport struct{ stats wsclient.Stats }

func (s stubTransport) Stats() wsclient.Stats { return s.stats }

type stubJournal struct {
	entries   []journal.Entry
	counts    map[journal.Kind]int
	err       error
	lastLimit int
}

func (s *stubJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func (s *stubJournal) CountByKind(context.Context) (map[journal.Kind]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.counts, nil
}

type stubSchema struct {
	applied []database.MigrationRecord
	pending []database.Migration
	err     error
}

func (s stubSchema) GetMigrationStatus(context.Context) ([]database.MigrationRecord, []database.Migration, error) {
	return s.applied, s.pending, s.err
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func newTestServer(t *testing.T, connected bool, j JournalReader) *Server {
	t.Helper()
	srv, err := New(Deps{
		Config: config.DiagConfig{Enabled: true, Host: "127.0.0.1", Port: 0},
		Logger: testLogger(),
		Session: stubSession{snap: bridge.Snapshot{
			DeviceID:    "chapa_principal",
			DeviceType:  "chapa",
			Connected:   connected,
			LastCommand: "abrir",
			Commands:    3,
		}},
		Transport: stubTransport{stats: wsclient.Stats{
			URL:        "ws://localhost:4000/",
			Connected:  connected,
			MessagesTx: 7,
			MessagesRx: 4,
		}},
		Journal: j,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_RequiredDeps(t *testing.T) {
	logger := testLogger()
	session := stubSession{}
	transport := stubTransport{}

	tests := []struct {
		name string
		deps Deps
	}{
		{name: "no logger", deps: Deps{Session: session, Transport: transport}},
		{name: "no session", deps: Deps{Logger: logger, Transport: transport}},
		{name: "no transport", deps: Deps{Logger: logger, Session: session}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		wantStatus int
		wantBody   string
	}{
		{name: "connected", connected: true, wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "disconnected", connected: false, wantStatus: http.StatusServiceUnavailable, wantBody: "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t, tt.connected, nil), "/healthz")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("body status = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	j := &stubJournal{counts: map[journal.Kind]int{journal.KindCommand: 3, journal.KindStatus: 10}}
	rec := do(t, newTestServer(t, true, j), "/status")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Version != "test" {
		t.Errorf("version = %q, want test", body.Version)
	}
	if body.Bridge.DeviceID != "chapa_principal" || body.Bridge.Commands != 3 || body.Bridge.LastCommand != "abrir" {
		t.Errorf("bridge = %+v", body.Bridge)
	}
	if body.Transport.MessagesTx != 7 || body.Transport.MessagesRx != 4 || !body.Transport.Connected {
		t.Errorf("transport = %+v", body.Transport)
	}
	if body.Journal[journal.KindStatus] != 10 {
		t.Errorf("journal = %v, want status=10", body.Journal)
	}
}

func TestStatus_Schema(t *testing.T) {
	tests := []struct {
		name   string
		schema SchemaSource
		want   *schemaStatus
	}{
		{name: "no database", schema: nil, want: nil},
		{
			name: "up to date",
			schema: stubSchema{applied: []database.MigrationRecord{
				{Version: "20261015_120000"},
			}},
			want: &schemaStatus{Version: "20261015_120000", Applied: 1},
		},
		{
			name:   "pending",
			schema: stubSchema{pending: []database.Migration{{Version: "20261015_120000"}}},
			want:   &schemaStatus{Pending: 1},
		},
		{name: "error omits schema", schema: stubSchema{err: errors.New("locked")}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, true, nil)
			srv.schema = tt.schema

			rec := do(t, srv, "/status")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var body statusResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if tt.want == nil {
				if body.Schema != nil {
					t.Errorf("schema = %+v, want omitted", body.Schema)
				}
				return
			}
			if body.Schema == nil || *body.Schema != *tt.want {
				t.Errorf("schema = %+v, want %+v", body.Schema, tt.want)
			}
		})
	}
}

func TestStatus_JournalErrorStillServes(t *testing.T) {
	j := &stubJournal{err: errors.New("locked")}
	rec := do(t, newTestServer(t, true, j), "/status")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestEvents(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	j := &stubJournal{entries: []journal.Entry{
		{ID: "3", DeviceID: "chapa_principal", Kind: journal.KindStatus, Status: "cerrada", CreatedAt: now},
		{ID: "2", DeviceID: "chapa_principal", Kind: journal.KindCommand, Command: "abrir", Status: "abierta", CreatedAt: now.Add(-time.Minute)},
		{ID: "1", DeviceID: "chapa_principal", Kind: journal.KindRegister, CreatedAt: now.Add(-time.Hour)},
	}}
	srv := newTestServer(t, true, j)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
		wantLimit  int
	}{
		{name: "default limit", target: "/events", wantStatus: http.StatusOK, wantCount: 3, wantLimit: defaultEventsLimit},
		{name: "explicit limit", target: "/events?limit=2", wantStatus: http.StatusOK, wantCount: 2, wantLimit: 2},
		{name: "zero limit", target: "/events?limit=0", wantStatus: http.StatusBadRequest},
		{name: "bad limit", target: "/events?limit=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				Events []journal.Entry `json:"events"`
				Count  int             `json:"count"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Count != tt.wantCount || len(body.Events) != tt.wantCount {
				t.Errorf("count = %d (%d events), want %d", body.Count, len(body.Events), tt.wantCount)
			}
			if j.lastLimit != tt.wantLimit {
				t.Errorf("Recent() limit = %d, want %d", j.lastLimit, tt.wantLimit)
			}
			if body.Events[0].ID != "3" {
				t.Errorf("first event id = %q, want newest", body.Events[0].ID)
			}
		})
	}
}

func TestEvents_JournalDisabled(t *testing.T) {
	rec := do(t, newTestServer(t, true, nil), "/events")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var body Error
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", body.Code, ErrCodeNotFound)
	}
}

func TestEvents_JournalError(t *testing.T) {
	rec := do(t, newTestServer(t, true, &stubJournal{err: errors.New("io")}), "/events")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestServer(t, true, nil), "/admin")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, true, nil)

	rec := do(t, srv, "/healthz")
	if id := rec.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("X-Request-ID = %q, want generated uuid", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "installer-1")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if id := rec.Header().Get("X-Request-ID"); id != "installer-1" {
		t.Errorf("X-Request-ID = %q, want installer-1", id)
	}
}

func TestStartAndClose(t *testing.T) {
	srv := newTestServer(t, true, nil)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	addr := srv.Addr()
	if addr == "" {
		t.Fatal("Addr() empty after Start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_NotStarted(t *testing.T) {
	if err := newTestServer(t, true, nil).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
