package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/northlane/tactoechat/pkg/board"
	"github.com/northlane/tactoechat/pkg/credstore"
	"github.com/northlane/tactoechat/pkg/game"
	"github.com/northlane/tactoechat/pkg/matchstore"
	"github.com/northlane/tactoechat/pkg/session"
)

type fakeBroadcaster struct{}

func (fakeBroadcaster) SendToAll(msg string, exclude ...*session.Session) {}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	creds, err := credstore.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("credstore.Open: %v", err)
	}
	t.Cleanup(func() { creds.Close() })

	ms, err := matchstore.Open(filepath.Join(t.TempDir(), "match.bolt"))
	if err != nil {
		t.Fatalf("matchstore.Open: %v", err)
	}
	t.Cleanup(func() { ms.Close() })

	conns := session.NewManager()
	coord := game.New(board.New(), ms, creds, fakeBroadcaster{})
	auth := NewAuthService("secret123", "", 0)
	return NewServer(auth, conns, creds, coord)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)
	body := strings.NewReader(`{"password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", body)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginThenStatusSucceeds(t *testing.T) {
	s := newTestServer(t)

	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"password":"secret123"}`))
	loginRec := httptest.NewRecorder()
	s.mux.ServeHTTP(loginRec, loginReq)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d: %s", loginRec.Code, loginRec.Body.String())
	}
	var loginBody struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(loginRec.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	statusReq.Header.Set("Authorization", "Bearer "+loginBody.Token)
	statusRec := httptest.NewRecorder()
	s.mux.ServeHTTP(statusRec, statusReq)
	if statusRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", statusRec.Code, statusRec.Body.String())
	}
}

func TestStatusWithoutTokenRejected(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
