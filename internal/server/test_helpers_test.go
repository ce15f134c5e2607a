package server

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"word-party/internal/config"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.StoryImageDir = t.TempDir()
	cfg.EnableCustomWords = true
	return cfg
}

func testTemplate() Template {
	return Template{
		ID:       1,
		Category: "animals",
		Title:    "The Great Zoo Escape",
		Text:     "The {0} zookeeper saw a {1} and decided to {2}.",
		Placeholders: []Placeholder{
			{Position: 0, Type: "adjective"},
			{Position: 1, Type: "animal"},
			{Position: 2, Type: "verb"},
		},
		Active: true,
	}
}

func seedReferenceData(srv *Server) {
	srv.store.SetTemplates([]Template{testTemplate()})
	srv.store.SetWordBank([]WordBankEntry{
		{ID: 1, Word: "wobbly", Type: "adjective", Active: true},
		{ID: 2, Word: "platypus", Type: "animal", Active: true},
		{ID: 3, Word: "yodel", Type: "verb", Active: true},
		{ID: 4, Word: "sparkly", Type: "adjective", Active: true},
	})
}

func createSession(t *testing.T, ts *httptest.Server, username string) (token, userID string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/session", "", map[string]string{
		"username": username,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["token"].(string), body["user_id"].(string)
}

func createRoom(t *testing.T, ts *httptest.Server, token string) (code, roomID string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", token, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["room_code"].(string), body["room_id"].(string)
}

func joinRoom(t *testing.T, ts *httptest.Server, token, code string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/join", token, map[string]string{
		"code": code,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func startGameHTTP(t *testing.T, ts *httptest.Server, token, code, category string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+code+"/games", token, map[string]string{
		"category": category,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["game_id"].(string)
}

func fetchGame(t *testing.T, ts *httptest.Server, token, gameID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+gameID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}
