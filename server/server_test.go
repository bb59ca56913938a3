package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"msgcard/config"
	"msgcard/core/auth"
	"msgcard/core/card"
	"msgcard/core/session"
	"msgcard/model"

	"github.com/gorilla/websocket"
)

type fakeCards struct {
	recs    map[string]*model.MessageRecord
	created []*model.CreateCardRequest
	creator string
	deleted []string
	failAll bool
}

func (f *fakeCards) Lookup(_ context.Context, id string) (*model.MessageRecord, error) {
	if f.failAll {
		return nil, errors.New("db down")
	}
	rec, ok := f.recs[id]
	if !ok {
		return nil, card.ErrNotFound
	}
	return rec, nil
}

func (f *fakeCards) Create(_ context.Context, req *model.CreateCardRequest, createdBy string) (*model.Card, error) {
	if req.DisplayName == "" {
		return nil, fmt.Errorf("%w: displayName is required", card.ErrInvalidCard)
	}
	f.created = append(f.created, req)
	f.creator = createdBy
	return &model.Card{ID: "new00001", DisplayName: req.DisplayName}, nil
}

func (f *fakeCards) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCards) ShareURL(id string) string { return "https://cards.test/c/" + id }

type fakeUploader struct {
	key  string
	body string
}

func (u *fakeUploader) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, _ := io.ReadAll(r)
	u.key, u.body = key, string(data)
	return key, nil
}

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *fakeCards, *fakeUploader) {
	t.Helper()
	hash, err := auth.HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cfg := &config.Config{
		JWTSecret:         testSecret,
		AdminUsername:     "admin",
		AdminPasswordHash: hash,
	}
	cards := &fakeCards{recs: map[string]*model.MessageRecord{
		"abcd1234": {
			ID:            "abcd1234",
			AudioURL:      "https://cdn.test/a.mp3",
			CaptionSource: "1\n00:00:00,500 --> 00:00:02,000\nhi there\n\n2\n00:00:02,000 --> 00:00:03,000\nbye\n",
			DisplayName:   "Ana",
		},
	}}
	up := &fakeUploader{}
	srv := httptest.NewServer(NewRouter(NewAPIHandler(cards, up, nil, cfg)))
	t.Cleanup(srv.Close)
	return srv, cards, up
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + tok
}

func TestGetCard(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/cards/abcd1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
	var rec model.MessageRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.DisplayName != "Ana" || rec.AudioURL != "https://cdn.test/a.mp3" {
		t.Fatalf("rec = %+v", rec)
	}

	resp2, err := http.Get(srv.URL + "/api/cards/zzzz0000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp2.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp2.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "card not found" {
		t.Fatalf("body = %v", body)
	}
}

func TestGetCardInternalError(t *testing.T) {
	srv, cards, _ := newTestServer(t)
	cards.failAll = true

	resp, err := http.Get(srv.URL + "/api/cards/abcd1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGetCaptions(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/cards/abcd1234/captions")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body CaptionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Captions) != 2 || body.Captions[0].Text != "hi there" || body.Captions[0].Start != 0.5 {
		t.Fatalf("captions = %+v", body.Captions)
	}
	if body.Duration != 3 || body.Fallback != "Ana" {
		t.Fatalf("body = %+v", body)
	}
}

func TestLogin(t *testing.T) {
	srv, _, _ := newTestServer(t)

	post := func(body string) *http.Response {
		resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		return resp
	}

	resp := post(`{"username":"admin","password":"pw"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var lr LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := auth.ParseToken(testSecret, lr.Token)
	if err != nil || claims.Username != "admin" {
		t.Fatalf("token claims = %+v, %v", claims, err)
	}

	cases := map[string]int{
		`{"username":"admin","password":"nope"}`: http.StatusUnauthorized,
		`{"username":"root","password":"pw"}`:    http.StatusUnauthorized,
		`{"username":"admin"}`:                   http.StatusBadRequest,
		`{not json`:                              http.StatusBadRequest,
	}
	for body, want := range cases {
		r := post(body)
		r.Body.Close()
		if r.StatusCode != want {
			t.Errorf("%s: status = %d, want %d", body, r.StatusCode, want)
		}
	}
}

func TestCreateCardRequiresToken(t *testing.T) {
	srv, cards, _ := newTestServer(t)

	body := `{"displayName":"Bo","visualKey":"cards/x/v.mp4"}`
	resp, err := http.Post(srv.URL+"/api/cards", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/cards", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out model.CreateCardResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != "new00001" || out.ShareURL != "https://cards.test/c/new00001" {
		t.Fatalf("out = %+v", out)
	}
	if cards.creator != "admin" || len(cards.created) != 1 {
		t.Fatalf("creator = %q", cards.creator)
	}

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/api/cards", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp2.StatusCode)
	}
}

func TestDeleteCard(t *testing.T) {
	srv, cards, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/cards/abcd1234", nil)
	req.Header.Set("Authorization", bearer(t))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || len(cards.deleted) != 1 {
		t.Fatalf("status = %d, deleted = %v", resp.StatusCode, cards.deleted)
	}
}

func TestAuthMiddlewareRejectsBadHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, header := range []string{"Token abc", "Bearer", "Bearer not-a-jwt"} {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/cards/abcd1234", nil)
		req.Header.Set("Authorization", header)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%q: status = %d", header, resp.StatusCode)
		}
	}
}

func TestUpload(t *testing.T) {
	srv, _, up := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("cardId", "abcd1234")
	fw, _ := mw.CreateFormFile("file", "greeting.srt")
	fw.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(out.Key, "cards/abcd1234/") || !strings.HasSuffix(out.Key, ".srt") {
		t.Fatalf("key = %q", out.Key)
	}
	if up.key != out.Key || !strings.Contains(up.body, "hi") {
		t.Fatalf("uploader got %q %q", up.key, up.body)
	}
}

func TestPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/cards", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSessionEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/cards/abcd1234"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ready session.Frame
	if err := conn.ReadJSON(&ready); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ready.Type != session.MsgTypeReady || ready.Card.ID != "abcd1234" {
		t.Fatalf("ready = %+v", ready)
	}

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/cards/zzzz0000", nil)
	if err == nil {
		t.Fatal("expected dial failure for unknown card")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestOpenCardRepositoryRejectsUnknownDriver(t *testing.T) {
	if _, _, err := OpenCardRepository(&config.Config{DBDriver: "oracle"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenCardRepositorySQLite(t *testing.T) {
	repo, closeRepo, err := OpenCardRepository(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("OpenCardRepository: %v", err)
	}
	defer closeRepo()
	if err := repo.Create(context.Background(), &model.Card{ID: "abcd1234", DisplayName: "x"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
}
