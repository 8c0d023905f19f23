package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/cache"
	"chatbuddy/internal/config"
	"chatbuddy/internal/llm"
	"chatbuddy/internal/model"
	"chatbuddy/internal/repository"
	"chatbuddy/internal/service"
	"chatbuddy/internal/testutil"
	"chatbuddy/pkg/jwt"
	"chatbuddy/pkg/logger"
	"chatbuddy/pkg/response"
)

type stubGenerator struct {
	turns []int
}

func (g *stubGenerator) GenerateResponse(_ context.Context, turns []llm.Message, _ string) string {
	g.turns = append(g.turns, len(turns))
	return "Hi! How can I help?"
}

// envelope 统一响应结构，data 延迟解析
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	router *gin.Engine
	gen    *stubGenerator
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store := cache.NoopCache{}
	jwtSvc := jwt.NewJWTService("test-secret", 30*time.Minute, time.Hour)
	log := logger.Discard()

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	gen := &stubGenerator{}
	chat := service.NewChatService(sessionRepo, messageRepo, gen)
	chat.SetLogger(log)

	router := NewRouter(RouterDeps{
		Logger:    log,
		JWT:       jwtSvc,
		Cache:     store,
		CORS:      []string{"*"},
		RateLimit: config.RateLimitConfig{Enabled: true, QPS: 100},
		Auth:      NewAuthHandler(service.NewAuthService(userRepo, store, jwtSvc)),
		User:      NewUserHandler(service.NewUserService(userRepo)),
		Session:   NewSessionHandler(service.NewSessionService(sessionRepo)),
		Chat:      NewChatHandler(chat),
		Health:    NewHealthHandler(db, store),
	})
	return &testAPI{router: router, gen: gen}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

// signup 注册并登录，返回 access token
func (a *testAPI) signup(t *testing.T, username string) string {
	t.Helper()

	status, env := a.do(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d (%s)", username, status, env.Message)
	}

	status, env = a.do(t, http.MethodPost, "/api/users/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", username, status, env.Message)
	}
	var login service.LoginResponse
	if err := json.Unmarshal(env.Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return login.AccessToken
}

func TestUserEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "alice")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
		wantCode   int
	}{
		{"duplicate username", http.MethodPost, "/api/users/register", "", map[string]string{"username": "alice", "email": "x@example.com", "password": "secret123"}, http.StatusConflict, response.CodeUserExists},
		{"duplicate email", http.MethodPost, "/api/users/register", "", map[string]string{"username": "alice2", "email": "alice@example.com", "password": "secret123"}, http.StatusConflict, response.CodeEmailExists},
		{"invalid register body", http.MethodPost, "/api/users/register", "", map[string]string{"username": "al"}, http.StatusBadRequest, response.CodeBadRequest},
		{"wrong password", http.MethodPost, "/api/users/login", "", map[string]string{"username": "alice", "password": "nope"}, http.StatusUnauthorized, response.CodeInvalidLogin},
		{"me without token", http.MethodGet, "/api/users/me", "", nil, http.StatusUnauthorized, response.CodeUnauthorized},
		{"me", http.MethodGet, "/api/users/me", token, nil, http.StatusOK, response.CodeSuccess},
		{"bad settings", http.MethodPut, "/api/users/me/settings", token, map[string]interface{}{"settings": []int{1}}, http.StatusBadRequest, response.CodeBadRequest},
		{"settings", http.MethodPut, "/api/users/me/settings", token, map[string]interface{}{"settings": map[string]string{"theme": "dark"}}, http.StatusOK, response.CodeSuccess},
		{"refresh with garbage", http.MethodPost, "/api/users/refresh", "", map[string]string{"refresh_token": "garbage"}, http.StatusUnauthorized, response.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(t, tt.method, tt.path, tt.token, tt.body)
			if status != tt.wantStatus || env.Code != tt.wantCode {
				t.Errorf("got %d/%d (%s), want %d/%d", status, env.Code, env.Message, tt.wantStatus, tt.wantCode)
			}
		})
	}

	status, env := api.do(t, http.MethodGet, "/api/users/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d", status)
	}
	var me map[string]interface{}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me["username"] != "alice" || me["user_id"] == "" {
		t.Errorf("me = %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Error("password hash must not be serialized")
	}

	if status, _ := api.do(t, http.MethodPost, "/api/users/logout", token, nil); status != http.StatusOK {
		t.Errorf("logout status = %d", status)
	}
}

func TestChatEndpoints(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice")
	bob := api.signup(t, "bob")

	// 不带 session_id 时新建会话
	status, env := api.do(t, http.MethodPost, "/api/chat/message", alice, map[string]string{"message": "Hello"})
	if status != http.StatusOK {
		t.Fatalf("send: %d (%s)", status, env.Message)
	}
	var first service.ChatResponse
	if err := json.Unmarshal(env.Data, &first); err != nil {
		t.Fatalf("decode chat response: %v", err)
	}
	if first.SessionID == "" || first.Message.Content != "Hello" || first.Message.Sender != model.SenderUser {
		t.Errorf("first = %+v", first)
	}
	if first.AIResponse == nil || first.AIResponse.Sender != model.SenderAI {
		t.Errorf("ai_response = %+v", first.AIResponse)
	}

	status, _ = api.do(t, http.MethodPost, "/api/chat/message", alice, map[string]string{
		"session_id": first.SessionID,
		"message":    "And again",
	})
	if status != http.StatusOK {
		t.Fatalf("follow-up: %d", status)
	}
	if len(api.gen.turns) != 2 || api.gen.turns[1] != 4 {
		t.Errorf("turns per call = %v, want [2 4]", api.gen.turns)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
		wantCode   int
	}{
		{"missing message", http.MethodPost, "/api/chat/message", alice, map[string]string{}, http.StatusBadRequest, response.CodeBadRequest},
		{"foreign session send", http.MethodPost, "/api/chat/message", bob, map[string]string{"session_id": first.SessionID, "message": "hi"}, http.StatusNotFound, response.CodeSessionNotFound},
		{"foreign session history", http.MethodGet, "/api/chat/messages/" + first.SessionID, bob, nil, http.StatusNotFound, response.CodeSessionNotFound},
		{"unknown session history", http.MethodGet, "/api/chat/messages/nope", alice, nil, http.StatusNotFound, response.CodeSessionNotFound},
		{"unauthenticated", http.MethodPost, "/api/chat/message", "", map[string]string{"message": "hi"}, http.StatusUnauthorized, response.CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(t, tt.method, tt.path, tt.token, tt.body)
			if status != tt.wantStatus || env.Code != tt.wantCode {
				t.Errorf("got %d/%d (%s), want %d/%d", status, env.Code, env.Message, tt.wantStatus, tt.wantCode)
			}
		})
	}

	status, env = api.do(t, http.MethodGet, "/api/chat/messages/"+first.SessionID, alice, nil)
	if status != http.StatusOK {
		t.Fatalf("history: %d", status)
	}
	var history []model.Message
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	wantSenders := []string{model.SenderUser, model.SenderAI, model.SenderUser, model.SenderAI}
	if len(history) != len(wantSenders) {
		t.Fatalf("history length = %d", len(history))
	}
	for i, m := range history {
		if m.Sender != wantSenders[i] {
			t.Errorf("history[%d].sender = %s, want %s", i, m.Sender, wantSenders[i])
		}
	}

	// 删除会话后消息一并消失
	if status, _ := api.do(t, http.MethodDelete, "/api/sessions/"+first.SessionID, alice, nil); status != http.StatusNoContent {
		t.Fatalf("delete: %d", status)
	}
	if status, env := api.do(t, http.MethodGet, "/api/chat/messages/"+first.SessionID, alice, nil); status != http.StatusNotFound || env.Code != response.CodeSessionNotFound {
		t.Errorf("history after delete: %d/%d", status, env.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	api := newTestAPI(t)
	alice := api.signup(t, "alice")
	bob := api.signup(t, "bob")

	status, env := api.do(t, http.MethodPost, "/api/sessions/", alice, nil)
	if status != http.StatusCreated {
		t.Fatalf("create: %d (%s)", status, env.Message)
	}
	var created model.Session
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if created.Title != model.DefaultSessionTitle || created.UserID == "" {
		t.Errorf("created = %+v", created)
	}

	status, env = api.do(t, http.MethodPost, "/api/sessions/", alice, map[string]string{"title": "Recipes"})
	if status != http.StatusCreated {
		t.Fatalf("create titled: %d", status)
	}

	status, env = api.do(t, http.MethodGet, "/api/sessions/", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("list: %d", status)
	}
	var list []model.Session
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("list length = %d, want 2", len(list))
	}

	status, env = api.do(t, http.MethodGet, "/api/sessions/", bob, nil)
	if status != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("bob list = %d %s", status, env.Data)
	}

	path := "/api/sessions/" + created.ID
	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{"get own", http.MethodGet, path, alice, nil, http.StatusOK},
		{"get foreign", http.MethodGet, path, bob, nil, http.StatusNotFound},
		{"rename", http.MethodPut, path, alice, map[string]string{"title": "Renamed"}, http.StatusOK},
		{"rename foreign", http.MethodPut, path, bob, map[string]string{"title": "Mine now"}, http.StatusNotFound},
		{"rename without title", http.MethodPut, path, alice, map[string]string{}, http.StatusBadRequest},
		{"end", http.MethodPost, path + "/end", alice, nil, http.StatusOK},
		{"end again", http.MethodPost, path + "/end", alice, nil, http.StatusOK},
		{"delete foreign", http.MethodDelete, path, bob, nil, http.StatusNotFound},
		{"delete", http.MethodDelete, path, alice, nil, http.StatusNoContent},
		{"get deleted", http.MethodGet, path, alice, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(t, tt.method, tt.path, tt.token, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d (%s), want %d", status, env.Message, tt.wantStatus)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		api.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s decode: %v", path, err)
		}
		if body["status"] != "ok" || body["version"] != Version {
			t.Errorf("%s body = %v", path, body)
		}
	}
}
