package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatbuddy/internal/cache"
	"chatbuddy/internal/llm"
	"chatbuddy/internal/model"
	"chatbuddy/internal/repository"
	"chatbuddy/internal/service"
	"chatbuddy/internal/testutil"
	"chatbuddy/pkg/jwt"
	"chatbuddy/pkg/logger"
)

type echoGenerator struct{}

func (echoGenerator) GenerateResponse(_ context.Context, turns []llm.Message, _ string) string {
	return "echo: " + turns[len(turns)-1].Content
}

// frame 测试中解析服务端消息
type frame struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	MessageID string                 `json:"message_id"`
}

type testServer struct {
	url    string
	jwt    *jwt.JWTService
	hub    *Hub
	userID string
	other  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	log := logger.Discard()
	chat := service.NewChatService(repository.NewSessionRepository(db), repository.NewMessageRepository(db), echoGenerator{})
	chat.SetLogger(log)
	hub := NewHub(log)
	chat.SetNotifier(hub)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	jwtSvc := jwt.NewJWTService("test-secret", time.Minute, time.Hour)
	r := gin.New()
	NewHandler(hub, chat, jwtSvc, cache.NoopCache{}, []string{"*"}, log).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &testServer{
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat",
		jwt:    jwtSvc,
		hub:    hub,
		userID: alice.ID,
		other:  bob.ID,
	}
}

func (s *testServer) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := s.jwt.GenerateAccessToken(userID, "user")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(s.url+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// 收到 pong 说明连接已在 Hub 中注册
	if err := conn.WriteJSON(map[string]string{"type": TypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if f := readFrame(t, conn); f.Type != TypePong {
		t.Fatalf("first frame = %s, want pong", f.Type)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestChatOverWebSocket(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, s.userID)
	other := s.dial(t, s.userID)

	if n := s.hub.ConnectionCount(s.userID); n != 2 {
		t.Fatalf("connections = %d, want 2", n)
	}

	err := conn.WriteJSON(map[string]interface{}{
		"type":       TypeChatSend,
		"message_id": "m-1",
		"payload":    map[string]string{"message": "Hello"},
	})
	if err != nil {
		t.Fatalf("write chat:send: %v", err)
	}

	reply := readFrame(t, conn)
	if reply.Type != TypeChatReply || reply.MessageID != "m-1" {
		t.Fatalf("reply = %+v", reply)
	}
	sessionID, _ := reply.Payload["session_id"].(string)
	if sessionID == "" {
		t.Fatal("missing session_id")
	}
	ai, _ := reply.Payload["ai_response"].(map[string]interface{})
	if ai["content"] != "echo: Hello" || ai["sender"] != model.SenderAI {
		t.Errorf("ai_response = %v", ai)
	}

	broadcast := readFrame(t, other)
	if broadcast.Type != TypeMessageNew || broadcast.Payload["session_id"] != sessionID {
		t.Errorf("broadcast = %+v", broadcast)
	}
}

func TestChatOverWebSocketErrors(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, s.other)

	tests := []struct {
		name    string
		frame   map[string]interface{}
		wantErr float64
	}{
		{
			name:    "foreign session",
			frame:   map[string]interface{}{"type": TypeChatSend, "payload": map[string]string{"session_id": "missing", "message": "hi"}},
			wantErr: http.StatusNotFound,
		},
		{
			name:    "empty message",
			frame:   map[string]interface{}{"type": TypeChatSend, "payload": map[string]string{"message": " "}},
			wantErr: http.StatusBadRequest,
		},
		{
			name:    "unknown type",
			frame:   map[string]interface{}{"type": "terminal:input"},
			wantErr: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteJSON(tt.frame); err != nil {
				t.Fatalf("write: %v", err)
			}
			f := readFrame(t, conn)
			if f.Type != TypeError {
				t.Fatalf("type = %s, want error", f.Type)
			}
			if f.Payload["status"] != tt.wantErr {
				t.Errorf("status = %v, want %v", f.Payload["status"], tt.wantErr)
			}
		})
	}
}

func TestHandshakeRequiresToken(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		url  string
	}{
		{"missing token", s.url},
		{"invalid token", s.url + "?token=garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tt.url, nil)
			if err == nil {
				t.Fatal("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("response = %v, want 401", resp)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"https://app.example.com"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://app.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := check(req); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
