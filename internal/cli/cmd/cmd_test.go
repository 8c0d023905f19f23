package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatbuddy/internal/cli/api"
	"chatbuddy/internal/cli/config"
	"chatbuddy/internal/model"
)

type fakeSender struct {
	calls    []string
	sessions []string
	notFound map[string]bool
}

func (f *fakeSender) SendMessage(ctx context.Context, sessionID, message, modelName string) (*api.ChatResponse, error) {
	f.calls = append(f.calls, message)
	f.sessions = append(f.sessions, sessionID)
	if f.notFound[sessionID] {
		return nil, &api.APIError{StatusCode: http.StatusNotFound, Code: api.CodeSessionNotFound, Message: "session not found"}
	}
	if sessionID == "" {
		sessionID = "s-new"
	}
	return &api.ChatResponse{
		SessionID:  sessionID,
		AIResponse: &model.Message{Sender: model.SenderAI, Content: "echo: " + message},
	}, nil
}

func TestChatLoop(t *testing.T) {
	sender := &fakeSender{notFound: map[string]bool{"gone": true}}
	in := strings.NewReader("hello\n\n/session\nagain\n/new\nfresh\n/exit\nignored\n")
	var out bytes.Buffer

	last, err := chatLoop(context.Background(), sender, in, &out, false, "", "")
	if err != nil {
		t.Fatalf("chatLoop: %v", err)
	}

	wantCalls := []string{"hello", "again", "fresh"}
	if strings.Join(sender.calls, ",") != strings.Join(wantCalls, ",") {
		t.Errorf("calls = %v, want %v", sender.calls, wantCalls)
	}
	// 第二条消息沿用第一轮创建的会话，/new 之后重新创建
	wantSessions := []string{"", "s-new", ""}
	if strings.Join(sender.sessions, ",") != strings.Join(wantSessions, ",") {
		t.Errorf("sessions = %v, want %v", sender.sessions, wantSessions)
	}
	if last != "s-new" {
		t.Errorf("last session = %q", last)
	}
	for _, want := range []string{"echo: hello", "echo: fresh", "s-new"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestChatLoopUnknownSession(t *testing.T) {
	sender := &fakeSender{notFound: map[string]bool{"gone": true}}
	var out bytes.Buffer

	last, err := chatLoop(context.Background(), sender, strings.NewReader("hi\nhi again\n"), &out, false, "gone", "gpt-4")
	if err != nil {
		t.Fatalf("chatLoop: %v", err)
	}
	if len(sender.sessions) != 2 || sender.sessions[0] != "gone" || sender.sessions[1] != "" {
		t.Errorf("sessions = %v", sender.sessions)
	}
	if last != "s-new" {
		t.Errorf("last session = %q", last)
	}
	if !strings.Contains(out.String(), "会话不存在") {
		t.Errorf("output = %q", out.String())
	}
}

func TestExportCommand(t *testing.T) {
	writeData := func(w http.ResponseWriter, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 0, "message": "success", "data": data})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions/s-1", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]interface{}{"session_id": "s-1", "title": "Recipes", "start_time": "2025-03-01T09:00:00Z"})
	})
	mux.HandleFunc("/api/chat/messages/s-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeData(w, []map[string]interface{}{
			{"message_id": "m-1", "session_id": "s-1", "sender": "user", "content": "pancakes?", "timestamp": "2025-03-01T09:00:00Z"},
			{"message_id": "m-2", "session_id": "s-1", "sender": "ai", "content": "flour, eggs, milk", "timestamp": "2025-03-01T09:00:01Z"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	if err := config.Init(dir); err != nil {
		t.Fatalf("config.Init: %v", err)
	}
	if err := config.SaveAuth("access", "refresh", "alice", "u-1"); err != nil {
		t.Fatalf("SaveAuth: %v", err)
	}

	outFile := filepath.Join(dir, "recipes.json")
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--config-dir", dir, "--server", srv.URL, "export", "s-1", "--format", "json", "-o", outFile})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var got struct {
		SessionID string `json:"session_id"`
		Title     string `json:"title"`
		Messages  []struct {
			Sender  string `json:"sender"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("export is not JSON: %v\n%s", err, raw)
	}
	if got.SessionID != "s-1" || got.Title != "Recipes" || len(got.Messages) != 2 || got.Messages[1].Content != "flour, eggs, milk" {
		t.Errorf("exported = %+v", got)
	}
}
