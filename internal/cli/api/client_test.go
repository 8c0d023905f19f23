package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func TestLoginAndSendMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "alice" || body["password"] != "secret1" {
			writeEnvelope(w, http.StatusUnauthorized, 1103, "invalid username or password", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, 0, "success", map[string]interface{}{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
			"expires_in":    1800,
			"user":          map[string]interface{}{"user_id": "u-1", "username": "alice"},
		})
	})
	mux.HandleFunc("/api/chat/message", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			writeEnvelope(w, http.StatusUnauthorized, 1001, "unauthorized", nil)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		writeEnvelope(w, http.StatusOK, 0, "success", map[string]interface{}{
			"session_id":  "s-1",
			"message":     map[string]interface{}{"message_id": "m-1", "sender": "user", "content": body["message"]},
			"ai_response": map[string]interface{}{"message_id": "m-2", "sender": "ai", "content": "hi there"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	ctx := context.Background()

	if _, err := client.Login(ctx, "alice", "wrong"); err == nil {
		t.Fatal("expected login failure")
	} else if !IsUnauthorized(err) {
		t.Errorf("login error = %v, want unauthorized", err)
	}

	login, err := client.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User == nil || login.User.Username != "alice" {
		t.Errorf("login user = %+v", login.User)
	}
	if client.AccessToken() != "access-1" {
		t.Errorf("AccessToken() = %q", client.AccessToken())
	}

	resp, err := client.SendMessage(ctx, "", "hello", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.SessionID != "s-1" || resp.Message.Content != "hello" || resp.AIResponse.Content != "hi there" {
		t.Errorf("SendMessage() = %+v", resp)
	}
}

func TestCallRefreshesExpiredToken(t *testing.T) {
	var refreshed int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "refresh-1" {
			writeEnvelope(w, http.StatusUnauthorized, 1001, "refresh token is invalid or expired", nil)
			return
		}
		atomic.AddInt32(&refreshed, 1)
		writeEnvelope(w, http.StatusOK, 0, "success", map[string]interface{}{
			"access_token": "access-2",
			"token_type":   "bearer",
			"expires_in":   1800,
		})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeEnvelope(w, http.StatusUnauthorized, 1001, "token expired", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, 0, "success", map[string]interface{}{"user_id": "u-1", "username": "alice"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL)
	client.SetTokens("access-1", "refresh-1")
	var saved string
	client.OnTokenRefresh(func(token string) error {
		saved = token
		return nil
	})

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.ID != "u-1" {
		t.Errorf("user = %+v", user)
	}
	if atomic.LoadInt32(&refreshed) != 1 || saved != "access-2" || client.AccessToken() != "access-2" {
		t.Errorf("refreshed=%d saved=%q token=%q", refreshed, saved, client.AccessToken())
	}

	// 刷新 Token 同样失效时返回原始错误
	client.SetTokens("access-1", "refresh-bad")
	if _, err := client.Me(context.Background()); !IsUnauthorized(err) {
		t.Errorf("Me() error = %v, want unauthorized", err)
	}
}

func TestSessionCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/sessions/":
			writeEnvelope(w, http.StatusOK, 0, "success", []map[string]interface{}{
				{"session_id": "s-2", "title": "second"},
				{"session_id": "s-1", "title": "first"},
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/sessions/s-1":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPut && r.URL.Path == "/api/sessions/s-1":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			writeEnvelope(w, http.StatusOK, 0, "success", map[string]interface{}{"session_id": "s-1", "title": body["title"]})
		default:
			writeEnvelope(w, http.StatusNotFound, 1301, "session not found", nil)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL)
	client.SetTokens("access", "")
	ctx := context.Background()

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "s-2" {
		t.Errorf("sessions = %+v", sessions)
	}

	renamed, err := client.RenameSession(ctx, "s-1", "renamed")
	if err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	if renamed.Title != "renamed" {
		t.Errorf("title = %q", renamed.Title)
	}

	if err := client.DeleteSession(ctx, "s-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	_, err = client.GetSession(ctx, "missing")
	if !IsNotFound(err) {
		t.Fatalf("GetSession() error = %v, want not found", err)
	}
	apiErr := err.(*APIError)
	if apiErr.Code != CodeSessionNotFound {
		t.Errorf("code = %d, want %d", apiErr.Code, CodeSessionNotFound)
	}
}
