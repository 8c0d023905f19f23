package repository

import (
	"context"
	"testing"
	"time"

	"chatbuddy/internal/model"
	"chatbuddy/internal/testutil"
)

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", IsActive: true}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if user.Settings != "{}" {
		t.Errorf("Settings = %q, want {}", user.Settings)
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil || got == nil || got.ID != user.ID {
		t.Fatalf("GetByUsername() = %v, %v", got, err)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}

	exists, err := repo.ExistsByEmail(ctx, "alice@example.com")
	if err != nil || !exists {
		t.Errorf("ExistsByEmail() = %v, %v", exists, err)
	}

	dup := &model.User{Username: "alice", Email: "other@example.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, dup); err == nil {
		t.Error("Create() with duplicate username should fail")
	}
}

func TestSessionOwnershipScoping(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	session := &model.Session{UserID: alice.ID}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.Title != model.DefaultSessionTitle {
		t.Errorf("Title = %q, want %q", session.Title, model.DefaultSessionTitle)
	}
	if session.StartTime.IsZero() {
		t.Error("StartTime not set")
	}

	got, err := repo.GetByIDAndUser(ctx, session.ID, alice.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByIDAndUser(owner) = %v, %v", got, err)
	}

	foreign, err := repo.GetByIDAndUser(ctx, session.ID, bob.ID)
	if err != nil || foreign != nil {
		t.Errorf("GetByIDAndUser(foreign) = %v, %v; want nil, nil", foreign, err)
	}

	ok, err := repo.UpdateTitle(ctx, session.ID, bob.ID, "hijack")
	if err != nil || ok {
		t.Errorf("UpdateTitle(foreign) = %v, %v; want false, nil", ok, err)
	}
	ok, err = repo.UpdateTitle(ctx, session.ID, alice.ID, "Trip plans")
	if err != nil || !ok {
		t.Errorf("UpdateTitle(owner) = %v, %v; want true, nil", ok, err)
	}

	deleted, err := repo.Delete(ctx, session.ID, bob.ID)
	if err != nil || deleted {
		t.Errorf("Delete(foreign) = %v, %v; want false, nil", deleted, err)
	}
}

func TestSessionListAndEnd(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	older := &model.Session{UserID: alice.ID, Title: "older", StartTime: base}
	newer := &model.Session{UserID: alice.ID, Title: "newer", StartTime: base.Add(time.Hour)}
	for _, s := range []*model.Session{older, newer} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.ListByUser(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Title != "newer" || list[1].Title != "older" {
		t.Fatalf("ListByUser() order = %+v", list)
	}

	if err := repo.EndSession(ctx, older.ID, alice.ID); err != nil {
		t.Fatal(err)
	}
	ended, _ := repo.GetByIDAndUser(ctx, older.ID, alice.ID)
	if !ended.IsEnded() {
		t.Fatal("EndSession() did not set end_time")
	}
	first := *ended.EndTime

	// 重复结束不覆盖原结束时间
	if err := repo.EndSession(ctx, older.ID, alice.ID); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.GetByIDAndUser(ctx, older.ID, alice.ID)
	if !again.EndTime.Equal(first) {
		t.Errorf("EndTime changed from %v to %v", first, again.EndTime)
	}
}

func TestDeleteSessionCascadesMessages(t *testing.T) {
	db := testutil.NewDB(t)
	sessions := NewSessionRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	keep := &model.Session{UserID: alice.ID}
	drop := &model.Session{UserID: alice.ID}
	for _, s := range []*model.Session{keep, drop} {
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		for _, s := range []*model.Session{keep, drop} {
			if err := messages.Create(ctx, &model.Message{SessionID: s.ID, Sender: model.SenderUser, Content: "hi"}); err != nil {
				t.Fatal(err)
			}
		}
	}

	deleted, err := sessions.Delete(ctx, drop.ID, alice.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v", deleted, err)
	}

	if n, _ := messages.CountBySession(ctx, drop.ID); n != 0 {
		t.Errorf("messages left in deleted session = %d, want 0", n)
	}
	if n, _ := messages.CountBySession(ctx, keep.ID); n != 3 {
		t.Errorf("messages in kept session = %d, want 3", n)
	}
}

func TestListBySessionOrdering(t *testing.T) {
	db := testutil.NewDB(t)
	sessions := NewSessionRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	session := &model.Session{UserID: alice.ID}
	if err := sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	// 乱序插入，第三条与第二条时间戳相同
	inserts := []model.Message{
		{Content: "third", Timestamp: base.Add(2 * time.Second)},
		{Content: "first", Timestamp: base},
		{Content: "fourth", Timestamp: base.Add(2 * time.Second)},
		{Content: "second", Timestamp: base.Add(time.Second)},
	}
	for i := range inserts {
		inserts[i].SessionID = session.ID
		inserts[i].Sender = model.SenderUser
		if err := messages.Create(ctx, &inserts[i]); err != nil {
			t.Fatal(err)
		}
	}

	got, err := messages.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third", "fourth"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.Content != want[i] {
			t.Errorf("message[%d] = %q, want %q", i, m.Content, want[i])
		}
	}
}
