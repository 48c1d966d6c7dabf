package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/storage"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

func makeSession(id string, createdAt int64) *api.SessionSummary {
	return &api.SessionSummary{
		ID:          id,
		Object:      "session",
		Dialect:     "native",
		Model:       "claude-sonnet-4-5-20250929",
		SkillIDs:    []string{"pdf"},
		ContainerID: "container_1",
		StopReason:  "end_turn",
		Status:      api.SessionCompleted,
		Usage:       api.Usage{InputTokens: 5, OutputTokens: 2},
		FileIDs:     []string{"file_a"},
		Steps:       1,
		CreatedAt:   createdAt,
		CompletedAt: createdAt + 3,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	if err := s.SaveSession(ctx, makeSession("sess_1", 1000)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "sess_1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.Status != api.SessionCompleted {
		t.Errorf("Status = %q, want %q", got.Status, api.SessionCompleted)
	}
	if len(got.FileIDs) != 1 || got.FileIDs[0] != "file_a" {
		t.Errorf("FileIDs = %v, want [file_a]", got.FileIDs)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New(0)
	_, err := s.GetSession(context.Background(), "sess_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveConflict(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	_ = s.SaveSession(ctx, makeSession("sess_1", 1000))

	err := s.SaveSession(ctx, makeSession("sess_1", 2000))
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestStoredCopyIsolated(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	sess := makeSession("sess_1", 1000)
	_ = s.SaveSession(ctx, sess)

	sess.FileIDs[0] = "mutated"
	got, _ := s.GetSession(ctx, "sess_1")
	if got.FileIDs[0] != "file_a" {
		t.Errorf("stored FileIDs changed through caller's slice: %v", got.FileIDs)
	}

	got.Model = "mutated"
	again, _ := s.GetSession(ctx, "sess_1")
	if again.Model == "mutated" {
		t.Error("stored summary changed through returned pointer")
	}
}

func TestTenantIsolation(t *testing.T) {
	s := New(0)
	alice := storage.SetTenant(context.Background(), "alice")
	bob := storage.SetTenant(context.Background(), "bob")

	_ = s.SaveSession(alice, makeSession("sess_a", 1000))
	_ = s.SaveSession(bob, makeSession("sess_b", 1000))

	if _, err := s.GetSession(bob, "sess_a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("bob reading alice's session: err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetSession(alice, "sess_a"); err != nil {
		t.Errorf("alice reading own session: %v", err)
	}

	list, _ := s.ListSessions(alice, transport.ListOptions{})
	if len(list.Data) != 1 || list.Data[0].ID != "sess_a" {
		t.Errorf("alice list = %v, want only sess_a", list.Data)
	}

	// No tenant in context sees everything (single-tenant mode).
	all, _ := s.ListSessions(context.Background(), transport.ListOptions{})
	if len(all.Data) != 2 {
		t.Errorf("unscoped list has %d sessions, want 2", len(all.Data))
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_ = s.SaveSession(ctx, makeSession(fmt.Sprintf("sess_%d", i), int64(1000+i)))
	}

	list, err := s.ListSessions(ctx, transport.ListOptions{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if list.Object != "list" {
		t.Errorf("Object = %q, want list", list.Object)
	}
	if !list.HasMore {
		t.Error("HasMore = false, want true")
	}
	want := []string{"sess_5", "sess_4", "sess_3"}
	if len(list.Data) != len(want) {
		t.Fatalf("len = %d, want %d", len(list.Data), len(want))
	}
	for i, id := range want {
		if list.Data[i].ID != id {
			t.Errorf("Data[%d] = %q, want %q", i, list.Data[i].ID, id)
		}
	}
}

func TestListDialectFilter(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	native := makeSession("sess_n", 1000)
	chat := makeSession("sess_c", 1001)
	chat.Dialect = "openai"
	_ = s.SaveSession(ctx, native)
	_ = s.SaveSession(ctx, chat)

	list, _ := s.ListSessions(ctx, transport.ListOptions{Dialect: "openai"})
	if len(list.Data) != 1 || list.Data[0].ID != "sess_c" {
		t.Errorf("filtered list = %v, want only sess_c", list.Data)
	}
}

func TestListEmpty(t *testing.T) {
	list, err := New(0).ListSessions(context.Background(), transport.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if list.Data == nil || len(list.Data) != 0 {
		t.Errorf("Data = %v, want empty non-nil slice", list.Data)
	}
}

func TestLRUEviction(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	_ = s.SaveSession(ctx, makeSession("sess_1", 1))
	_ = s.SaveSession(ctx, makeSession("sess_2", 2))

	// Touch sess_1 so sess_2 becomes least recently used.
	if _, err := s.GetSession(ctx, "sess_1"); err != nil {
		t.Fatal(err)
	}
	_ = s.SaveSession(ctx, makeSession("sess_3", 3))

	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if _, err := s.GetSession(ctx, "sess_2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("sess_2 should have been evicted, err = %v", err)
	}
	if _, err := s.GetSession(ctx, "sess_1"); err != nil {
		t.Errorf("sess_1 should remain: %v", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SaveSession(ctx, makeSession(fmt.Sprintf("sess_%d", i), int64(i)))
		}(i)
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
}

func TestHealthCheckAndClose(t *testing.T) {
	s := New(0)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
