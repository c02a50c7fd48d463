package state

import "testing"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStartAndCurrent(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Start("123", "CC01: login", "CC01", "/work/shop")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.ID == "" {
		t.Error("expected generated session id")
	}
	if sess.EndedAt != nil {
		t.Error("new session should be open")
	}

	current, err := store.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current == nil || current.ID != sess.ID {
		t.Fatalf("Current = %+v, want session %s", current, sess.ID)
	}
	if current.TaskGID != "123" || current.FeatureCode != "CC01" {
		t.Errorf("unexpected session fields: %+v", current)
	}
}

func TestStartClosesPreviousSession(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Start("123", "first", "", "/work")
	if err != nil {
		t.Fatalf("Start first: %v", err)
	}
	second, err := store.Start("456", "second", "", "/work")
	if err != nil {
		t.Fatalf("Start second: %v", err)
	}

	current, err := store.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.ID != second.ID {
		t.Errorf("current = %s, want %s", current.ID, second.ID)
	}

	recent, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent returned %d sessions, want 2", len(recent))
	}
	for _, sess := range recent {
		if sess.ID == first.ID && sess.EndedAt == nil {
			t.Error("first session should have been closed")
		}
	}
}

func TestEnd(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Start("123", "task", "CC01", "/work"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ended, err := store.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended == nil || ended.EndedAt == nil {
		t.Fatalf("End = %+v, want closed session", ended)
	}

	current, err := store.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != nil {
		t.Errorf("expected no open session, got %+v", current)
	}
}

func TestEndWithoutOpenSession(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
}

func TestStartRequiresTaskGID(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Start("", "no gid", "", "/work"); err == nil {
		t.Error("expected error for empty task gid")
	}
}
