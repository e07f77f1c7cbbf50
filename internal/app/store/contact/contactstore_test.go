package contactstore

import (
	"testing"
	"time"

	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_CreateListRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.Create(ctx, CreateInput{
		Name:    "  Jane   Doe ",
		Email:   " Jane@Example.COM ",
		Subject: "Quote",
		Message: " Hello there \n",
		IP:      "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.Name != "Jane Doe" || first.Email != "jane@example.com" || first.Message != "Hello there" || first.Read {
		t.Errorf("Create() = %+v", first)
	}
	time.Sleep(2 * time.Millisecond)
	second, _ := store.Create(ctx, CreateInput{Name: "Bob", Email: "bob@example.com", Message: "Hi", IP: "203.0.113.7"})

	list, total, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || list[0].ID != second.ID {
		t.Errorf("List() = %v, want newest first", list)
	}

	if err := store.SetRead(ctx, first.ID, true); err != nil {
		t.Fatalf("SetRead() error = %v", err)
	}
	if n, _ := store.CountUnread(ctx); n != 1 {
		t.Errorf("CountUnread() = %d, want 1", n)
	}
	unread, total, _ := store.List(ctx, ListFilter{UnreadOnly: true})
	if total != 1 || unread[0].ID != second.ID {
		t.Errorf("List(unread) = %v", unread)
	}

	if n, _ := store.CountSince(ctx, "203.0.113.7", time.Now().Add(-time.Minute)); n != 2 {
		t.Errorf("CountSince() = %d, want 2", n)
	}
	if n, _ := store.CountSince(ctx, "198.51.100.1", time.Now().Add(-time.Minute)); n != 0 {
		t.Errorf("CountSince(other ip) = %d, want 0", n)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, _ := store.Create(ctx, CreateInput{Name: "A", Email: "a@example.com", Message: "x"})
	if err := store.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.GetByID(ctx, m.ID); err != mongo.ErrNoDocuments {
		t.Errorf("GetByID(deleted) error = %v", err)
	}
	if err := store.SetRead(ctx, m.ID, true); err != mongo.ErrNoDocuments {
		t.Errorf("SetRead(missing) error = %v", err)
	}
}
