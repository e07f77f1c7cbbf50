package userstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func mustCreate(t *testing.T, s *Store, in CreateInput) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", in.Email, err)
	}
	return u
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, CreateInput{
		FullName:     "  Test User ",
		Email:        " Test@Example.COM ",
		Role:         "Admin",
		PasswordHash: strPtr("hash"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ID.IsZero() {
		t.Error("Create() did not assign ID")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
	if created.Status != "active" {
		t.Errorf("Create() Status = %q, want %q", created.Status, "active")
	}
	if created.AuthMethod != "password" {
		t.Errorf("Create() AuthMethod = %q, want %q", created.AuthMethod, "password")
	}
	if created.Email != "test@example.com" {
		t.Errorf("Create() Email = %q, want %q", created.Email, "test@example.com")
	}
	if created.FullName != "Test User" {
		t.Errorf("Create() FullName = %q, want %q", created.FullName, "Test User")
	}
	if created.FullNameCI == "" {
		t.Error("Create() did not set FullNameCI")
	}
	if created.Role != "admin" {
		t.Errorf("Create() Role = %q, want %q", created.Role, "admin")
	}
}

func TestStore_Create_Rejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"missing email", CreateInput{FullName: "A", Role: "admin"}, ErrEmailRequired},
		{"bad role", CreateInput{FullName: "A", Email: "a@x.com", Role: "superuser"}, ErrBadRole},
		{"bad status", CreateInput{FullName: "A", Email: "a@x.com", Role: "editor", Status: "pending"}, ErrBadStatus},
		{"bad auth method", CreateInput{FullName: "A", Email: "a@x.com", Role: "editor", AuthMethod: "saml"}, ErrBadAuthMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mustCreate(t, store, CreateInput{FullName: "First", Email: "dup@example.com", Role: "editor"})

	// Differs only by case; stored lowercase so the unique index catches it.
	_, err := store.Create(ctx, CreateInput{FullName: "Second", Email: "DUP@example.com", Role: "admin", AuthMethod: "google"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Create() duplicate error = %v, want %v", err, ErrDuplicateEmail)
	}
}

func TestStore_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created := mustCreate(t, store, CreateInput{FullName: "Get Me", Email: "get@example.com", Role: "editor"})

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "get@example.com" {
		t.Errorf("GetByID() Email = %q, want %q", got.Email, "get@example.com")
	}

	_, err = store.GetByID(ctx, primitive.NewObjectID())
	if err != mongo.ErrNoDocuments {
		t.Errorf("GetByID() nonexistent error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created := mustCreate(t, store, CreateInput{FullName: "Mail", Email: "mail@example.com", Role: "editor"})

	got, err := store.GetByEmail(ctx, "  MAIL@Example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() ID = %v, want %v", got.ID, created.ID)
	}

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	if err != mongo.ErrNoDocuments {
		t.Errorf("GetByEmail() nonexistent error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mustCreate(t, store, CreateInput{FullName: "Charlie", Email: "charlie@example.com", Role: "editor"})
	mustCreate(t, store, CreateInput{FullName: "alice", Email: "alice@example.com", Role: "admin"})
	mustCreate(t, store, CreateInput{FullName: "Bob", Email: "bob@other.org", Role: "editor", Status: "disabled"})

	users, total, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(users) != 3 {
		t.Fatalf("List() = %d users (total %d), want 3", len(users), total)
	}
	// Sorted by folded name.
	if users[0].FullName != "alice" || users[1].FullName != "Bob" || users[2].FullName != "Charlie" {
		t.Errorf("List() order = %s, %s, %s", users[0].FullName, users[1].FullName, users[2].FullName)
	}

	tests := []struct {
		name string
		f    ListFilter
		want int64
	}{
		{"role", ListFilter{Role: "editor"}, 2},
		{"status", ListFilter{Status: "disabled"}, 1},
		{"search name", ListFilter{Search: "ALI"}, 1},
		{"search email", ListFilter{Search: "other.org"}, 1},
		{"search regex chars are literal", ListFilter{Search: ".*"}, 0},
		{"combined", ListFilter{Role: "editor", Status: "active"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, err := store.List(ctx, tt.f)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if n != tt.want {
				t.Errorf("List(%+v) total = %d, want %d", tt.f, n, tt.want)
			}
		})
	}
}

func TestStore_List_Pagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		mustCreate(t, store, CreateInput{FullName: name, Email: name + "@example.com", Role: "editor"})
	}

	page2, total, err := store.List(ctx, ListFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("List() total = %d, want 5", total)
	}
	if len(page2) != 2 || page2[0].FullName != "c" {
		t.Errorf("List() page 2 = %+v, want c,d", page2)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := mustCreate(t, store, CreateInput{FullName: "Old", Email: "old@example.com", Role: "editor", PasswordHash: strPtr("h")})

	err := store.Update(ctx, u.ID, UpdateInput{
		FullName: strPtr("New Name"),
		Email:    strPtr("NEW@example.com"),
		Role:     strPtr("admin"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := store.GetByID(ctx, u.ID)
	if got.FullName != "New Name" || got.Email != "new@example.com" || got.Role != "admin" {
		t.Errorf("Update() got %+v", got)
	}
	if got.PasswordHash == nil || *got.PasswordHash != "h" {
		t.Error("Update() should not touch password_hash when not set")
	}
	if !got.UpdatedAt.After(u.UpdatedAt) && !got.UpdatedAt.Equal(u.UpdatedAt) {
		t.Error("Update() did not advance UpdatedAt")
	}
}

func TestStore_Update_ClearPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := mustCreate(t, store, CreateInput{
		FullName: "Switch", Email: "switch@example.com", Role: "editor",
		PasswordHash: strPtr("h"), PasswordTemp: boolPtr(true),
	})

	err := store.Update(ctx, u.ID, UpdateInput{AuthMethod: strPtr("google"), ClearPassword: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := store.GetByID(ctx, u.ID)
	if got.AuthMethod != "google" {
		t.Errorf("AuthMethod = %q, want google", got.AuthMethod)
	}
	if got.PasswordHash != nil || got.PasswordTemp != nil {
		t.Error("ClearPassword should remove password_hash and password_temp")
	}
}

func TestStore_Update_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := mustCreate(t, store, CreateInput{FullName: "A", Email: "a@example.com", Role: "editor"})
	mustCreate(t, store, CreateInput{FullName: "B", Email: "b@example.com", Role: "editor"})

	if err := store.Update(ctx, a.ID, UpdateInput{Email: strPtr("B@example.com")}); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Update() duplicate email error = %v, want %v", err, ErrDuplicateEmail)
	}
	if err := store.Update(ctx, a.ID, UpdateInput{Role: strPtr("root")}); !errors.Is(err, ErrBadRole) {
		t.Errorf("Update() bad role error = %v, want %v", err, ErrBadRole)
	}
	if err := store.Update(ctx, a.ID, UpdateInput{Email: strPtr("  ")}); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("Update() blank email error = %v, want %v", err, ErrEmailRequired)
	}
	if err := store.Update(ctx, primitive.NewObjectID(), UpdateInput{FullName: strPtr("x")}); err != mongo.ErrNoDocuments {
		t.Errorf("Update() missing user error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_UpdatePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := mustCreate(t, store, CreateInput{FullName: "P", Email: "p@example.com", Role: "editor"})

	if err := store.UpdatePassword(ctx, u.ID, "newhash", true); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.PasswordHash == nil || *got.PasswordHash != "newhash" {
		t.Error("UpdatePassword() did not store hash")
	}
	if !got.MustChangePassword() {
		t.Error("UpdatePassword(temp=true) should flag the password as temporary")
	}

	if err := store.UpdatePassword(ctx, u.ID, "final", false); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.MustChangePassword() {
		t.Error("UpdatePassword(temp=false) should clear the temporary flag")
	}

	if err := store.UpdatePassword(ctx, primitive.NewObjectID(), "x", false); err != mongo.ErrNoDocuments {
		t.Errorf("UpdatePassword() missing user error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_SetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := mustCreate(t, store, CreateInput{FullName: "S", Email: "s@example.com", Role: "editor"})

	if err := store.SetStatus(ctx, u.ID, "Disabled"); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.Status != "disabled" {
		t.Errorf("Status = %q, want disabled", got.Status)
	}

	if err := store.SetStatus(ctx, u.ID, "banned"); !errors.Is(err, ErrBadStatus) {
		t.Errorf("SetStatus() bad status error = %v, want %v", err, ErrBadStatus)
	}
}

func TestStore_TouchLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := mustCreate(t, store, CreateInput{FullName: "T", Email: "t@example.com", Role: "editor"})
	if u.LastLoginAt != nil {
		t.Fatal("new user should have no LastLoginAt")
	}

	if err := store.TouchLogin(ctx, u.ID); err != nil {
		t.Fatalf("TouchLogin() error = %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.LastLoginAt == nil {
		t.Error("TouchLogin() did not set LastLoginAt")
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := mustCreate(t, store, CreateInput{FullName: "D", Email: "d@example.com", Role: "editor"})

	n, err := store.Delete(ctx, u.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() = %d, want 1", n)
	}

	n, _ = store.Delete(ctx, u.ID)
	if n != 0 {
		t.Errorf("Delete() second call = %d, want 0", n)
	}
}

func TestStore_CountActiveAdmins_IsLastActiveAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := mustCreate(t, store, CreateInput{FullName: "Admin", Email: "admin@example.com", Role: "admin"})
	mustCreate(t, store, CreateInput{FullName: "Off", Email: "off@example.com", Role: "admin", Status: "disabled"})
	editor := mustCreate(t, store, CreateInput{FullName: "Ed", Email: "ed@example.com", Role: "editor"})

	n, err := store.CountActiveAdmins(ctx)
	if err != nil {
		t.Fatalf("CountActiveAdmins() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountActiveAdmins() = %d, want 1", n)
	}

	last, err := store.IsLastActiveAdmin(ctx, &admin)
	if err != nil {
		t.Fatalf("IsLastActiveAdmin() error = %v", err)
	}
	if !last {
		t.Error("IsLastActiveAdmin(admin) = false, want true")
	}
	if last, _ := store.IsLastActiveAdmin(ctx, &editor); last {
		t.Error("IsLastActiveAdmin(editor) = true, want false")
	}

	mustCreate(t, store, CreateInput{FullName: "Admin2", Email: "admin2@example.com", Role: "admin"})
	if last, _ := store.IsLastActiveAdmin(ctx, &admin); last {
		t.Error("IsLastActiveAdmin() with two admins = true, want false")
	}
}

func TestStore_Count(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mustCreate(t, store, CreateInput{FullName: "A", Email: "a@example.com", Role: "admin"})
	mustCreate(t, store, CreateInput{FullName: "B", Email: "b@example.com", Role: "editor"})

	if n, _ := store.Count(ctx, nil); n != 2 {
		t.Errorf("Count(nil) = %d, want 2", n)
	}
	if n, _ := store.Count(ctx, bson.M{"role": "editor"}); n != 1 {
		t.Errorf("Count(editor) = %d, want 1", n)
	}
}

func TestStore_EmailExistsForOther(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := mustCreate(t, store, CreateInput{FullName: "A", Email: "a@example.com", Role: "admin"})
	b := mustCreate(t, store, CreateInput{FullName: "B", Email: "b@example.com", Role: "editor"})

	if exists, _ := store.EmailExistsForOther(ctx, "a@example.com", a.ID); exists {
		t.Error("own email should not count as taken")
	}
	if exists, _ := store.EmailExistsForOther(ctx, "A@example.com", b.ID); !exists {
		t.Error("another user's email should count as taken")
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fetcher := NewFetcher(db, zap.NewNop())

	active := mustCreate(t, store, CreateInput{FullName: "Active", Email: "active@example.com", Role: "Editor"})
	disabled := mustCreate(t, store, CreateInput{FullName: "Gone", Email: "gone@example.com", Role: "editor", Status: "disabled"})

	su := fetcher.FetchUser(ctx, active.ID.Hex())
	if su == nil {
		t.Fatal("FetchUser(active) = nil")
	}
	if su.Email != "active@example.com" || su.Name != "Active" || su.Role != "editor" {
		t.Errorf("FetchUser() = %+v", su)
	}

	if su := fetcher.FetchUser(ctx, disabled.ID.Hex()); su != nil {
		t.Error("FetchUser(disabled) should return nil")
	}
	if su := fetcher.FetchUser(ctx, "not-an-id"); su != nil {
		t.Error("FetchUser(invalid id) should return nil")
	}
	if su := fetcher.FetchUser(ctx, primitive.NewObjectID().Hex()); su != nil {
		t.Error("FetchUser(missing) should return nil")
	}
}
