package profile

import (
	"context"
	"net/http"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/app/system/authutil"
	"github.com/dalemusser/stratasite/internal/app/system/mailer"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeMailer struct {
	sent []mailer.Email
}

func (f *fakeMailer) Send(e mailer.Email) error { f.sent = append(f.sent, e); return nil }
func (f *fakeMailer) Enabled() bool              { return true }

func newTestHandler(t *testing.T, db *mongo.Database, mail mailer.Sender) http.Handler {
	t.Helper()
	sm, err := auth.NewSessionManager("session-key-for-profile-handler-1234567890", "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	h := NewHandler(db, errorsfeature.NewErrorLogger(zap.NewNop()), nil, mail, "Acme", "https://acme.test/login", zap.NewNop())
	return Routes(h, sm)
}

func createUser(t *testing.T, ctx context.Context, db *mongo.Database, password string, temp bool) (models.User, testutil.TestUser) {
	t.Helper()
	hash, err := authutil.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	u, err := userstore.New(db).Create(ctx, userstore.CreateInput{
		FullName:     "Pat Editor",
		Email:        "pat@example.com",
		AuthMethod:   "password",
		Role:         "editor",
		PasswordHash: &hash,
		PasswordTemp: &temp,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return u, testutil.TestUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email, Role: u.Role}
}

func TestProfile_Show(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, tu := createUser(t, ctx, db, "Old-Passw0rd!", false)
	router := newTestHandler(t, db, nil)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", tu))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "pat@example.com")
	rec.AssertContains(t, "password_rules")

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestProfile_UpdateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, tu := createUser(t, ctx, db, "Old-Passw0rd!", false)
	router := newTestHandler(t, db, nil)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/", `{"full_name":"  Pat Writer "}`, tu))
	rec.AssertStatus(t, http.StatusOK)

	got, _ := userstore.New(db).GetByID(ctx, u.ID)
	if got.FullName != "Pat Writer" {
		t.Errorf("FullName = %q, want %q", got.FullName, "Pat Writer")
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/", `{"full_name":""}`, tu))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestProfile_ChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, tu := createUser(t, ctx, db, "Old-Passw0rd!", false)
	mail := &fakeMailer{}
	router := newTestHandler(t, db, mail)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong current", `{"current_password":"nope","new_password":"New-Passw0rd!","confirm_password":"New-Passw0rd!"}`, http.StatusBadRequest},
		{"weak new", `{"current_password":"Old-Passw0rd!","new_password":"alllowercase","confirm_password":"alllowercase"}`, http.StatusBadRequest},
		{"mismatch", `{"current_password":"Old-Passw0rd!","new_password":"New-Passw0rd!","confirm_password":"Other-Passw0rd!"}`, http.StatusBadRequest},
		{"same as old", `{"current_password":"Old-Passw0rd!","new_password":"Old-Passw0rd!","confirm_password":"Old-Passw0rd!"}`, http.StatusBadRequest},
		{"ok", `{"current_password":"Old-Passw0rd!","new_password":"New-Passw0rd!","confirm_password":"New-Passw0rd!"}`, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/password", tt.body, tu))
			rec.AssertStatus(t, tt.want)
		})
	}

	got, _ := userstore.New(db).GetByID(ctx, u.ID)
	if got.PasswordHash == nil || !authutil.CheckPassword("New-Passw0rd!", *got.PasswordHash) {
		t.Error("new password was not stored")
	}
	if len(mail.sent) != 1 || mail.sent[0].To != "pat@example.com" {
		t.Errorf("notifications = %+v, want one to pat@example.com", mail.sent)
	}
}

func TestProfile_ChangeTemporaryPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, tu := createUser(t, ctx, db, "Temp-Passw0rd!", true)
	router := newTestHandler(t, db, nil)

	// No current password needed for a temporary one.
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/password",
		`{"new_password":"Fresh-Passw0rd!","confirm_password":"Fresh-Passw0rd!"}`, tu))
	rec.AssertStatus(t, http.StatusNoContent)

	got, _ := userstore.New(db).GetByID(ctx, u.ID)
	if got.MustChangePassword() {
		t.Error("password_temp should be cleared")
	}
}

func TestProfile_PasswordStrength(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestHandler(t, db, nil)
	tu := testutil.EditorUser()

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/password/strength", `{"password":"abc"}`, tu))
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Strength struct {
			Score   int      `json:"score"`
			Missing []string `json:"missing"`
		} `json:"strength"`
		Acceptable bool `json:"acceptable"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.Acceptable {
		t.Error("acceptable = true for a weak password")
	}
	if resp.Strength.Score >= 5 || len(resp.Strength.Missing) == 0 {
		t.Errorf("strength = %+v, want missing rules", resp.Strength)
	}
}
