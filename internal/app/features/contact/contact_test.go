package contact

import (
	"net/http"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	contactstore "github.com/dalemusser/stratasite/internal/app/store/contact"
	settingsstore "github.com/dalemusser/stratasite/internal/app/store/settings"
	"github.com/dalemusser/stratasite/internal/app/system/mailer"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const validBody = `{"name":"Sam Buyer","email":"sam@example.com","subject":"Quote","message":"We would like a quote for a new site."}`

type fakeMailer struct {
	sent []mailer.Email
}

func (f *fakeMailer) Send(e mailer.Email) error { f.sent = append(f.sent, e); return nil }
func (f *fakeMailer) Enabled() bool              { return true }

type fixture struct {
	h     *Handler
	db    *mongo.Database
	store *contactstore.Store
	mon   *security.Monitor
	mail  *fakeMailer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mon := security.NewMonitor(50, nil, zap.NewNop())
	mail := &fakeMailer{}
	h := NewHandler(db, mon, mail, Config{Recipient: "owner@example.com", AdminURL: "https://site.test/admin"},
		errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
	return fixture{h: h, db: db, store: contactstore.New(db), mon: mon, mail: mail}
}

func submit(f fixture, body, ip string) *testutil.ResponseRecorder {
	req := testutil.NewJSONRequest(http.MethodPost, "/", body)
	req.Header.Set("X-Forwarded-For", ip)
	rec := testutil.NewRecorder()
	PublicRoutes(f.h).ServeHTTP(rec, req)
	return rec
}

func TestSubmit_StoresAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := submit(f, validBody, "203.0.113.7")
	rec.AssertStatus(t, http.StatusAccepted)

	items, total, err := f.store.List(ctx, contactstore.ListFilter{})
	if err != nil || total != 1 {
		t.Fatalf("List() = %d, %v; want 1 message", total, err)
	}
	if items[0].IP != "203.0.113.7" || items[0].Read {
		t.Errorf("message = %+v", items[0])
	}

	if len(f.mail.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(f.mail.sent))
	}
	e := f.mail.sent[0]
	if e.To != "owner@example.com" || e.ReplyTo != "sam@example.com" {
		t.Errorf("email To=%q ReplyTo=%q", e.To, e.ReplyTo)
	}
	if !strings.Contains(e.TextBody, "https://site.test/admin/contact/"+items[0].ID.Hex()) {
		t.Errorf("email body missing admin link:\n%s", e.TextBody)
	}
}

func TestSubmit_SettingsRecipientWins(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := settingsstore.Defaults()
	s.ContactEmail = "inbox@studio.example"
	if err := settingsstore.New(f.db).Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	submit(f, validBody, "203.0.113.8").AssertStatus(t, http.StatusAccepted)
	if len(f.mail.sent) != 1 || f.mail.sent[0].To != "inbox@studio.example" {
		t.Errorf("sent = %+v, want inbox@studio.example", f.mail.sent)
	}
}

func TestSubmit_Honeypot(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	body := strings.Replace(validBody, `"name"`, `"website":"http://spam.example","name"`, 1)
	rec := submit(f, body, "198.51.100.1")
	rec.AssertStatus(t, http.StatusAccepted)

	if n, _ := f.store.CountUnread(ctx); n != 0 {
		t.Errorf("stored %d messages, want 0", n)
	}
	if len(f.mail.sent) != 0 {
		t.Error("honeypot submission should not notify")
	}
	ev := f.mon.Recent(1)
	if len(ev) != 1 || ev[0].Type != security.EventSpam {
		t.Errorf("events = %+v, want one spam event", ev)
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"email":"a@b.co","message":"long enough message"}`, "name"},
		{"bad email", `{"name":"A","email":"nope","message":"long enough message"}`, "email"},
		{"short message", `{"name":"A","email":"a@b.co","message":"hi"}`, "message"},
		{"markup only", `{"name":"<b></b>","email":"a@b.co","message":"long enough message"}`, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submit(f, tt.body, "192.0.2.1")
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.field)
		})
	}
}

func TestSubmit_PerIPLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < maxPerWindow; i++ {
		submit(f, validBody, "192.0.2.50").AssertStatus(t, http.StatusAccepted)
	}
	submit(f, validBody, "192.0.2.50").AssertStatus(t, http.StatusTooManyRequests)
	submit(f, validBody, "192.0.2.51").AssertStatus(t, http.StatusAccepted)

	// Older messages fall out of the window.
	f.h.now = func() time.Time { return time.Now().Add(2 * window) }
	submit(f, validBody, "192.0.2.50").AssertStatus(t, http.StatusAccepted)
}

func TestAdmin_Inbox(t *testing.T) {
	f := newFixture(t)
	router := AdminRoutes(f.h)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, _ := f.store.Create(ctx, contactstore.CreateInput{Name: "A", Email: "a@b.co", Message: "hello there friend"})
	_, _ = f.store.Create(ctx, contactstore.CreateInput{Name: "B", Email: "b@b.co", Message: "another message"})

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/"+m.ID.Hex(), testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusOK)
	var got models.ContactMessage
	rec.DecodeJSON(t, &got)
	if !got.Read {
		t.Error("opening a message should mark it read")
	}
	if n, _ := f.store.CountUnread(ctx); n != 1 {
		t.Errorf("unread = %d, want 1", n)
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/"+m.ID.Hex()+"/read", `{"read":false}`, testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusNoContent)
	if n, _ := f.store.CountUnread(ctx); n != 2 {
		t.Errorf("unread = %d, want 2", n)
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+m.ID.Hex(), testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/"+m.ID.Hex(), testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}
