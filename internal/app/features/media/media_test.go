package media

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	mediastore "github.com/dalemusser/stratasite/internal/app/store/media"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/stratasite/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"), make([]byte, 32)...)

type fixture struct {
	router http.Handler
	store  *mediastore.Store
	files  storage.Store
	mon    *security.Monitor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	files, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	mon := security.NewMonitor(20, nil, zap.NewNop())
	h := NewHandler(db, files, mon, errorsfeature.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
	return fixture{router: Routes(h), store: mediastore.New(db), files: files, mon: mon}
}

func uploadRequest(t *testing.T, filename string, content []byte, alt string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if alt != "" {
		_ = mw.WriteField("alt", alt)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.WithUser(req, testutil.EditorUser())
}

func TestUpload_ImageAndModel(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		filename string
		content  []byte
		folder   string
	}{
		{"image", "hero.png", pngBytes, models.MediaFolderImages},
		{"model", "chair.glb", append([]byte("glTF\x02\x00\x00\x00"), make([]byte, 64)...), models.MediaFolderModels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			f.router.ServeHTTP(rec, uploadRequest(t, tt.filename, tt.content, "A <i>chair</i>"))
			rec.AssertStatus(t, http.StatusCreated)

			var m models.Media
			rec.DecodeJSON(t, &m)
			if m.Folder != tt.folder {
				t.Errorf("Folder = %q, want %q", m.Folder, tt.folder)
			}
			if m.Alt != "A chair" {
				t.Errorf("Alt = %q, want sanitized", m.Alt)
			}
			rc, err := f.files.Get(context.Background(), m.Path)
			if err != nil {
				t.Fatalf("stored object missing: %v", err)
			}
			rc.Close()
		})
	}

	var page struct {
		Items []models.Media `json:"items"`
		Total int64          `json:"total"`
	}
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/?folder=models", testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &page)
	if page.Total != 1 || page.Items[0].Folder != models.MediaFolderModels {
		t.Errorf("models page = %+v", page)
	}
}

func TestUpload_Rejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		filename   string
		content    []byte
		want       int
		suspicious bool
	}{
		{"text file", "notes.txt", []byte("plain words only"), http.StatusUnsupportedMediaType, false},
		{"exe as png", "cat.png", []byte("MZ\x90\x00\x03\x00\x00\x00"), http.StatusBadRequest, true},
		{"svg with script", "icon.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>x()</script></svg>`), http.StatusBadRequest, true},
		{"empty", "a.png", nil, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.mon.Recent(100))
			rec := testutil.NewRecorder()
			f.router.ServeHTTP(rec, uploadRequest(t, tt.filename, tt.content, ""))
			rec.AssertStatus(t, tt.want)

			events := f.mon.Recent(100)
			if tt.suspicious {
				if len(events) != before+1 || events[0].Type != security.EventSuspiciousUpload {
					t.Errorf("events = %+v, want a suspicious_upload", events)
				}
			} else if len(events) != before {
				t.Errorf("unexpected security event: %+v", events[0])
			}
		})
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if n, _ := f.store.Count(ctx, mediastore.ListFilter{}); n != 0 {
		t.Errorf("stored %d records, want 0", n)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)

	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, uploadRequest(t, "hero.png", pngBytes, ""))
	rec.AssertStatus(t, http.StatusCreated)
	var m models.Media
	rec.DecodeJSON(t, &m)

	rec = testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/"+m.ID.Hex(),
		`{"name":"Homepage hero","alt":"Team at work"}`, testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Media
	rec.DecodeJSON(t, &got)
	if got.Name != "Homepage hero" || got.Alt != "Team at work" {
		t.Errorf("updated = %+v", got)
	}

	rec = testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/"+m.ID.Hex(), `{"name":""}`, testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+m.ID.Hex(), testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusNoContent)

	if _, err := f.files.Get(context.Background(), m.Path); err == nil {
		t.Error("object should be removed from storage")
	}
	rec = testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/"+m.ID.Hex(), testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}
