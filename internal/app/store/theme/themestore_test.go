package themestore

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratasite/internal/app/system/theme"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Get_Default(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := theme.Default()
	if got.Colors != want.Colors || got.Mode != want.Mode {
		t.Errorf("Get() = %+v, want default %+v", got, want)
	}
	if ok, _ := store.Exists(ctx); ok {
		t.Error("Exists() = true before Save")
	}
}

func TestStore_Save(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := theme.Default()
	cfg.Colors.Primary = "#FF0000"
	cfg.Preset = ""
	uid := primitive.NewObjectID()

	saved, err := store.Save(ctx, cfg, Editor{ID: &uid, Name: "Admin"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Colors.Primary != "#ff0000" {
		t.Errorf("Primary = %q, want normalized #ff0000", saved.Colors.Primary)
	}
	if saved.UpdatedByName != "Admin" || saved.UpdatedAt == nil {
		t.Errorf("audit fields not set: %+v", saved)
	}

	// Saving twice keeps a single document.
	if _, err := store.Save(ctx, cfg, Editor{}); err != nil {
		t.Fatalf("Save() again error = %v", err)
	}
	n, _ := store.c.CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Errorf("theme documents = %d, want 1", n)
	}
}

func TestStore_ApplyPreset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.ApplyPreset(ctx, "midnight", Editor{Name: "Admin"})
	if err != nil {
		t.Fatalf("ApplyPreset() error = %v", err)
	}
	p, _ := theme.PresetByName("midnight")
	if got.Preset != "midnight" || got.Colors != theme.Normalize(p.Config()).Colors {
		t.Errorf("ApplyPreset() = %+v", got)
	}

	if _, err := store.ApplyPreset(ctx, "neon", Editor{}); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("ApplyPreset(unknown) error = %v, want %v", err, ErrUnknownPreset)
	}
}
