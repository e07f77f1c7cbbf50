package portfoliostore

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestStore_CreateCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	web, err := store.CreateCategory(ctx, CategoryInput{Name: " Web Design ", Active: true})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if web.Slug != "web-design" {
		t.Errorf("Slug = %q, want web-design", web.Slug)
	}
	if web.Name != "Web Design" {
		t.Errorf("Name = %q, want %q", web.Name, "Web Design")
	}
	if web.Order != 0 {
		t.Errorf("Order = %d, want 0", web.Order)
	}

	second, _ := store.CreateCategory(ctx, CategoryInput{Name: "Web Design"})
	if second.Slug != "web-design-2" {
		t.Errorf("derived duplicate slug = %q, want web-design-2", second.Slug)
	}
	if second.Order != 1 {
		t.Errorf("second Order = %d, want 1", second.Order)
	}

	_, err = store.CreateCategory(ctx, CategoryInput{Name: "Other", Slug: "web-design"})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("explicit duplicate slug error = %v, want %v", err, ErrDuplicateSlug)
	}
}

func TestStore_ListCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.CreateCategory(ctx, CategoryInput{Name: "A", Active: true})
	b, _ := store.CreateCategory(ctx, CategoryInput{Name: "B", Active: false})
	c, _ := store.CreateCategory(ctx, CategoryInput{Name: "C", Active: true})

	if err := store.ReorderCategories(ctx, []primitive.ObjectID{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("ReorderCategories() error = %v", err)
	}

	all, err := store.ListCategories(ctx, false)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != c.ID || all[1].ID != a.ID || all[2].ID != b.ID {
		t.Errorf("ListCategories() order wrong: %+v", all)
	}

	active, _ := store.ListCategories(ctx, true)
	if len(active) != 2 {
		t.Errorf("ListCategories(active) = %d, want 2", len(active))
	}
}

func TestStore_UpdateCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := store.CreateCategory(ctx, CategoryInput{Name: "Branding"})
	store.CreateCategory(ctx, CategoryInput{Name: "Print"})

	err := store.UpdateCategory(ctx, c.ID, CategoryUpdate{Name: strPtr("Brand Identity"), Active: boolPtr(true)})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	got, _ := store.GetCategory(ctx, c.ID)
	if got.Name != "Brand Identity" || !got.Active {
		t.Errorf("UpdateCategory() got %+v", got)
	}
	if got.Slug != "branding" {
		t.Errorf("renaming should keep the slug, got %q", got.Slug)
	}

	if err := store.UpdateCategory(ctx, c.ID, CategoryUpdate{Slug: strPtr("print")}); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("UpdateCategory() duplicate slug error = %v, want %v", err, ErrDuplicateSlug)
	}
	if err := store.UpdateCategory(ctx, primitive.NewObjectID(), CategoryUpdate{Name: strPtr("x")}); err != mongo.ErrNoDocuments {
		t.Errorf("UpdateCategory() missing error = %v, want %v", err, mongo.ErrNoDocuments)
	}

	bySlug, err := store.GetCategoryBySlug(ctx, "branding")
	if err != nil || bySlug.ID != c.ID {
		t.Errorf("GetCategoryBySlug() = %v, %v", bySlug, err)
	}
}

func TestStore_Create_CategoryMustExist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	missing := primitive.NewObjectID()
	_, err := store.Create(ctx, CreateInput{Title: "Orphan", CategoryID: &missing})
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("Create() error = %v, want %v", err, ErrCategoryNotFound)
	}

	cat, _ := store.CreateCategory(ctx, CategoryInput{Name: "Apps"})
	it, err := store.Create(ctx, CreateInput{Title: "Weather App", CategoryID: &cat.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if it.CategoryID == nil || *it.CategoryID != cat.ID {
		t.Error("Create() did not keep CategoryID")
	}

	if err := store.Update(ctx, it.ID, UpdateInput{CategoryID: &missing}); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("Update() unknown category error = %v, want %v", err, ErrCategoryNotFound)
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	it, err := store.Create(ctx, CreateInput{
		Title:     "Café Rebrand",
		Tags:      []string{"Branding", " branding", "Print"},
		Cover:     models.MediaRef{Path: "media/2026/01/a.png", URL: "/files/media/2026/01/a.png"},
		Published: true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if it.Slug != "cafe-rebrand" {
		t.Errorf("Slug = %q, want cafe-rebrand", it.Slug)
	}
	if it.TitleCI != "cafe rebrand" {
		t.Errorf("TitleCI = %q, want %q", it.TitleCI, "cafe rebrand")
	}
	if len(it.Tags) != 2 {
		t.Errorf("Tags = %v, want [branding print]", it.Tags)
	}

	got, err := store.GetBySlug(ctx, "cafe-rebrand", true)
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if got.Cover.Path != it.Cover.Path {
		t.Errorf("Cover.Path = %q, want %q", got.Cover.Path, it.Cover.Path)
	}

	_, err = store.Create(ctx, CreateInput{Title: "Another", Slug: "cafe-rebrand"})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("Create() explicit duplicate error = %v, want %v", err, ErrDuplicateSlug)
	}
}

func TestStore_GetBySlug_PublishedOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store.Create(ctx, CreateInput{Title: "Draft Work"})

	if _, err := store.GetBySlug(ctx, "draft-work", true); err != mongo.ErrNoDocuments {
		t.Errorf("GetBySlug(published) draft error = %v, want %v", err, mongo.ErrNoDocuments)
	}
	if _, err := store.GetBySlug(ctx, "draft-work", false); err != nil {
		t.Errorf("GetBySlug(any) error = %v", err)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cat, _ := store.CreateCategory(ctx, CategoryInput{Name: "Web"})
	a, _ := store.Create(ctx, CreateInput{Title: "Alpha Site", CategoryID: &cat.ID, Published: true, Tags: []string{"go"}})
	b, _ := store.Create(ctx, CreateInput{Title: "Beta Shop", Published: true, Featured: true})
	c, _ := store.Create(ctx, CreateInput{Title: "Gamma Draft", CategoryID: &cat.ID})

	items, total, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Errorf("List() should follow creation order, got %d items", len(items))
	}

	tests := []struct {
		name string
		f    ListFilter
		want int64
	}{
		{"published", ListFilter{PublishedOnly: true}, 2},
		{"featured", ListFilter{FeaturedOnly: true}, 1},
		{"category", ListFilter{CategoryID: &cat.ID}, 2},
		{"category published", ListFilter{CategoryID: &cat.ID, PublishedOnly: true}, 1},
		{"tag", ListFilter{Tag: "GO"}, 1},
		{"search", ListFilter{Search: "shop"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := store.Count(ctx, tt.f)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != tt.want {
				t.Errorf("Count(%s) = %d, want %d", tt.name, n, tt.want)
			}
		})
	}

	if err := store.Reorder(ctx, []primitive.ObjectID{c.ID, b.ID, a.ID}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	items, _, _ = store.List(ctx, ListFilter{})
	if items[0].ID != c.ID || items[2].ID != a.ID {
		t.Error("List() should follow the new order after Reorder()")
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cat, _ := store.CreateCategory(ctx, CategoryInput{Name: "Web"})
	it, _ := store.Create(ctx, CreateInput{Title: "Old", CategoryID: &cat.ID})

	tags := []string{"New", "tags"}
	err := store.Update(ctx, it.ID, UpdateInput{
		Title:         strPtr("New Title"),
		Tags:          &tags,
		Published:     boolPtr(true),
		ClearCategory: true,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := store.GetByID(ctx, it.ID)
	if got.Title != "New Title" || got.TitleCI != "new title" || !got.Published {
		t.Errorf("Update() got %+v", got)
	}
	if got.CategoryID != nil {
		t.Error("ClearCategory should unset category_id")
	}
	if got.Slug != "old" {
		t.Errorf("Slug changed to %q; slugs stay stable unless set", got.Slug)
	}

	if err := store.Update(ctx, primitive.NewObjectID(), UpdateInput{Title: strPtr("x")}); err != mongo.ErrNoDocuments {
		t.Errorf("Update() missing error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_DeleteCategory_DetachesItems(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cat, _ := store.CreateCategory(ctx, CategoryInput{Name: "Doomed"})
	keep, _ := store.CreateCategory(ctx, CategoryInput{Name: "Keep"})
	a, _ := store.Create(ctx, CreateInput{Title: "A", CategoryID: &cat.ID})
	store.Create(ctx, CreateInput{Title: "B", CategoryID: &cat.ID})
	c, _ := store.Create(ctx, CreateInput{Title: "C", CategoryID: &keep.ID})

	detached, err := store.DeleteCategory(ctx, cat.ID)
	if err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if detached != 2 {
		t.Errorf("DeleteCategory() detached = %d, want 2", detached)
	}

	gotA, _ := store.GetByID(ctx, a.ID)
	if gotA.CategoryID != nil {
		t.Error("item should be detached from the deleted category")
	}
	gotC, _ := store.GetByID(ctx, c.ID)
	if gotC.CategoryID == nil || *gotC.CategoryID != keep.ID {
		t.Error("items of other categories must be untouched")
	}

	if _, err := store.GetCategory(ctx, cat.ID); err != mongo.ErrNoDocuments {
		t.Errorf("GetCategory() after delete error = %v, want %v", err, mongo.ErrNoDocuments)
	}
	if _, err := store.DeleteCategory(ctx, cat.ID); err != mongo.ErrNoDocuments {
		t.Errorf("DeleteCategory() twice error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_CountByCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	web, _ := store.CreateCategory(ctx, CategoryInput{Name: "Web"})
	app, _ := store.CreateCategory(ctx, CategoryInput{Name: "App"})
	store.Create(ctx, CreateInput{Title: "W1", CategoryID: &web.ID, Published: true})
	store.Create(ctx, CreateInput{Title: "W2", CategoryID: &web.ID})
	store.Create(ctx, CreateInput{Title: "A1", CategoryID: &app.ID, Published: true})
	store.Create(ctx, CreateInput{Title: "Loose", Published: true})

	all, err := store.CountByCategory(ctx, false)
	if err != nil {
		t.Fatalf("CountByCategory() error = %v", err)
	}
	if all[web.ID] != 2 || all[app.ID] != 1 || all[primitive.NilObjectID] != 1 {
		t.Errorf("CountByCategory(all) = %v", all)
	}

	pub, _ := store.CountByCategory(ctx, true)
	if pub[web.ID] != 1 {
		t.Errorf("CountByCategory(published)[web] = %d, want 1", pub[web.ID])
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	it, _ := store.Create(ctx, CreateInput{Title: "Temp"})
	if err := store.Delete(ctx, it.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, it.ID); err != mongo.ErrNoDocuments {
		t.Errorf("Delete() twice error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}
