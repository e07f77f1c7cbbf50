package productstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.Create(ctx, CreateInput{Name: "Starter Plan", Price: 4900, Currency: " eur "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Slug != "starter-plan" {
		t.Errorf("Slug = %q, want starter-plan", p.Slug)
	}
	if p.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", p.Currency)
	}
	if p.NameCI != "starter plan" {
		t.Errorf("NameCI = %q", p.NameCI)
	}

	q, _ := store.Create(ctx, CreateInput{Name: "Starter Plan"})
	if q.Slug != "starter-plan-2" {
		t.Errorf("second Slug = %q, want starter-plan-2", q.Slug)
	}
	if q.Currency != "USD" {
		t.Errorf("default Currency = %q, want USD", q.Currency)
	}
	if q.Order != p.Order+1 {
		t.Errorf("Order = %d, want %d", q.Order, p.Order+1)
	}

	if _, err := store.Create(ctx, CreateInput{Name: "X", Slug: "starter-plan"}); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("explicit duplicate error = %v, want %v", err, ErrDuplicateSlug)
	}
}

func TestStore_ListAndCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.Create(ctx, CreateInput{Name: "Basic", Published: true})
	b, _ := store.Create(ctx, CreateInput{Name: "Pro", Published: true, Featured: true})
	c, _ := store.Create(ctx, CreateInput{Name: "Enterprise"})

	items, total, err := store.List(ctx, ListFilter{PublishedOnly: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || items[0].ID != a.ID || items[1].ID != b.ID {
		t.Errorf("List(published) = %d items, total %d", len(items), total)
	}

	if n, _ := store.Count(ctx, ListFilter{FeaturedOnly: true}); n != 1 {
		t.Errorf("Count(featured) = %d, want 1", n)
	}
	if n, _ := store.Count(ctx, ListFilter{Search: "PRISE"}); n != 1 {
		t.Errorf("Count(search) = %d, want 1", n)
	}

	if err := store.Reorder(ctx, []primitive.ObjectID{c.ID, b.ID, a.ID}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	items, _, _ = store.List(ctx, ListFilter{})
	if items[0].ID != c.ID {
		t.Errorf("first after Reorder() = %s, want Enterprise", items[0].Name)
	}
}

func TestStore_UpdateDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, _ := store.Create(ctx, CreateInput{Name: "Old"})
	store.Create(ctx, CreateInput{Name: "Taken"})

	price := int64(1999)
	name := "Renamed"
	published := true
	if err := store.Update(ctx, p.ID, UpdateInput{Name: &name, Price: &price, Published: &published}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.Name != "Renamed" || got.Price != 1999 || !got.Published {
		t.Errorf("Update() got %+v", got)
	}

	if _, err := store.GetBySlug(ctx, "old", true); err != nil {
		t.Errorf("GetBySlug() error = %v", err)
	}

	taken := "taken"
	if err := store.Update(ctx, p.ID, UpdateInput{Slug: &taken}); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("Update() duplicate slug error = %v, want %v", err, ErrDuplicateSlug)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); err != mongo.ErrNoDocuments {
		t.Errorf("GetByID() after delete error = %v", err)
	}
	if err := store.Delete(ctx, p.ID); err != mongo.ErrNoDocuments {
		t.Errorf("Delete() twice error = %v", err)
	}
}
