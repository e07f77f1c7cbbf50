package indexes_test

import (
	"testing"

	"github.com/dalemusser/stratasite/internal/app/system/indexes"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes %s: %v", coll, err)
	}
	var specs []bson.M
	if err := cur.All(ctx, &specs); err != nil {
		t.Fatalf("decode indexes %s: %v", coll, err)
	}
	names := map[string]bool{}
	for _, s := range specs {
		names[s["name"].(string)] = true
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t) // already ran EnsureAll once
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() second run error = %v", err)
	}
}

func TestEnsureAll_SlugIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	for _, name := range indexes.SluggedCollections {
		if !indexNames(t, db, name)["uniq_"+name+"_slug"] {
			t.Errorf("%s: missing unique slug index", name)
		}
	}
	for _, name := range indexes.OrderedCollections {
		if !indexNames(t, db, name)["idx_"+name+"_order_created"] {
			t.Errorf("%s: missing order index", name)
		}
	}
}

func TestEnsureAll_UniqueEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := db.Collection("users")
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@example.com"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@example.com"}); !mongo.IsDuplicateKeyError(err) {
		t.Errorf("second insert error = %v, want duplicate key", err)
	}
}

func TestEnsureAll_OneActiveAbout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	about := db.Collection("about")
	// Any number of inactive versions
	for i := 0; i < 3; i++ {
		if _, err := about.InsertOne(ctx, bson.M{"active": false}); err != nil {
			t.Fatalf("insert inactive: %v", err)
		}
	}
	if _, err := about.InsertOne(ctx, bson.M{"active": true}); err != nil {
		t.Fatalf("insert active: %v", err)
	}
	if _, err := about.InsertOne(ctx, bson.M{"active": true}); !mongo.IsDuplicateKeyError(err) {
		t.Errorf("second active insert error = %v, want duplicate key", err)
	}
}
