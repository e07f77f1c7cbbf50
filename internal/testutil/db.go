// Package testutil holds shared test helpers: a per-test MongoDB database,
// request builders with a signed-in user, and a CSRF token stub.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultTestDBURI is used unless STRATASITE_TEST_MONGO_URI is set.
	DefaultTestDBURI = "mongodb://localhost:27017"
	TestDBName       = "stratasite_test"

	// MongoDB caps database names at 63 bytes.
	maxDBName = 63
)

func testDBURI() string {
	if uri := os.Getenv("STRATASITE_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return DefaultTestDBURI
}

// sharedClient is connected once per test binary. The pool is sized for
// packages whose tests run in parallel.
var sharedClient = sync.OnceValues(func() (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(testDBURI()).
		SetMaxPoolSize(200).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping %s: %w", testDBURI(), err)
	}
	return c, nil
})

// SetupTestDB returns an empty database with production indexes, private to
// this test and dropped when it finishes.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		t.Fatalf("connect test MongoDB: %v", err)
	}
	db := c.Database(dbNameFor(t.Name(), os.Getpid()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database %s: %v", db.Name(), err)
		}
	})
	return db
}

// dbNameFor builds "<TestDBName>_<pid>_<test>". Test names repeat across
// packages, which run as separate processes, so the pid keeps them apart.
func dbNameFor(testName string, pid int) string {
	prefix := fmt.Sprintf("%s_%d_", TestDBName, pid)
	suffix := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, testName)
	if room := maxDBName - len(prefix); len(suffix) > room {
		suffix = suffix[:room]
	}
	return prefix + suffix
}

// TestContext bounds a test's database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
