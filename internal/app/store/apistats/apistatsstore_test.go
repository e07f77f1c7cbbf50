package apistats

import (
	"testing"
	"time"

	"github.com/dalemusser/stratasite/internal/testutil"
)

func TestRecordAndSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	at := time.Date(2026, 4, 1, 10, 15, 0, 0, time.UTC)
	calls := []struct {
		endpoint string
		at       time.Time
		ms       int64
		isErr    bool
	}{
		{"export:products", at, 10, false},
		{"export:products", at.Add(20 * time.Minute), 30, true},
		{"export:products", at.Add(time.Hour), 20, false},
		{"export:news", at, 5, false},
	}
	for _, c := range calls {
		if err := s.Record(ctx, c.endpoint, c.at, c.ms, c.isErr); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	if n, _ := db.Collection(CollectionName).CountDocuments(ctx, map[string]any{}); n != 3 {
		t.Errorf("buckets = %d, want 3", n)
	}

	sum, err := s.GetSummary(ctx, at.Add(-time.Hour), at.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if len(sum) != 2 || sum[0].Endpoint != "export:news" {
		t.Fatalf("summary = %+v", sum)
	}
	p := sum[1]
	if p.Requests != 3 || p.Errors != 1 || p.MaxMs != 30 || p.AvgMs != 20 {
		t.Errorf("products = %+v", p)
	}
	if !p.Last.Equal(TruncateToBucket(at.Add(time.Hour))) {
		t.Errorf("Last = %v", p.Last)
	}

	removed, err := s.DeleteBefore(ctx, at.Add(time.Hour).Truncate(time.Hour))
	if err != nil || removed != 2 {
		t.Errorf("DeleteBefore() = %d, %v; want 2", removed, err)
	}
}
