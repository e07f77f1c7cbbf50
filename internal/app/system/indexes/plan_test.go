package indexes

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestPlan_NamesAreUniquePerCollection(t *testing.T) {
	for coll, want := range plan() {
		seen := map[string]bool{}
		sigs := map[string]bool{}
		for _, x := range want {
			if seen[x.name] {
				t.Errorf("%s: index name %s declared twice", coll, x.name)
			}
			if sigs[signature(x.keys)] {
				t.Errorf("%s: key pattern %s declared twice", coll, signature(x.keys))
			}
			seen[x.name], sigs[signature(x.keys)] = true, true
		}
	}
}

func TestIndexModel(t *testing.T) {
	m := idx("idx_oauth_expires_ttl", "expires_at", 1).TTL(0).model()
	if got := signature(m.Keys.(bson.D)); got != "expires_at:1" {
		t.Errorf("keys = %s, want expires_at:1", got)
	}
	if m.Options.ExpireAfterSeconds == nil || *m.Options.ExpireAfterSeconds != 0 {
		t.Errorf("ExpireAfterSeconds = %v, want 0", m.Options.ExpireAfterSeconds)
	}
	if m.Options.Unique != nil {
		t.Errorf("Unique = %v, want unset", *m.Options.Unique)
	}

	u := idx("uniq_about_active", "active", 1).Unique().Partial(bson.M{"active": true}).model()
	if u.Options.Unique == nil || !*u.Options.Unique || u.Options.PartialFilterExpression == nil {
		t.Errorf("unique partial options not set: %+v", u.Options)
	}
	if u.Options.ExpireAfterSeconds != nil {
		t.Errorf("ExpireAfterSeconds = %v, want unset", *u.Options.ExpireAfterSeconds)
	}
}
