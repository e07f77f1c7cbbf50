// Package indexes reconciles the MongoDB indexes every store relies on.
// EnsureAll runs at startup and in testutil.SetupTestDB.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// SluggedCollections hold documents addressed by a unique slug.
var SluggedCollections = []string{
	"portfolio_items",
	"portfolio_categories",
	"products",
	"services",
	"news",
	"models3d",
}

// OrderedCollections list by order asc, then created_at desc.
var OrderedCollections = []string{
	"portfolio_items",
	"portfolio_categories",
	"products",
	"services",
	"sliders",
	"models3d",
}

// index is one desired index. Keys alternate field name and direction.
type index struct {
	name    string
	keys    bson.D
	unique  bool
	ttl     int32 // seconds; -1 for none
	partial bson.M
}

func idx(name string, keys ...any) index {
	d := make(bson.D, 0, len(keys)/2)
	for i := 0; i+1 < len(keys); i += 2 {
		d = append(d, bson.E{Key: keys[i].(string), Value: keys[i+1]})
	}
	return index{name: name, keys: d, ttl: -1}
}

func (x index) Unique() index           { x.unique = true; return x }
func (x index) TTL(seconds int32) index { x.ttl = seconds; return x }
func (x index) Partial(f bson.M) index  { x.partial = f; return x }

func (x index) model() mongo.IndexModel {
	opts := options.Index().SetName(x.name)
	if x.unique {
		opts.SetUnique(true)
	}
	if x.ttl >= 0 {
		opts.SetExpireAfterSeconds(x.ttl)
	}
	if x.partial != nil {
		opts.SetPartialFilterExpression(x.partial)
	}
	return mongo.IndexModel{Keys: x.keys, Options: opts}
}

// plan maps collection name to its desired indexes.
func plan() map[string][]index {
	p := map[string][]index{
		"users": {
			idx("uniq_users_email", "email", 1).Unique(),
			idx("idx_users_role_status_fullnameci_id", "role", 1, "status", 1, "full_name_ci", 1, "_id", 1),
		},
		"portfolio_items": {
			idx("idx_portfolio_category_published_order", "category_id", 1, "published", 1, "order", 1),
			idx("idx_portfolio_tags", "tags", 1),
		},
		"news": {
			idx("idx_news_status_published", "status", 1, "published_at", -1),
			idx("idx_news_tags", "tags", 1),
		},
		// At most one active About version; inactive ones are not indexed.
		"about": {
			idx("uniq_about_active", "active", 1).Unique().Partial(bson.M{"active": true}),
		},
		"theme":         {idx("uniq_theme_singleton", "singleton", 1).Unique()},
		"site_settings": {idx("uniq_sitesettings_singleton", "singleton", 1).Unique()},
		"oauth_states": {
			idx("uniq_oauth_state", "state", 1).Unique(),
			idx("idx_oauth_expires_ttl", "expires_at", 1).TTL(0),
		},
		"audit_logs": {
			idx("idx_audit_created", "created_at", -1),
			idx("idx_audit_category_created", "category", 1, "created_at", -1),
			idx("idx_audit_user_created", "user_id", 1, "created_at", -1),
			idx("idx_audit_actor_created", "actor_id", 1, "created_at", -1),
		},
		"contact_messages": {
			idx("idx_contact_read_created", "read", 1, "created_at", -1),
			idx("idx_contact_ip_created", "ip", 1, "created_at", -1),
		},
		"media": {
			idx("uniq_media_path", "path", 1).Unique(),
			idx("idx_media_folder_created", "folder", 1, "created_at", -1),
		},
		"login_attempts": {
			idx("uniq_loginattempts_key", "key", 1).Unique(),
			idx("idx_loginattempts_ttl", "last_attempt", 1).TTL(86400),
		},
		"api_stats": {
			idx("uniq_apistats_bucket_endpoint", "bucket", 1, "endpoint", 1).Unique(),
		},
	}
	for _, c := range SluggedCollections {
		p[c] = append(p[c], idx("uniq_"+c+"_slug", "slug", 1).Unique())
	}
	for _, c := range OrderedCollections {
		p[c] = append(p[c], idx("idx_"+c+"_order_created", "order", 1, "created_at", -1))
	}
	return p
}

// EnsureAll is idempotent. Every collection is attempted and the failures
// are joined so startup reports all of them at once.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var errs []error
	for coll, want := range plan() {
		if err := reconcile(ctx, db.Collection(coll), want); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", coll, err))
		}
	}
	return errors.Join(errs...)
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

func signature(keys bson.D) string {
	var b strings.Builder
	for i, e := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%v", e.Key, e.Value)
	}
	return b.String()
}

// reconcile creates missing indexes. An index with the same keys is reused
// under whatever name it has, unless its uniqueness differs, in which case
// it is dropped and rebuilt.
func reconcile(ctx context.Context, c *mongo.Collection, want []index) error {
	log := zap.L().With(zap.String("collection", c.Name()))

	have := map[string]existingIndex{}
	cur, err := c.Indexes().List(ctx)
	if err == nil {
		var list []existingIndex
		if err := cur.All(ctx, &list); err != nil {
			log.Warn("decode existing indexes", zap.Error(err))
		}
		for _, ex := range list {
			have[signature(ex.Key)] = ex
		}
	}

	var errs []error
	for _, x := range want {
		sig := signature(x.keys)
		if ex, ok := have[sig]; ok {
			if ex.Unique == x.unique {
				continue
			}
			log.Info("rebuilding index with new options", zap.String("index", ex.Name), zap.Bool("unique", x.unique))
			if _, err := c.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Errorf("drop %s: %w", ex.Name, err))
				continue
			}
		}

		if _, err := c.Indexes().CreateOne(ctx, x.model()); err != nil {
			if x.unique && mongo.IsDuplicateKeyError(err) {
				err = fmt.Errorf("duplicate values prevent unique index: %w", err)
			}
			log.Warn("create index failed", zap.String("index", x.name), zap.String("keys", sig), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", x.name, err))
			continue
		}
		log.Info("created index", zap.String("index", x.name), zap.String("keys", sig))
	}
	return errors.Join(errs...)
}
