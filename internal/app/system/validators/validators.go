// Package validators creates the site's collections at startup and attaches
// JSON-Schema validators where the server supports them.
//
// Deployments without collMod validator support (some DocumentDB versions)
// skip the schema step and only get the collections.
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/stratasite/internal/app/system/status"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const slugPattern = "^[a-z0-9]+(?:-[a-z0-9]+)*$"

type collection struct {
	name   string
	schema bson.M // nil: create only
}

// collections lists everything created up front, so transactions (portfolio
// category delete, About activation) never need to create one.
func collections() []collection {
	return []collection{
		{"users", usersSchema()},
		{"news", newsSchema()},
		{"sliders", slidersSchema()},
		{"portfolio_items", nil},
		{"portfolio_categories", nil},
		{"products", nil},
		{"services", nil},
		{"models3d", nil},
		{"about", nil},
		{"theme", nil},
		{"site_settings", nil},
		{"contact_messages", nil},
		{"media", nil},
		{"oauth_states", nil},
		{"audit_logs", nil},
		{"login_attempts", nil},
	}
}

// EnsureAll is idempotent. Failures are collected and returned together so
// one bad collection does not hide the others.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	log := zap.L()

	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		// Fall through to CreateCollection, which tolerates "already exists".
		log.Warn("list collections failed", zap.Error(err))
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var errs []error
	for _, c := range collections() {
		if !have[c.name] {
			if err := create(ctx, db, c.name); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				continue
			}
		}
		if c.schema == nil {
			continue
		}
		switch err := applySchema(ctx, db, c.name, c.schema); {
		case err == nil:
			log.Debug("validator applied", zap.String("collection", c.name))
		case isUnsupported(err):
			log.Info("validator skipped (unsupported)", zap.String("collection", c.name))
		default:
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

func create(ctx context.Context, db *mongo.Database, name string) error {
	err := db.CreateCollection(ctx, name)
	if err == nil {
		zap.L().Info("created collection", zap.String("collection", name))
		return nil
	}
	if isNamespaceExists(err) {
		return nil
	}
	return err
}

func applySchema(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	return db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}).Err()
}

// matches reports whether err is a command error with one of codes, or
// whose text contains one of phrases (case-insensitive).
func matches(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isNamespaceExists(err error) bool {
	return matches(err, []int32{48}, "already exists", "namespace exists")
}

// isUnsupported covers CommandNotFound (59) and NotImplemented (115).
func isUnsupported(err error) bool {
	return matches(err, []int32{59, 115}, "no such command", "not implemented", "not supported")
}

func jsonSchema(required []string, props bson.M) bson.M {
	req := make(bson.A, len(required))
	for i, r := range required {
		req[i] = r
	}
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   req,
		"properties": props,
	}}
}

func enum(values ...string) bson.M {
	a := make(bson.A, len(values))
	for i, v := range values {
		a[i] = v
	}
	return bson.M{"enum": a}
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": `.*\S.*`}

func usersSchema() bson.M {
	return jsonSchema([]string{"full_name", "email", "role", "status", "auth_method"}, bson.M{
		"full_name":    nonBlank,
		"full_name_ci": nonBlank,
		// Emails are stored lowercased.
		"email":       bson.M{"bsonType": "string", "minLength": 3, "pattern": "^[^A-Z]*$"},
		"role":        enum(models.AllRoles()...),
		"status":      enum(status.Active, status.Disabled),
		"auth_method": enum(models.AllAuthMethodValues()...),
	})
}

func newsSchema() bson.M {
	return jsonSchema([]string{"title", "slug", "status"}, bson.M{
		"title":  bson.M{"bsonType": "string", "minLength": 1},
		"slug":   bson.M{"bsonType": "string", "pattern": slugPattern},
		"status": enum(models.NewsStatusDraft, models.NewsStatusPublished),
		"views":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}

func slidersSchema() bson.M {
	return jsonSchema([]string{"title", "active", "order"}, bson.M{
		"title":  bson.M{"bsonType": "string", "minLength": 1},
		"active": bson.M{"bsonType": "bool"},
		"order":  bson.M{"bsonType": bson.A{"int", "long"}},
	})
}
