// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	"errors"

	aboutstore "github.com/dalemusser/stratasite/internal/app/store/about"
	settingsstore "github.com/dalemusser/stratasite/internal/app/store/settings"
	themestore "github.com/dalemusser/stratasite/internal/app/store/theme"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/authutil"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/app/system/theme"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if err := seedTheme(ctx, db, logger); err != nil {
		return err
	}
	if err := seedSettings(ctx, db, logger); err != nil {
		return err
	}
	if err := seedAbout(ctx, db, logger); err != nil {
		return err
	}
	return nil
}

// seedTheme stores the default preset so /theme.css has a saved document
// to render and admins have something to edit.
func seedTheme(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := themestore.New(db)
	exists, err := store.Exists(ctx)
	if err != nil {
		logger.Error("failed to check theme", zap.Error(err))
		return err
	}
	if exists {
		return nil
	}
	if _, err := store.Save(ctx, theme.Default(), themestore.Editor{Name: "system"}); err != nil {
		logger.Error("failed to seed theme", zap.Error(err))
		return err
	}
	logger.Info("seeded default theme")
	return nil
}

func seedSettings(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := settingsstore.New(db)
	exists, err := store.Exists(ctx)
	if err != nil {
		logger.Error("failed to check site settings", zap.Error(err))
		return err
	}
	if exists {
		return nil
	}
	if err := store.Save(ctx, settingsstore.Defaults()); err != nil {
		logger.Error("failed to seed site settings", zap.Error(err))
		return err
	}
	logger.Info("seeded default site settings")
	return nil
}

// seedAbout creates an active About version when the collection is empty.
// Existing versions are left alone even if none is active.
func seedAbout(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := aboutstore.New(db).WithLogger(logger)
	n, err := store.Count(ctx)
	if err != nil {
		logger.Error("failed to count about versions", zap.Error(err))
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = store.Create(ctx, aboutstore.Input{
		Title:    "About Us",
		Subtitle: "Who we are",
		Content: `<p>Welcome to our studio. This page can be customized by an administrator.</p>
<p>Use the admin panel to describe your team, your mission and the work you are proud of.</p>`,
		Active: true,
	})
	if err != nil {
		logger.Error("failed to seed about", zap.Error(err))
		return err
	}
	logger.Info("seeded default about content")
	return nil
}

// AdminSeed describes the first administrator account.
type AdminSeed struct {
	Email    string
	Name     string
	Password string // blank: Google sign-in only
}

// SeedAdmin creates the admin account if no user has the email yet.
// With a password the account signs in with it and must change it on first
// sign-in; without one it signs in with Google.
func SeedAdmin(ctx context.Context, db *mongo.Database, seed AdminSeed, logger *zap.Logger) error {
	email := normalize.Email(seed.Email)
	if email == "" {
		return nil
	}
	store := userstore.New(db)

	existing, err := store.GetByEmail(ctx, email)
	if err == nil {
		logger.Debug("admin user already exists", zap.String("email", email), zap.String("role", existing.Role))
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	name := normalize.Name(seed.Name)
	if name == "" {
		name = "Admin"
	}
	in := userstore.CreateInput{
		FullName: name,
		Email:    email,
		Role:     models.RoleAdmin,
	}
	if seed.Password != "" {
		hash, err := authutil.HashPassword(seed.Password)
		if err != nil {
			return err
		}
		temp := true
		in.AuthMethod = "password"
		in.PasswordHash = &hash
		in.PasswordTemp = &temp
	} else {
		in.AuthMethod = "google"
	}

	if _, err := store.Create(ctx, in); err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return nil
		}
		return err
	}
	logger.Info("seeded admin user", zap.String("email", email), zap.String("auth_method", in.AuthMethod))
	return nil
}
