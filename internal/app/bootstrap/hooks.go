package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks is the site's WAFFLE lifecycle, run in field order by app.Run.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "stratasite",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,    // MongoDB, optional Redis, storage, mailer, AI and stock clients
	EnsureSchema:   EnsureSchema, // collections, validators, indexes, default content
	Startup:        Startup,      // first admin, background jobs
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}
