// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	contactstore "github.com/dalemusser/stratasite/internal/app/store/contact"
	mediastore "github.com/dalemusser/stratasite/internal/app/store/media"
	modelstore "github.com/dalemusser/stratasite/internal/app/store/models3d"
	newsstore "github.com/dalemusser/stratasite/internal/app/store/news"
	portfoliostore "github.com/dalemusser/stratasite/internal/app/store/portfolio"
	productstore "github.com/dalemusser/stratasite/internal/app/store/products"
	servicestore "github.com/dalemusser/stratasite/internal/app/store/services"
	sliderstore "github.com/dalemusser/stratasite/internal/app/store/sliders"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler provides the admin overview.
type Handler struct {
	portfolio *portfoliostore.Store
	products  *productstore.Store
	services  *servicestore.Store
	sliders   *sliderstore.Store
	news      *newsstore.Store
	models3d  *modelstore.Store
	media     *mediastore.Store
	contact   *contactstore.Store
	users     *userstore.Store
	monitor   *security.Monitor
	errLog    *errorsfeature.ErrorLogger
	logger    *zap.Logger
}

// NewHandler creates a new dashboard Handler.
func NewHandler(db *mongo.Database, mon *security.Monitor, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		portfolio: portfoliostore.New(db),
		products:  productstore.New(db),
		services:  servicestore.New(db),
		sliders:   sliderstore.New(db),
		news:      newsstore.New(db),
		models3d:  modelstore.New(db),
		media:     mediastore.New(db),
		contact:   contactstore.New(db),
		users:     userstore.New(db),
		monitor:   mon,
		errLog:    errLog,
		logger:    logger,
	}
}

// Counts is a published/total pair for one collection.
type Counts struct {
	Published int64 `json:"published"`
	Total     int64 `json:"total"`
}

// Summary is the dashboard payload.
type Summary struct {
	Content        map[string]Counts `json:"content"`
	Media          int64             `json:"media"`
	UnreadMessages int64             `json:"unread_messages"`
	Users          *int64            `json:"users,omitempty"`
	Security       *security.Stats   `json:"security,omitempty"`
}

// Routes mounts at /admin/api/dashboard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.summary)
	return r
}

type counter func(ctx context.Context, publishedOnly bool) (int64, error)

// summary gathers every count concurrently. User and security figures are
// only included for admins.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	counters := map[string]counter{
		"portfolio": func(ctx context.Context, p bool) (int64, error) {
			return h.portfolio.Count(ctx, portfoliostore.ListFilter{PublishedOnly: p})
		},
		"products": func(ctx context.Context, p bool) (int64, error) {
			return h.products.Count(ctx, productstore.ListFilter{PublishedOnly: p})
		},
		"services": func(ctx context.Context, p bool) (int64, error) {
			return h.services.Count(ctx, servicestore.ListFilter{PublishedOnly: p})
		},
		"sliders": func(ctx context.Context, p bool) (int64, error) {
			return h.sliders.Count(ctx, sliderstore.ListFilter{ActiveOnly: p})
		},
		"news": func(ctx context.Context, p bool) (int64, error) {
			return h.news.Count(ctx, newsstore.ListFilter{PublishedOnly: p})
		},
		"models": func(ctx context.Context, p bool) (int64, error) {
			return h.models3d.Count(ctx, modelstore.ListFilter{PublishedOnly: p})
		},
	}

	// Each goroutine writes only its own slot, so no lock is needed.
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	results := make([]Counts, len(names))

	var out Summary
	var users int64
	admin := authz.IsAdmin(r)

	g, ctx := errgroup.WithContext(r.Context())
	for i, name := range names {
		count := counters[name]
		g.Go(func() error {
			var err error
			if results[i].Total, err = count(ctx, false); err != nil {
				return err
			}
			results[i].Published, err = count(ctx, true)
			return err
		})
	}
	g.Go(func() error {
		var err error
		out.Media, err = h.media.Count(ctx, mediastore.ListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		out.UnreadMessages, err = h.contact.CountUnread(ctx)
		return err
	})
	if admin {
		g.Go(func() error {
			var err error
			users, err = h.users.Count(ctx, nil)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.errLog.Log(r, "failed to build dashboard", err)
		jsonutil.InternalError(w, "failed to load dashboard")
		return
	}

	out.Content = make(map[string]Counts, len(names))
	for i, name := range names {
		out.Content[name] = results[i]
	}
	if admin {
		out.Users = &users
		if h.monitor != nil {
			st := h.monitor.Stats()
			out.Security = &st
		}
	}
	jsonutil.OK(w, out)
}
