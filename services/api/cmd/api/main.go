package main

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/streaming-platform/internal/platform/analytics"
	"github.com/example/streaming-platform/internal/platform/auth"
	platformconfig "github.com/example/streaming-platform/internal/platform/config"
	"github.com/example/streaming-platform/internal/platform/db"
	"github.com/example/streaming-platform/internal/platform/httpserver"
	"github.com/example/streaming-platform/internal/platform/logging"
	"github.com/example/streaming-platform/internal/platform/metrics"
	"github.com/example/streaming-platform/internal/platform/natsconn"
	"github.com/example/streaming-platform/internal/platform/run"
	"github.com/example/streaming-platform/services/api/internal/bootstrap"
	apiconfig "github.com/example/streaming-platform/services/api/internal/config"
	"github.com/example/streaming-platform/services/api/internal/handlers"
	"github.com/example/streaming-platform/services/api/internal/playback"
	"github.com/example/streaming-platform/services/api/internal/ratelimit"
	"github.com/example/streaming-platform/services/api/internal/store"
	"github.com/example/streaming-platform/services/api/internal/tokens"
)

type stores struct {
	users     store.UserStore
	refresh   store.RefreshStore
	profiles  store.ProfileStore
	plans     store.PlanStore
	subs      store.SubscriptionStore
	payments  store.PaymentStore
	catalog   store.CatalogStore
	watchlist store.WatchlistStore
	playbacks *store.PostgresPlaybackStore
}

func newStores(pool *pgxpool.Pool) stores {
	return stores{
		users:     store.UserStore{DB: pool},
		refresh:   store.RefreshStore{DB: pool},
		profiles:  store.ProfileStore{DB: pool},
		plans:     store.PlanStore{DB: pool},
		subs:      store.SubscriptionStore{DB: pool},
		payments:  store.PaymentStore{DB: pool},
		catalog:   store.CatalogStore{DB: pool},
		watchlist: store.WatchlistStore{DB: pool},
		playbacks: store.NewPostgresPlaybackStore(pool),
	}
}

func mountRoutes(r chi.Router, st stores, m *playback.Manager, verifier auth.JWTVerifier, tok tokens.Service, pub *analytics.Publisher) {
	r.Handle("/metrics", metrics.Handler())

	// Auth
	r.Post("/v1/auth/register", handlers.Register(st.users, st.refresh, tok, pub))
	r.Post("/v1/auth/login", handlers.Login(st.users, st.refresh, tok, pub))
	r.Post("/v1/auth/refresh", handlers.Refresh(st.users, st.refresh, tok))
	r.Post("/v1/auth/logout", handlers.Logout(st.refresh))

	// Public catalog
	r.Get("/v1/plans", handlers.ListPlans(st.plans))
	r.Get("/v1/plans/{plan_id}", handlers.GetPlan(st.plans))
	r.Get("/v1/contents", handlers.ListContents(st.catalog))
	r.Get("/v1/contents/{content_id}", handlers.GetContent(st.catalog))
	r.Get("/v1/contents/{content_id}/episodes", handlers.ListEpisodes(st.catalog))
	r.Get("/v1/episodes/{episode_id}", handlers.GetEpisode(st.catalog))

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))

		r.Get("/v1/users/me", handlers.Me(st.users))
		r.Patch("/v1/users/me", handlers.UpdateMe(st.users))

		r.Get("/v1/profiles", handlers.ListProfiles(st.profiles))
		r.Post("/v1/profiles", handlers.CreateProfile(st.profiles, st.subs, st.plans))
		r.Patch("/v1/profiles/{profile_id}", handlers.UpdateProfile(st.profiles))
		r.Delete("/v1/profiles/{profile_id}", handlers.DeleteProfile(st.profiles))

		r.Get("/v1/subscriptions/me", handlers.MySubscription(st.subs))
		r.Post("/v1/subscriptions", handlers.Subscribe(st.subs, st.plans))
		r.Post("/v1/subscriptions/cancel", handlers.CancelSubscription(st.subs))
		r.Get("/v1/payments/me", handlers.MyPayments(st.payments))

		r.Get("/v1/watchlist", handlers.ListWatchlist(st.watchlist, st.profiles))
		r.Post("/v1/watchlist", handlers.AddToWatchlist(st.watchlist, st.profiles, pub))
		r.Delete("/v1/watchlist/{item_id}", handlers.RemoveFromWatchlist(st.watchlist, st.profiles))

		r.Post("/v1/playbacks", handlers.StartPlayback(m, st.profiles, pub))
		r.Get("/v1/playbacks", handlers.ListPlaybacks(st.playbacks, st.profiles))
		r.Get("/v1/playbacks/{playback_id}", handlers.GetPlayback(st.playbacks, st.profiles))
		r.Patch("/v1/playbacks/{playback_id}", handlers.ReportPlaybackProgress(m, st.playbacks, st.profiles))
		r.Post("/v1/playbacks/{playback_id}/complete", handlers.CompletePlayback(m, st.playbacks, st.profiles, pub))
		r.Delete("/v1/playbacks/{playback_id}", handlers.DeletePlayback(st.playbacks, st.profiles))
	})

	// Admin
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Use(auth.RequireAdmin)

		r.Get("/v1/admin/users", handlers.ListUsers(st.users))
		r.Get("/v1/admin/users/{user_id}", handlers.GetUser(st.users))
		r.Patch("/v1/admin/users/{user_id}", handlers.UpdateUser(st.users))
		r.Delete("/v1/admin/users/{user_id}", handlers.DeleteUser(st.users))

		r.Post("/v1/admin/plans", handlers.CreatePlan(st.plans))
		r.Patch("/v1/admin/plans/{plan_id}", handlers.UpdatePlan(st.plans))
		r.Delete("/v1/admin/plans/{plan_id}", handlers.DeletePlan(st.plans))

		r.Get("/v1/admin/subscriptions", handlers.ListSubscriptions(st.subs))
		r.Get("/v1/admin/payments", handlers.ListPayments(st.payments))
		r.Patch("/v1/admin/payments/{payment_id}", handlers.SetPaymentStatus(st.payments))

		r.Post("/v1/admin/contents", handlers.CreateContent(st.catalog))
		r.Patch("/v1/admin/contents/{content_id}", handlers.UpdateContent(st.catalog))
		r.Delete("/v1/admin/contents/{content_id}", handlers.DeleteContent(st.catalog))
		r.Post("/v1/admin/contents/{content_id}/episodes", handlers.CreateEpisode(st.catalog))
		r.Patch("/v1/admin/episodes/{episode_id}", handlers.UpdateEpisode(st.catalog))
		r.Delete("/v1/admin/episodes/{episode_id}", handlers.DeleteEpisode(st.catalog))

		r.Get("/v1/admin/playbacks", handlers.AdminListPlaybacks(st.playbacks))
		r.Post("/v1/admin/playbacks", handlers.AdminCreatePlayback(st.playbacks, st.profiles, st.catalog))
		r.Get("/v1/admin/playbacks/{playback_id}", handlers.AdminGetPlayback(st.playbacks))
		r.Put("/v1/admin/playbacks/{playback_id}", handlers.AdminUpdatePlayback(st.playbacks))
		r.Delete("/v1/admin/playbacks/{playback_id}", handlers.AdminDeletePlayback(st.playbacks))
	})
}

func main() {
	cfg, err := platformconfig.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	apiCfg, err := apiconfig.Load()
	if err != nil {
		log.Error("config", zap.Error(err))
		run.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx)
	if err != nil {
		log.Error("db open", zap.Error(err))
		run.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("db migrate", zap.Error(err))
		run.Exit(1)
	}
	if err := bootstrap.PromoteAdmin(ctx, pool, apiCfg.BootstrapAdminEmail); err != nil {
		log.Error("bootstrap admin", zap.Error(err))
	}

	// Analytics publishing is best-effort: without NATS the API still serves.
	var pub *analytics.Publisher
	if apiCfg.NATSURL != "" {
		nc, err := natsconn.Connect(natsconn.Options{URL: apiCfg.NATSURL})
		if err != nil {
			log.Error("nats connect", zap.Error(err))
		} else {
			defer nc.Close()
			js, err := nc.JetStream()
			if err != nil {
				log.Error("jetstream", zap.Error(err))
			} else {
				ensureAnalyticsStream(js, log)
				pub = analytics.New(js, log)
			}
		}
	}

	st := newStores(pool)
	manager := &playback.Manager{Sessions: st.playbacks, Episodes: st.catalog}
	verifier := auth.JWTVerifier{Secret: apiCfg.JWTSecret}
	tok := tokens.Service{
		Secret:          apiCfg.JWTSecret,
		AccessTokenTTL:  apiCfg.AccessTokenTTL,
		RefreshTokenTTL: apiCfg.RefreshTokenTTL,
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: func() error { return pool.Ping(context.Background()) }})
	r.Group(func(r chi.Router) {
		r.Use(metrics.Middleware)
		if apiCfg.RateLimitEnabled {
			limiter := ratelimit.New(apiCfg.RateLimitRPS, apiCfg.RateLimitBurst)
			r.Use(limiter.Middleware)
		}
		mountRoutes(r, st, manager, verifier, tok, pub)
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

func ensureAnalyticsStream(js nats.JetStreamContext, log *zap.Logger) {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     "ANALYTICS",
		Subjects: []string{"analytics.>"},
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		log.Warn("analytics stream", zap.Error(err))
	}
}
