package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deo-backend/internal/config"
	"deo-backend/internal/handlers"
	"deo-backend/internal/logging"
	"deo-backend/internal/middleware"
	"deo-backend/internal/repository"
	"deo-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the deo command tree
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "deo",
		Short:         "Deo prayer habit backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newMigrateCommand(&configPath))
	return root
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			closer := logging.Setup(cfg.Log)
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			closer := logging.Setup(cfg.Log)
			defer closer.Close()

			db, err := connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info().Msg("Schema applied")
			return nil
		},
	}
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test database connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")
	return db, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	loc, err := cfg.Streak.Location()
	if err != nil {
		return err
	}
	clock := services.SystemClock{}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	prayerRepo := repository.NewPrayerRepository(db)
	checklistRepo := repository.NewChecklistRepository(db)
	reflectionRepo := repository.NewReflectionRepository(db)
	inspirationRepo := repository.NewInspirationRepository(db)

	// Initialize services
	feed := services.NewFeed()
	gate := services.NewSessionGate(sessionRepo, cfg.JWT.Secret, cfg.JWT.ExpDays, clock)
	feed.FollowSessions(gate)
	wsHub := services.NewWSHub(gate)

	var shareService *services.ShareService
	if cfg.AWS.S3Bucket != "" {
		publisher, err := services.NewS3Publisher(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("failed to create share storage: %w", err)
		}
		shareService = services.NewShareService(publisher, cfg.AWS.ShareTTL)
	} else {
		log.Warn().Msg("No S3 bucket configured, sharing disabled")
	}

	userService := services.NewUserService(userRepo, gate, clock)
	streakService := services.NewStreakService(streakRepo, feed, clock, loc)
	prayerService := services.NewPrayerService(prayerRepo, feed, clock)
	checklistService := services.NewChecklistService(checklistRepo, feed, clock)
	reflectionService := services.NewReflectionService(reflectionRepo, feed, clock)
	inspirationService := services.NewInspirationService(inspirationRepo, feed, shareService, clock)

	if cfg.APNs.Enabled {
		notifier, err := services.NewAPNsNotifier(cfg.APNs)
		if err != nil {
			return fmt.Errorf("failed to create push notifier: %w", err)
		}
		reminders := services.NewReminderService(streakRepo, notifier, clock, loc, cfg.APNs.Interval)
		go reminders.Run(ctx)
	}

	// Initialize handlers
	h := routeHandlers{
		users:        handlers.NewUserHandler(userService),
		streak:       handlers.NewStreakHandler(streakService, loc),
		prayers:      handlers.NewPrayerHandler(prayerService),
		checklist:    handlers.NewChecklistHandler(checklistService),
		reflections:  handlers.NewReflectionHandler(reflectionService),
		inspirations: handlers.NewInspirationHandler(inspirationService),
		share:        handlers.NewShareHandler(shareService),
		ws: handlers.NewWebSocketHandler(wsHub, gate, map[string]services.Subscribable{
			"streak":       streakService,
			"prayers":      prayerService,
			"checklist":    checklistService,
			"reflections":  reflectionService,
			"inspirations": inspirationService,
		}),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(h, gate),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

type routeHandlers struct {
	users        *handlers.UserHandler
	streak       *handlers.StreakHandler
	prayers      *handlers.PrayerHandler
	checklist    *handlers.ChecklistHandler
	reflections  *handlers.ReflectionHandler
	inspirations *handlers.InspirationHandler
	share        *handlers.ShareHandler
	ws           *handlers.WebSocketHandler
}

func newRouter(h routeHandlers, gate middleware.SessionResolver) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", h.users.SignUp)
		r.Post("/auth/signin", h.users.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(gate))
			r.Post("/auth/signout", h.users.SignOut)
			r.Get("/me", h.users.Me)
			r.Put("/me/push-token", h.users.UpdatePushToken)

			r.Get("/streak", h.streak.GetStreak)
			r.Post("/streak/log", h.streak.LogStreak)

			r.Get("/prayers", h.prayers.ListPrayers)
			r.Post("/prayers", h.prayers.AddPrayer)

			r.Get("/checklist", h.checklist.GetChecklist)
			r.Post("/checklist/{item_id}/toggle", h.checklist.ToggleItem)

			r.Get("/reflections", h.reflections.ListReflections)
			r.Post("/reflections", h.reflections.AddReflection)

			r.Get("/inspirations", h.inspirations.ListInspirations)
			r.Post("/inspirations", h.inspirations.AddInspiration)
			r.Patch("/inspirations/{inspiration_id}", h.inspirations.UpdateInspiration)
			r.Post("/inspirations/{inspiration_id}/share", h.inspirations.ShareInspiration)

			r.Post("/share", h.share.Share)
		})
	})

	// WebSocket route
	r.Get("/ws", h.ws.HandleWebSocket)

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
