// internal/server/server.go
package server

import (
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"comms-portal/internal/approval"
	"comms-portal/internal/common/config"
	"comms-portal/internal/common/errors"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/common/observability"
	"comms-portal/internal/intake"
	"comms-portal/internal/ministry"
	"comms-portal/internal/search"
)

var errSearchDisabled = stderrors.New("search is not enabled")

// Server assembles the HTTP surface of the portal: the public intake
// endpoints plus the authenticated moderation endpoints.
type Server struct {
	app       *fiber.App
	intake    *intake.Service
	directory *ministry.Directory
	engine    *approval.Engine
	search    *search.Index
	auth      tokenIntrospector
	db        *sql.DB
	redis     *redis.Client
	obs       *observability.Observability
	logger    logger.Logger
}

// Deps carries everything the server wires into its routes.
type Deps struct {
	Intake    *intake.Service
	Directory *ministry.Directory
	Engine    *approval.Engine
	Search    *search.Index
	Auth      tokenIntrospector
	DB        *sql.DB
	Redis     *redis.Client
	Obs       *observability.Observability
	Logger    logger.Logger
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Millisecond,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if stderrors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fiber.Map{
					"code":    "HTTP_ERROR",
					"message": fe.Message,
				}})
			}
			return writeError(c, errors.Normalize(err))
		},
	})

	s := &Server{
		app:       app,
		intake:    deps.Intake,
		directory: deps.Directory,
		engine:    deps.Engine,
		search:    deps.Search,
		auth:      deps.Auth,
		db:        deps.DB,
		redis:     deps.Redis,
		obs:       deps.Obs,
		logger:    deps.Logger.WithFields(map[string]interface{}{"component": "http"}),
	}

	app.Use(recover.New())
	app.Use(requestLogger(s.logger, s.obs))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealthz)
	s.app.Post("/announcements", s.handleSubmit)
	s.app.Get("/ministries", s.handleListMinistries)

	admin := s.app.Group("/admin", requireAuth(s.auth, s.logger))
	admin.Get("/approvals", s.handleListApprovals)
	admin.Post("/approvals", s.handleApprovalAction)
	admin.Get("/approvals/counts", s.handleCounts)
	admin.Get("/approvals/search", s.handleSearch)
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen(address string) error {
	s.logger.Info("http server listening", map[string]interface{}{
		"address": address,
	})
	return s.app.Listen(address)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
