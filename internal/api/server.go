// Package api serves the agent's command surface over a local HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devalexanderdaza/antigravity-agent/internal/logging"
	"github.com/devalexanderdaza/antigravity-agent/internal/process"
	"github.com/devalexanderdaza/antigravity-agent/internal/snapshots"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
)

// Switcher runs the account workflows.
type Switcher interface {
	SwitchTo(ctx context.Context, accountID string) (*switcher.Trace, error)
	SignOutAndRelaunch(ctx context.Context) (*switcher.Trace, error)
	Capture(ctx context.Context, accountID string) (*switcher.CaptureResult, error)
}

// Catalog lists and deletes snapshots.
type Catalog interface {
	List() ([]snapshots.Entry, error)
	Delete(accountID string) error
}

// Processes inspects and stops Antigravity.
type Processes interface {
	Matching(ctx context.Context) ([]process.Matched, error)
	TerminateAll(ctx context.Context) (*process.TerminateReport, error)
}

// Launcher starts Antigravity.
type Launcher interface {
	Launch(ctx context.Context) (*process.LaunchDescriptor, error)
}

// Tray controls the tray icon.
type Tray interface {
	Enabled() (bool, error)
	Visible() bool
	Enable() error
	Disable() error
	Toggle() (bool, error)
}

// Deps are the collaborators behind the routes. Tray and Gatherer are
// optional; their routes are not registered when nil.
type Deps struct {
	Switcher  Switcher
	Catalog   Catalog
	Processes Processes
	Launcher  Launcher
	Tray      Tray
	Gatherer  prometheus.Gatherer
	Logger    logging.Logger
	// OnAccountsChanged is called after a route adds or removes a snapshot.
	OnAccountsChanged func()
}

// Server is the local control API.
type Server struct {
	app  *fiber.App
	deps Deps
}

// New builds the fiber app and registers every route.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.OnAccountsChanged == nil {
		deps.OnAccountsChanged = func() {}
	}

	app := fiber.New(fiber.Config{
		AppName:               "Antigravity Agent",
		DisableStartupMessage: true,
		UnescapePath:          true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler,
	})

	s := &Server{app: app, deps: deps}
	app.Use(recover.New())
	app.Use(s.logRequests)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	s.app.Get("/accounts", s.listAccounts)
	s.app.Post("/accounts/capture", s.captureAccount)
	s.app.Post("/accounts/:id/switch", s.switchAccount)
	s.app.Delete("/accounts/:id", s.deleteAccount)
	s.app.Post("/signout", s.signOut)

	s.app.Get("/process", s.processStatus)
	s.app.Post("/process/terminate", s.terminate)
	s.app.Post("/process/launch", s.launch)

	if s.deps.Tray != nil {
		s.app.Get("/tray", s.trayStatus)
		s.app.Post("/tray/:state", s.setTray)
	}

	if s.deps.Gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.deps.Logger.Infof(logging.TypeAPI, "local API listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	s.deps.Logger.Debugf(logging.TypeAPI, "%s %s %d %s", c.Method(), c.Path(), status, time.Since(start))
	return err
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, snapshots.ErrSnapshotNotFound),
		errors.Is(err, process.ErrNoProcessFound):
		return http.StatusNotFound
	case errors.Is(err, snapshots.ErrInvalidAccountID):
		return http.StatusBadRequest
	case errors.Is(err, switcher.ErrSwitchInProgress),
		errors.Is(err, switcher.ErrTargetRunning),
		errors.Is(err, switcher.ErrTargetStillRunning),
		errors.Is(err, switcher.ErrNoActiveIdentity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
