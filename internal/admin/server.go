package admin

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"altbot/internal/execution"
	"altbot/internal/infra"
	"altbot/internal/maintenance"
	"altbot/internal/risk"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// RiskControl is the operator-facing side of the risk gate.
type RiskControl interface {
	SetBuyEnabled(enabled bool)
	Replenish(n int64)
	SetMaxOpenIntents(n int64) error
	CancelIntent() bool
	State() risk.State
}

// Movers ranks symbols by trailing 1h return.
type Movers interface {
	TopMovers(n int) []maintenance.Mover
}

// QueueStats reports the intent queue.
type QueueStats interface {
	Len() int
	Cap() int
	Enqueued() uint64
	Dropped() uint64
}

// Deps are read by the handlers. Risk is required; the rest may be nil.
type Deps struct {
	Risk    RiskControl
	Metrics *infra.Metrics
	Queue   QueueStats
	Events  *execution.Tracker
	Movers  Movers
}

const (
	defaultMovers = 10
	maxMovers     = 500
)

type buyRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type budgetRequest struct {
	Amount *int64 `json:"amount" validate:"required,gt=0"`
}

// Zero is a valid max: it blocks every emission.
type maxOpenRequest struct {
	Max *int64 `json:"max" validate:"required,gte=0"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// QueueStatus is the dispatcher part of /status.
type QueueStatus struct {
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
	Enqueued uint64 `json:"enqueued"`
	Dropped  uint64 `json:"dropped"`
}

// Status is the /status body.
type Status struct {
	UptimeSecs float64                    `json:"uptime_secs"`
	Risk       risk.State                 `json:"risk"`
	Metrics    *infra.MetricsSnapshot     `json:"metrics,omitempty"`
	Queue      *QueueStatus               `json:"queue,omitempty"`
	Events     *execution.TrackerSnapshot `json:"events,omitempty"`
}

// Server is the risk-control HTTP surface. Handlers only touch atomics, so
// they never contend with the hot thread.
type Server struct {
	deps     Deps
	app      *fiber.App
	validate *validator.Validate
	started  time.Time
}

// New builds the fiber app and its routes.
func New(deps Deps) (*Server, error) {
	if deps.Risk == nil {
		return nil, errors.New("admin: risk control is required")
	}
	s := &Server{
		deps:     deps,
		validate: validator.New(),
		started:  time.Now(),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "altbot-admin",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			level := slog.LevelWarn
			if code >= fiber.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.Log(c.UserContext(), level, "Admin request error",
				slog.String("path", c.Path()),
				slog.String("method", c.Method()),
				slog.Int("status", code),
				slog.Any("error", err),
			)
			return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
		},
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/status", s.status)
	s.app.Get("/movers", s.movers)

	r := s.app.Group("/risk")
	r.Post("/buy", s.setBuy)
	r.Post("/budget", s.replenish)
	r.Post("/max-open", s.setMaxOpen)

	s.app.Post("/intents/cancel", s.cancelIntent)
}

// App exposes the fiber app (tests drive it with app.Test).
func (s *Server) App() *fiber.App { return s.app }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	slog.Info("Admin server started", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Admin server stopping...")
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return nil
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		slog.Debug("HTTP request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("latency", time.Since(start)),
		)
		return err
	}
}

func (s *Server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request: malformed JSON")
	}
	if err := s.validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *Server) status(c *fiber.Ctx) error {
	st := Status{
		UptimeSecs: time.Since(s.started).Seconds(),
		Risk:       s.deps.Risk.State(),
	}
	if s.deps.Metrics != nil {
		m := s.deps.Metrics.Snapshot()
		st.Metrics = &m
	}
	if s.deps.Queue != nil {
		st.Queue = &QueueStatus{
			Depth:    s.deps.Queue.Len(),
			Capacity: s.deps.Queue.Cap(),
			Enqueued: s.deps.Queue.Enqueued(),
			Dropped:  s.deps.Queue.Dropped(),
		}
	}
	if s.deps.Events != nil {
		ev := s.deps.Events.Snapshot()
		st.Events = &ev
	}
	return c.JSON(st)
}

func (s *Server) setBuy(c *fiber.Ctx) error {
	var req buyRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	s.deps.Risk.SetBuyEnabled(*req.Enabled)
	slog.Warn("RISK_BUY_TOGGLED", slog.Bool("enabled", *req.Enabled), slog.String("ip", c.IP()))
	return c.JSON(s.deps.Risk.State())
}

func (s *Server) replenish(c *fiber.Ctx) error {
	var req budgetRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	s.deps.Risk.Replenish(*req.Amount)
	slog.Info("RISK_BUDGET_REPLENISHED", slog.Int64("amount", *req.Amount))
	return c.JSON(s.deps.Risk.State())
}

func (s *Server) setMaxOpen(c *fiber.Ctx) error {
	var req maxOpenRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := s.deps.Risk.SetMaxOpenIntents(*req.Max); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	slog.Info("RISK_MAX_OPEN_CHANGED", slog.Int64("max", *req.Max))
	return c.JSON(s.deps.Risk.State())
}

// cancelIntent releases one open-intent slot, for intents the operator
// cancelled at the venue.
func (s *Server) cancelIntent(c *fiber.Ctx) error {
	released := s.deps.Risk.CancelIntent()
	if !released {
		return fiber.NewError(fiber.StatusConflict, "no open intents")
	}
	slog.Info("OPEN_INTENT_CANCELLED")
	return c.JSON(s.deps.Risk.State())
}

func (s *Server) movers(c *fiber.Ctx) error {
	if s.deps.Movers == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "maintenance task not running")
	}
	n := defaultMovers
	if q := c.Query("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "n must be a positive integer")
		}
		n = min(v, maxMovers)
	}
	return c.JSON(s.deps.Movers.TopMovers(n))
}
