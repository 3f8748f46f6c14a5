// Package gateway exposes the risk engine over HTTP, SMTP and the command line.
package gateway

import (
	"context"
	"errors"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/metrics"
	"github.com/mikey/email-risk/internal/ports"
	"go.uber.org/zap"
)

const unknownClient = "unknown"

type validateRequest struct {
	Email string `json:"email" validate:"required,max=320"`
}

type errorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}

// HTTPConfig holds the HTTP gateway settings
type HTTPConfig struct {
	ListenAddress     string
	TrustProxyHeaders bool
	RequestTimeout    time.Duration
	AllowedOrigins    []string
}

// HTTPGateway serves POST /v1/email/validate
type HTTPGateway struct {
	engine   ports.Evaluator
	logger   *zap.Logger
	cfg      HTTPConfig
	app      *fiber.App
	validate *validator.Validate
}

// NewHTTPGateway creates a new HTTP gateway
func NewHTTPGateway(engine ports.Evaluator, logger *zap.Logger, cfg HTTPConfig) *HTTPGateway {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	g := &HTTPGateway{
		engine:   engine,
		logger:   logger,
		cfg:      cfg,
		validate: validator.New(),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code, message := fiber.StatusInternalServerError, "internal server error"
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code, message = fe.Code, strings.ToLower(fe.Message)
			}
			return c.Status(code).JSON(errorResponse{Error: message})
		},
	})

	corsCfg := cors.Config{
		AllowMethods:  "POST,GET,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: "X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset,Retry-After",
	}
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = strings.Join(cfg.AllowedOrigins, ",")
	}
	app.Use(cors.New(corsCfg))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Post("/v1/email/validate", g.handleValidate)

	g.app = app
	return g
}

// App exposes the underlying fiber application
func (g *HTTPGateway) App() *fiber.App {
	return g.app
}

// Start starts the HTTP gateway
func (g *HTTPGateway) Start() error {
	ln, err := net.Listen("tcp", g.cfg.ListenAddress)
	if err != nil {
		return err
	}

	g.logger.Info("HTTP gateway starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := g.app.Listener(ln); err != nil {
			g.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the HTTP gateway
func (g *HTTPGateway) Stop() error {
	return g.app.ShutdownWithTimeout(10 * time.Second)
}

// handleValidate charges the client before reading the body, so malformed
// requests count toward the limit and carry the rate headers too
func (g *HTTPGateway) handleValidate(c *fiber.Ctx) error {
	clientIP := g.clientIP(c)

	rate := g.engine.Admit(c.UserContext(), clientIP)
	setRateHeaders(c, rate)
	if !rate.Allowed {
		retryAfter := resetSeconds(rate.ResetIn)
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
		return c.Status(fiber.StatusTooManyRequests).JSON(errorResponse{
			Error:             "rate limit exceeded",
			RetryAfterSeconds: retryAfter,
		})
	}

	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := g.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: validationMessage(err)})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), g.cfg.RequestTimeout)
	defer cancel()

	verdict, err := g.engine.Assess(ctx, req.Email, clientIP)
	if err != nil {
		g.logger.Error("Failed to evaluate email", zap.String("client", clientIP), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal server error"})
	}

	return c.JSON(verdict)
}

// clientIP picks the caller address. Proxy headers are consulted first when
// trusted, in the order X-Forwarded-For, X-Real-IP, CF-Connecting-IP.
func (g *HTTPGateway) clientIP(c *fiber.Ctx) string {
	if g.cfg.TrustProxyHeaders {
		if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		for _, header := range []string{"X-Real-IP", "CF-Connecting-IP"} {
			if ip := strings.TrimSpace(c.Get(header)); ip != "" {
				return ip
			}
		}
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return unknownClient
}

func setRateHeaders(c *fiber.Ctx, rate core.RateDecision) {
	if rate.Limit <= 0 {
		return
	}
	c.Set("X-RateLimit-Limit", strconv.Itoa(rate.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(rate.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetSeconds(rate.ResetIn), 10))
}

// resetSeconds rounds a reset interval up to whole seconds
func resetSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "required":
			return "email is required"
		case "max":
			return "email is too long"
		}
	}
	return "invalid request"
}
