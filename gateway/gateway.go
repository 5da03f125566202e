// Package gateway provides the supervisor HTTP service that fronts the
// conversational diagnostic assistant: every inbound turn passes the
// safety pipeline, is routed to the correct specialist backend and is
// persisted to the transcript store.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caremesh/medgate/pkg/backends"
	"github.com/caremesh/medgate/pkg/chat"
	"github.com/caremesh/medgate/pkg/guard"
	"github.com/caremesh/medgate/pkg/router"
	"github.com/caremesh/medgate/pkg/transcript"
)

// Gateway is the supervisor service. It owns the safety pipeline, the
// turn router and the transcript store; the downstream backends are
// opaque HTTP collaborators.
type Gateway struct {
	config    Config
	store     transcript.Store
	guardrail *guard.Orchestrator
	router    *router.Router
	logger    *zap.Logger
	server    *fiber.App
	done      chan struct{}
}

// New creates a Gateway and registers its routes.
func New(config Config, logger *zap.Logger) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store transcript.Store
	if config.DBPath != "" {
		var err error
		store, err = transcript.NewSQLiteStore(config.DBPath)
		if err != nil {
			return nil, err
		}
		logger.Info("using SQLite transcript store", zap.String("path", config.DBPath))
	} else {
		store = transcript.NewMemoryStore()
		logger.Info("using in-memory transcript store")
	}

	client := backends.NewRetryingClient(config.RequestTimeout, config.Retries, config.RetryBaseDelay, logger)
	text := backends.NewTextService(client, config.SkinAgentURL, config.OralAgentURL)
	vision := backends.NewVisionService(client, config.VisionAgentURL)
	report := backends.NewReportService(client, config.ReportAgentURL)

	g := &Gateway{
		config:    config,
		store:     store,
		guardrail: guard.NewOrchestrator(config.SecurityEnabled, nil, logger),
		router:    router.New(text, vision, report, store, logger),
		logger:    logger,
		done:      make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Post("/api/v1/turn", g.handleTurn)

	// Liveness probes carry no business logic.
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ready"})
	})

	app.Get("/metrics/security", g.handleSecurityMetrics)

	g.server = app

	go g.sweepLoop()

	return g, nil
}

// Run starts the gateway server on the configured listening address.
func (g *Gateway) Run() error {
	g.logger.Info("starting gateway server",
		zap.String("listen", g.config.ListenAddr),
		zap.Bool("security_enabled", g.config.SecurityEnabled),
	)

	return g.server.Listen(g.config.ListenAddr)
}

// Close shuts down the gateway and releases resources.
func (g *Gateway) Close() error {
	close(g.done)
	return g.store.Close()
}

// sweepLoop prunes empty rate-limit windows so the window map doesn't grow
// with every identity ever seen. Required for long-running deployments.
func (g *Gateway) sweepLoop() {
	ticker := time.NewTicker(g.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := g.guardrail.SweepRateWindows(); removed > 0 {
				g.logger.Debug("swept rate-limit windows", zap.Int("removed", removed))
			}
		case <-g.done:
			return
		}
	}
}

// handleTurn is the single business endpoint: validate the payload, run
// the safety pipeline, route to the text or image path and persist the
// exchange.
func (g *Gateway) handleTurn(c *fiber.Ctx) error {
	startTime := time.Now()

	var turn chat.Turn
	if err := c.BodyParser(&turn); err != nil {
		g.logger.Error("failed to parse turn payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{Error: "invalid request body"})
	}

	if err := validateTurn(&turn); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(chat.Err(turn.ConversationID, err.Error(), "validation", nil))
	}

	if turn.ConversationID == "" {
		turn.ConversationID = uuid.NewString()
	}

	ctx := c.Context()
	if _, err := g.store.GetOrCreate(ctx, turn.ConversationID); err != nil {
		return g.internalError(c, &turn, err)
	}

	g.logUserMessage(ctx, &turn)

	verdict := g.guardrail.Validate(turn.UserID, turn.Message, turn.Kind, turn.Specialty, turn.History)
	if !verdict.Allowed {
		g.router.MarkBlocked(ctx, turn.ConversationID)
		resp := chat.Err(turn.ConversationID, guard.Sanitize(verdict.Message), verdict.Category, verdict.Metadata)
		g.logBotMessage(ctx, &turn, resp.Response)
		g.logger.Info("turn blocked",
			zap.String("conversation_id", turn.ConversationID),
			zap.String("category", verdict.Category),
		)
		return c.JSON(resp)
	}

	resp, err := g.router.Route(ctx, &turn)
	if err != nil {
		var downstreamErr *backends.DownstreamError
		if errors.As(err, &downstreamErr) {
			g.logger.Error("downstream failure",
				zap.String("conversation_id", turn.ConversationID),
				zap.String("url", downstreamErr.URL),
				zap.Error(downstreamErr.Err),
			)
			resp := chat.Err(turn.ConversationID, downstreamErr.Error(), "downstream_error", nil)
			g.logBotMessage(ctx, &turn, resp.Response)
			return c.Status(fiber.StatusBadGateway).JSON(resp)
		}
		return g.internalError(c, &turn, err)
	}

	// Output-side cleanup applies only at this boundary, never to text
	// forwarded between internal services.
	resp.Response = g.guardrail.SanitizeOutput(resp.Response)

	g.logBotMessage(ctx, &turn, resp.Response)

	g.logger.Debug("turn completed",
		zap.String("conversation_id", turn.ConversationID),
		zap.String("response_type", resp.ResponseType),
		zap.Duration("duration", time.Since(startTime)),
	)

	return c.JSON(resp)
}

// internalError converts an unexpected failure into a generic reply; the
// original detail is logged server-side only.
func (g *Gateway) internalError(c *fiber.Ctx, turn *chat.Turn, err error) error {
	g.logger.Error("internal error handling turn",
		zap.String("conversation_id", turn.ConversationID),
		zap.Error(err),
	)
	resp := chat.Err(turn.ConversationID, "Internal server error", "internal_error", nil)
	g.logBotMessage(c.Context(), turn, resp.Response)
	return c.Status(fiber.StatusInternalServerError).JSON(resp)
}

// logUserMessage appends the inbound half of the turn to the transcript.
// Image turns record a placeholder text plus the image reference so the
// transcript stays a faithful, replayable log.
func (g *Gateway) logUserMessage(ctx context.Context, turn *chat.Turn) {
	entry := transcript.Entry{
		Sender: "user",
		UserID: turn.UserID,
		Text:   turn.Message,
	}
	if turn.Kind == chat.KindImage {
		entry.Text = "[Image sent]"
		entry.Image = turn.ImageRef
	}
	if err := g.store.AppendMessage(ctx, turn.ConversationID, entry); err != nil {
		g.logger.Warn("could not append user message",
			zap.String("conversation_id", turn.ConversationID), zap.Error(err))
	}
}

// logBotMessage appends the outbound half, including rejections and
// downstream failures, so the audit record stays complete.
func (g *Gateway) logBotMessage(ctx context.Context, turn *chat.Turn, text string) {
	err := g.store.AppendMessage(ctx, turn.ConversationID, transcript.Entry{
		Sender: "bot",
		UserID: turn.UserID,
		Text:   text,
	})
	if err != nil {
		g.logger.Warn("could not append bot message",
			zap.String("conversation_id", turn.ConversationID), zap.Error(err))
	}
}

func (g *Gateway) handleSecurityMetrics(c *fiber.Ctx) error {
	return c.JSON(g.guardrail.GetMetrics())
}
