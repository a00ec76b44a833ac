// Package httpapi serves the Slack Events API over HTTP, the alternative to
// Socket Mode for deployments that can receive inbound traffic.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/zulandar/switchboard/internal/router"
	"github.com/zulandar/switchboard/internal/slackbot"
)

// Handler receives converted inbound events. Satisfied by the router's
// Dispatcher.
type Handler interface {
	Handle(ctx context.Context, raw router.RawEvent)
}

// Server verifies, parses, and dispatches Events API requests.
type Server struct {
	engine        *gin.Engine
	handler       Handler
	signingSecret string
	out           io.Writer
}

// ServerOpts holds parameters for creating a Server.
type ServerOpts struct {
	Handler       Handler
	SigningSecret string
	Out           io.Writer // defaults to os.Stdout
}

// NewServer creates a Server with its routes registered.
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("httpapi: handler is required")
	}
	if opts.SigningSecret == "" {
		return nil, fmt.Errorf("httpapi: signing secret is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:        engine,
		handler:       opts.Handler,
		signingSecret: opts.SigningSecret,
		out:           out,
	}
	engine.POST("/slack/events", s.handleEvents)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s, nil
}

// Router returns the HTTP handler, for tests and custom servers.
func (s *Server) Router() http.Handler {
	return s.engine
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	fmt.Fprintf(s.out, "httpapi: listening on %s\n", addr)
	if err := s.engine.Run(addr); err != nil {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// handleEvents verifies the request signature, answers URL verification
// challenges, and dispatches callback events. Dispatch is asynchronous:
// Slack expects a fast 200 and retries slow responses.
func (s *Server) handleEvents(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	verifier, err := slackapi.NewSecretsVerifier(c.Request.Header, s.signingSecret)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		log.Printf("httpapi: signature verification failed: %v", err)
		c.Status(http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		log.Printf("httpapi: parse event: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, challenge.Challenge)

	case slackevents.CallbackEvent:
		switch ev := event.InnerEvent.Data.(type) {
		case *slackevents.MessageEvent:
			go s.handler.Handle(context.Background(), slackbot.MessageRawEvent(ev))
		case *slackevents.AppMentionEvent:
			go s.handler.Handle(context.Background(), slackbot.MentionRawEvent(ev))
		}
		c.Status(http.StatusOK)

	default:
		c.Status(http.StatusOK)
	}
}
