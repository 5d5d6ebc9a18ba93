// Package server exposes the conversation over HTTP: one speak endpoint that
// claims the session, runs a turn and answers with what the bot says next.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Armoredbrain/RoBoTo/bot"
	"github.com/Armoredbrain/RoBoTo/sessionstore"
)

// StartFlow is where fresh sessions begin.
const StartFlow = "main"

type Server struct {
	log      *slog.Logger
	runner   *bot.Runner
	flows    bot.FlowLoader
	sessions sessionstore.Store
}

func New(log *slog.Logger, runner *bot.Runner, flows bot.FlowLoader, sessions sessionstore.Store) *Server {
	return &Server{log: log, runner: runner, flows: flows, sessions: sessions}
}

// Routes mounts the API on a gin engine.
func (s *Server) Routes(engine *gin.Engine) {
	api := engine.Group("/api")
	api.POST("/speak", s.speak)
	api.POST("/speak/:sessionId", s.speak)
}

type speakUser struct {
	Username     string `json:"username"`
	UserNeoID    int    `json:"userNeoId"`
	NeoBotID     int    `json:"neoBotId"`
	ComputerName string `json:"computerName"`
	Platform     string `json:"platform"`
}

type speakRequest struct {
	Say  bot.UserSay `json:"say" binding:"required"`
	User *speakUser  `json:"user"`
}

type sessionView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type speakResponse struct {
	Session sessionView `json:"session"`
	Say     bot.Say     `json:"say"`
}

// speak runs one conversation turn. The status gate lives here: the session
// is claimed BUSY before the runner touches it and restored AVAILABLE after,
// unless the turn closed the conversation.
func (s *Server) speak(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token := bearerToken(c)

	session, status := s.obtainSession(c, &req)
	if session == nil {
		return
	}

	flow, err := s.flows.Load(session.Flow)
	if err != nil {
		s.fail(c, session, err)
		return
	}

	session, say, err := s.runner.Run(c.Request.Context(), session, flow, req.Say, token)
	if err != nil {
		s.fail(c, session, err)
		return
	}

	if session.Status != bot.StatusClosed {
		session.Status = bot.StatusAvailable
		if err := s.sessions.SetStatus(c.Request.Context(), session.ID, bot.StatusAvailable); err != nil {
			s.log.Error("restoring session status", "sessionId", session.ID, "error", err)
		}
	} else if err := s.sessions.SetStatus(c.Request.Context(), session.ID, bot.StatusClosed); err != nil {
		s.log.Error("closing session", "sessionId", session.ID, "error", err)
	}

	c.JSON(status, speakResponse{
		Session: sessionView{ID: session.ID, Status: session.Status.String()},
		Say:     say,
	})
}

// obtainSession claims an existing session or creates a fresh one on the
// start flow. A nil return means the response has already been written.
func (s *Server) obtainSession(c *gin.Context, req *speakRequest) (*bot.Session, int) {
	ctx := c.Request.Context()
	if id := c.Param("sessionId"); id != "" {
		session, err := s.sessions.Claim(ctx, id)
		switch {
		case errors.Is(err, sessionstore.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return nil, 0
		case errors.Is(err, sessionstore.ErrUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "session is busy or closed"})
			return nil, 0
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return nil, 0
		}
		return session, http.StatusOK
	}

	session := &bot.Session{
		Status:    bot.StatusBusy,
		Flow:      StartFlow,
		NextStep:  bot.Coord{Flow: StartFlow},
		Variables: map[string]any{},
	}
	if user := req.User; user != nil {
		session.Username = user.Username
		session.UserNeoID = user.UserNeoID
		session.NeoBotID = user.NeoBotID
		session.ComputerName = user.ComputerName
		session.Platform = user.Platform
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, 0
	}
	return session, http.StatusCreated
}

// fail answers a fatal turn error, releasing the session so the user can
// retry. Fresh sessions are persisted BUSY at creation, so they need the
// restore just as much as claimed ones.
func (s *Server) fail(c *gin.Context, session *bot.Session, err error) {
	s.log.Error("turn failed", "sessionId", session.ID, "error", err)
	if session.Status != bot.StatusClosed {
		if restoreErr := s.sessions.SetStatus(context.WithoutCancel(c.Request.Context()), session.ID, bot.StatusAvailable); restoreErr != nil {
			s.log.Error("restoring session status", "sessionId", session.ID, "error", restoreErr)
		}
		session.Status = bot.StatusAvailable
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"session": sessionView{ID: session.ID, Status: session.Status.String()},
		"error":   err.Error(),
	})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}
