package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docquery/pipeline"
	"docquery/session"
	"docquery/types"
)

type AnswerHandler struct {
	pipe     *pipeline.Pipeline
	sessions *session.Registry
	logger   *zap.Logger
}

func NewAnswerHandler(pipe *pipeline.Pipeline, sessions *session.Registry, logger *zap.Logger) *AnswerHandler {
	return &AnswerHandler{
		pipe:     pipe,
		sessions: sessions,
		logger:   logger,
	}
}

// HandleAnswer runs the full document-to-answer pipeline for one request.
func (h *AnswerHandler) HandleAnswer(c *fiber.Ctx) error {
	var params types.AnswerRequest
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	sess := h.sessions.Create(params.SessionID, len(params.Questions))
	start := time.Now()
	h.logger.Info("processing answer request",
		zap.String("session_id", sess.ID),
		zap.Int("documents", len(params.Documents)),
		zap.Int("questions", len(params.Questions)),
	)

	resp, err := h.pipe.Run(c.UserContext(), &params, sess.ID)
	if err != nil {
		h.sessions.Fail(sess.ID, err)
		h.logger.Error("request failed", zap.String("session_id", sess.ID), zap.Error(err))
		return err
	}

	h.sessions.Complete(sess.ID, time.Since(start))
	return c.JSON(resp)
}
