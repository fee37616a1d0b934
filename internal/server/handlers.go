package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/relevance"
	"github.com/spigell/hh-matcher/internal/store"
)

// MatchResponse is the body of a successful match call.
type MatchResponse struct {
	RunID   string                    `json:"run_id,omitempty"`
	Count   int                       `json:"count"`
	Results []relevance.ScoredPosting `json:"results"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) match(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "read request body: "+err.Error())
		return
	}

	req, err := relevance.DecodeRequest(body)
	if err != nil {
		sendInputError(c, err)
		return
	}

	ranked, err := s.engine.Match(req)
	if err != nil {
		if errors.Is(err, relevance.ErrInvalidInput) {
			sendInputError(c, err)
			return
		}
		_ = c.Error(err)
		sendError(c, http.StatusInternalServerError, ErrorCodeInternalError, "ranking failed")
		return
	}

	resp := MatchResponse{Count: len(ranked), Results: ranked}

	if s.runs != nil {
		run := store.NewRun(req.Skills, req.ExcludedSkills, ranked)
		if err := s.runs.SaveRun(c.Request.Context(), run); err != nil {
			// the ranking is still returned
			s.logger.Warn("saving run failed", zap.Error(err))
		} else {
			resp.RunID = run.ID.String()
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) listRuns(c *gin.Context) {
	limit := store.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			sendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", ErrorDetail{
				Field:   "limit",
				Message: "must be a positive integer",
				Code:    relevance.KindValue.String(),
			})
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		sendError(c, http.StatusInternalServerError, ErrorCodeInternalError, "listing runs failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

func (s *Server) getRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusNotFound, ErrorCodeRunNotFound, "Run '"+c.Param("id")+"' not found")
		return
	}

	run, err := s.runs.GetRun(c.Request.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		sendError(c, http.StatusNotFound, ErrorCodeRunNotFound, "Run '"+id.String()+"' not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		sendError(c, http.StatusInternalServerError, ErrorCodeInternalError, "loading run failed")
		return
	}

	c.JSON(http.StatusOK, run)
}
