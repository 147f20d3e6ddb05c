package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/agenthands/reelgraph/internal/core"
	"github.com/agenthands/reelgraph/internal/core/explain"
	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Recommender *core.Recommender
}

func NewServer(rec *core.Recommender) *Server {
	return &Server{Recommender: rec}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	// Titles may contain an escaped slash, e.g. "Face%2FOff (1997)".
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.Use(gin.Recovery(), RequestID(), AccessLog(), Metrics())

	r.GET("/health", s.Health)
	r.GET("/recommend/:userId", s.RecommendForUser)
	r.GET("/recommend/by-movie/:title", s.RecommendForMovie)
	r.GET("/movies/search", s.SearchMovies)
	r.GET("/user/:userId/rated", s.RatedMovies)
	r.GET("/graph/path/:source/:target", s.GraphPath)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) Health(c *gin.Context) {
	d := s.Recommender.Diagnostics()
	status := "ok"
	if !d.ModelLoaded || !d.GraphReachable {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"model_loaded":    d.ModelLoaded,
		"graph_reachable": d.GraphReachable,
	})
}

func (s *Server) RecommendForUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID", "code": "bad_request"})
		return
	}
	n, ok := queryInt(c, "n")
	if !ok {
		return
	}

	rec, err := s.Recommender.RecommendForUser(c.Request.Context(), userID, n)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) RecommendForMovie(c *gin.Context) {
	n, ok := queryInt(c, "n")
	if !ok {
		return
	}

	rec, err := s.Recommender.RecommendForMovie(c.Request.Context(), c.Param("title"), n)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) SearchMovies(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	matches, err := s.Recommender.SearchTitles(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": c.Query("q"), "results": matches})
}

func (s *Server) RatedMovies(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID", "code": "bad_request"})
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	ratings, err := s.Recommender.RatedMovies(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "rated_movies": ratings})
}

func (s *Server) GraphPath(c *gin.Context) {
	path, err := s.Recommender.ExplainPath(c.Request.Context(), c.Param("source"), c.Param("target"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":      path.Source(),
		"target":      path.Target(),
		"hops":        path.Hops(),
		"nodes":       path.Nodes,
		"edges":       path.Edges,
		"explanation": explain.Render(path),
	})
}

// queryInt reads an optional positive integer query parameter. Absent means
// 0, which the recommender maps to its default. It writes a 400 and returns
// false on a malformed value.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter", "code": "bad_request"})
		return 0, false
	}
	return v, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownUser),
		errors.Is(err, model.ErrUnknownMovie),
		errors.Is(err, model.ErrNoConnection):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAmbiguousTitle):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrGraphUnavailable),
		errors.Is(err, model.ErrModelNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "Internal error"
	}
	c.JSON(status, gin.H{"error": msg, "code": model.Code(err)})
}
