package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/campaign-briefing/internal/pipeline"
	"github.com/jonathan/campaign-briefing/internal/types"
)

const (
	kindArticles = "articles"
	kindDeepDive = "deep_dive"

	// maxMetricsBodyBytes bounds the deep-dive request body.
	maxMetricsBodyBytes = 1 << 20

	cacheHeader = "X-Cache"
)

func articlesCacheKey(issue string) string {
	return "articles:" + strings.ToLower(issue)
}

func deepDiveCacheKey(category types.Category, metrics types.ExpandedMetrics) (string, error) {
	canonical, err := json.Marshal(metrics)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return "deep-dive:" + string(category) + ":" + hex.EncodeToString(sum[:]), nil
}

// cached returns a stored response body and records the lookup.
func (s *Server) cached(kind, key string) ([]byte, bool) {
	if v, ok := s.cache.Get(key); ok {
		if body, ok := v.([]byte); ok {
			s.metrics.cacheLookups.WithLabelValues(kind, "hit").Inc()
			return body, true
		}
	}
	s.metrics.cacheLookups.WithLabelValues(kind, "miss").Inc()
	return nil, false
}

// store encodes result and caches it for ttl.
func (s *Server) store(key string, result any, ttl time.Duration) ([]byte, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, body, ttl)
	return body, nil
}

// failure logs a pipeline error and writes the mapped response.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, kind string, err error) {
	status := HTTPStatus(err)
	s.metrics.pipelineErrors.WithLabelValues(kind, ErrorKind(err)).Inc()

	log := s.requestLogger(r)
	if status >= http.StatusInternalServerError {
		log.Error("briefing failed", "kind", kind, "error_kind", ErrorKind(err), "error", err)
	} else {
		log.Warn("briefing rejected", "kind", kind, "error", err)
	}
	s.errorResponse(w, status, publicMessage(err))
}

// handleArticles handles GET /issues/{issue}/articles
func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	issue := strings.TrimSpace(r.PathValue("issue"))
	if issue == "" {
		s.failure(w, r, kindArticles, &ErrValidation{Field: "issue", Message: "must not be empty"})
		return
	}

	key := articlesCacheKey(issue)
	if body, ok := s.cached(kindArticles, key); ok {
		w.Header().Set(cacheHeader, "HIT")
		s.rawJSONResponse(w, http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.briefer.TopicBriefing(ctx, issue)
	if err != nil {
		s.failure(w, r, kindArticles, err)
		return
	}

	body, err := s.store(key, result, s.articlesTTL)
	if err != nil {
		s.failure(w, r, kindArticles, err)
		return
	}
	w.Header().Set(cacheHeader, "MISS")
	s.rawJSONResponse(w, http.StatusOK, body)
}

// handleArticlesStream handles GET /issues/{issue}/articles/stream with SSE progress
func (s *Server) handleArticlesStream(w http.ResponseWriter, r *http.Request) {
	issue := strings.TrimSpace(r.PathValue("issue"))
	if issue == "" {
		s.failure(w, r, kindArticles, &ErrValidation{Field: "issue", Message: "must not be empty"})
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	key := articlesCacheKey(issue)
	if body, ok := s.cached(kindArticles, key); ok {
		sse.WriteComplete(json.RawMessage(body))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.briefer.TopicBriefingWithProgress(ctx, issue, func(event pipeline.ProgressEvent) {
		if err := sse.WriteProgress(event); err != nil {
			s.requestLogger(r).Debug("writing progress event", "error", err)
		}
	})
	if err != nil {
		s.metrics.pipelineErrors.WithLabelValues(kindArticles, ErrorKind(err)).Inc()
		s.requestLogger(r).Error("streamed briefing failed", "error_kind", ErrorKind(err), "error", err)
		sse.WriteError(publicMessage(err))
		return
	}

	if _, err := s.store(key, result, s.articlesTTL); err != nil {
		s.requestLogger(r).Warn("caching streamed result", "error", err)
	}
	sse.WriteComplete(result)
}

// handleDeepDive handles POST /deep-dive/{category}
func (s *Server) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	category, err := types.ParseCategory(r.PathValue("category"))
	if err != nil {
		s.failure(w, r, kindDeepDive, &ErrValidation{Field: "category", Message: err.Error()})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMetricsBodyBytes)
	var metrics types.ExpandedMetrics
	if err := json.NewDecoder(r.Body).Decode(&metrics); err != nil {
		msg := "invalid JSON body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		s.failure(w, r, kindDeepDive, &ErrValidation{Field: "body", Message: msg})
		return
	}

	key, err := deepDiveCacheKey(category, metrics)
	if err != nil {
		s.failure(w, r, kindDeepDive, err)
		return
	}
	if body, ok := s.cached(kindDeepDive, key); ok {
		w.Header().Set(cacheHeader, "HIT")
		s.rawJSONResponse(w, http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.briefer.DeepDive(ctx, metrics, category)
	if err != nil {
		s.failure(w, r, kindDeepDive, err)
		return
	}

	body, err := s.store(key, result, s.deepDiveTTL)
	if err != nil {
		s.failure(w, r, kindDeepDive, err)
		return
	}
	w.Header().Set(cacheHeader, "MISS")
	s.rawJSONResponse(w, http.StatusOK, body)
}
