package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/agrimate/internal/conversation"
	"github.com/sells-group/agrimate/internal/llm"
	"github.com/sells-group/agrimate/internal/metrics"
	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/resilience"
	"github.com/sells-group/agrimate/internal/weather"
)

const msgRequestFailed = "Failed to process your request."

type chatter interface {
	Chat(ctx context.Context, message string, history []model.ChatMessage) (llm.Result, error)
}

type forecaster interface {
	Forecast(ctx context.Context, q weather.Query) (*model.Weather, error)
}

type pricer interface {
	Prices(ctx context.Context, q model.MandiQuery) *model.MandiResponse
}

type analyzer interface {
	Analyze(ctx context.Context, in model.FarmInput) *model.YieldAnalysis
}

// api holds the handlers' dependencies. history may be nil, in which case
// the conversation routes are not mounted.
type api struct {
	chat            chatter
	weather         forecaster
	mandi           pricer
	yield           analyzer
	history         *conversation.Store
	weatherMaxAge   int
	defaultMandiLim int
}

// routerOptions configures buildRouter.
type routerOptions struct {
	CORSOrigins []string
	MetricsPath string // empty disables /metrics
}

// buildRouter mounts every route at the root and again under /api.
func buildRouter(a *api, opts routerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, promhttp.Handler())
	}

	routes := func(r chi.Router) {
		r.Post("/chat", a.handleChat)
		r.Get("/weather", a.handleWeather)
		r.Get("/mandi", a.handleMandi)
		r.Post("/yield/analyze", a.handleYield)
		if a.history != nil {
			r.Route("/conversations", a.conversationRoutes)
		}
	}
	r.Group(routes)
	r.Route("/api", routes)

	return r
}

func (a *api) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message        any                 `json:"message"`
		History        []model.ChatMessage `json:"history"`
		ConversationID string              `json:"conversationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		zap.L().Error("chat: decode request", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgRequestFailed)
		return
	}
	message, ok := body.Message.(string)
	if !ok || strings.TrimSpace(message) == "" {
		writeError(w, http.StatusBadRequest, llm.MsgMessageRequired)
		return
	}

	history := body.History
	if body.ConversationID != "" && a.history != nil {
		conv, err := a.history.Get(body.ConversationID)
		if err != nil {
			writeError(w, http.StatusNotFound, msgConversationNotFound)
			return
		}
		if len(history) == 0 {
			history = conv.ChatMessages()
		}
		a.record(r.Context(), body.ConversationID, model.Message{Role: model.RoleUser, Content: message})
	}

	res, err := a.chat.Chat(r.Context(), message, history)
	if err != nil {
		status, msg := chatErrorStatus(err)
		if body.ConversationID != "" && a.history != nil {
			a.record(r.Context(), body.ConversationID, model.Message{Role: model.RoleAssistant, Content: msg, Error: true})
		}
		writeError(w, status, msg)
		return
	}

	if body.ConversationID != "" && a.history != nil {
		a.record(r.Context(), body.ConversationID, model.Message{Role: model.RoleAssistant, Content: res.Reply})
	}
	writeJSON(w, http.StatusOK, model.ChatReply{Reply: res.Reply, Provider: res.Provider})
}

// chatErrorStatus maps a chain failure to an HTTP status and client message.
func chatErrorStatus(err error) (int, string) {
	var exhausted *llm.ExhaustedError
	switch {
	case errors.Is(err, llm.ErrMessageRequired):
		return http.StatusBadRequest, llm.MsgMessageRequired
	case resilience.IsConfigError(err):
		return http.StatusInternalServerError, err.Error()
	case errors.As(err, &exhausted):
		return http.StatusBadGateway, exhausted.Error()
	default:
		zap.L().Error("chat: request failed", zap.Error(err))
		return http.StatusInternalServerError, msgRequestFailed
	}
}

func (a *api) record(ctx context.Context, id string, m model.Message) {
	if _, err := a.history.AddMessage(ctx, id, m); err != nil {
		zap.L().Warn("chat: record message", zap.String("conversation", id), zap.Error(err))
	}
}

func (a *api) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	forecast, err := a.weather.Forecast(r.Context(), weather.Query{
		Lat:  q.Get("lat"),
		Lon:  q.Get("lon"),
		City: q.Get("city"),
	})
	if err != nil {
		if resilience.IsConfigError(err) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, weather.MsgFetchFailed)
		return
	}
	if a.weatherMaxAge > 0 {
		w.Header().Set("Cache-Control", weather.CacheControl(a.weatherMaxAge))
	}
	writeJSON(w, http.StatusOK, forecast)
}

func (a *api) handleMandi(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, a.mandi.Prices(r.Context(), model.MandiQuery{
		Commodity: q.Get("commodity"),
		State:     q.Get("state"),
		Market:    q.Get("market"),
		District:  q.Get("district"),
		Limit:     intParam(q.Get("limit"), a.defaultMandiLim),
		Offset:    intParam(q.Get("offset"), 0),
	}))
}

func (a *api) handleYield(w http.ResponseWriter, r *http.Request) {
	var in model.FarmInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if strings.TrimSpace(in.Crop) == "" {
		writeError(w, http.StatusBadRequest, "Crop is required.")
		return
	}
	writeJSON(w, http.StatusOK, a.yield.Analyze(r.Context(), in))
}

// accessLog logs one line per request and counts it by route pattern.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intParam(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
