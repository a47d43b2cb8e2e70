// Package stubserver implements a deterministic OpenAI-compatible
// inference server for development and end-to-end testing. Identical
// requests always produce identical completions.
package stubserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"xloractl/pkg/types"
)

// Options configures the stub server mux.
type Options struct {
	// Model reported in responses when the request omits one.
	Model string
	// EnableCORS adds permissive CORS for browser-based clients.
	EnableCORS bool
	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
	// Logger for request logging. Disabled when nil.
	Logger *zerolog.Logger
}

func (o Options) maxBody() int64 {
	if o.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return o.MaxBodyBytes
}

func (o Options) model(requested string) string {
	if requested != "" {
		return requested
	}
	if o.Model != "" {
		return o.Model
	}
	return "default"
}

// NewMux builds the stub server handler.
func NewMux(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if opts.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}
	r.Use(metricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/v1/chat/completions", func(w http.ResponseWriter, req *http.Request) {
		var body types.ChatRequest
		if !decodeJSON(w, req, opts, &body) {
			return
		}
		if len(body.Messages) == 0 {
			writeJSONError(w, http.StatusBadRequest, "messages are required")
			return
		}
		prompt := body.Messages[len(body.Messages)-1].Content
		if strings.TrimSpace(prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "message content is required")
			return
		}
		logRequest(opts.Logger, req, "chat completion", body.Model)
		writeJSON(w, opts.Logger, types.ChatResponse{
			ID:     "chatcmpl-stub",
			Object: "chat.completion",
			Model:  opts.model(body.Model),
			Choices: []types.ChatChoice{{
				Message:      types.Message{Role: "assistant", Content: cannedText(prompt, body.MaxTokens)},
				FinishReason: "stop",
			}},
		})
	})

	r.Post("/v1/completions", func(w http.ResponseWriter, req *http.Request) {
		var body types.CompletionRequest
		if !decodeJSON(w, req, opts, &body) {
			return
		}
		if strings.TrimSpace(body.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		logRequest(opts.Logger, req, "text completion", body.Model)
		writeJSON(w, opts.Logger, types.CompletionResponse{
			ID:     "cmpl-stub",
			Object: "text_completion",
			Model:  opts.model(body.Model),
			Choices: []types.CompletionChoice{{
				Text:         cannedText(body.Prompt, body.MaxTokens),
				FinishReason: "stop",
			}},
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ListenAndServe runs the stub server until ctx is canceled, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, opts Options) error {
	srv := &http.Server{Addr: addr, Handler: NewMux(opts)}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// cannedText is the deterministic completion: the prompt echoed behind
// a fixed marker, capped to maxTokens whitespace-separated tokens.
func cannedText(prompt string, maxTokens int) string {
	words := strings.Fields("echo: " + prompt)
	if maxTokens > 0 && len(words) > maxTokens {
		words = words[:maxTokens]
	}
	return strings.Join(words, " ")
}

// decodeJSON enforces the Content-Type and body-size rules, then
// decodes the request body into out. Writes the error response and
// returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, opts Options, out any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, opts.maxBody())
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeJSON encodes v as the response body. An encode failure cannot
// be reported to the client (the 200 header is already committed), so
// it is only logged.
func writeJSON(w http.ResponseWriter, l *zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil && l != nil {
		l.Error().Err(err).Msg("encode response")
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func logRequest(l *zerolog.Logger, r *http.Request, kind, model string) {
	if l == nil {
		return
	}
	evt := l.Info().Str("path", r.URL.Path).Str("model", model)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		evt = evt.Str("request_id", rid)
	}
	evt.Msg(kind)
}
