// Package httpserver implements the proxy's HTTP surface: the chi
// router, request/response plumbing for both the batch and streaming
// paths, and the error-to-status mapping at the edge.
package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/anthroshim/msgshim/internal/applog"
	"github.com/anthroshim/msgshim/internal/config"
	"github.com/anthroshim/msgshim/internal/httpclient"
	"github.com/anthroshim/msgshim/internal/jsonmerge"
	"github.com/anthroshim/msgshim/internal/scrub"
	"github.com/anthroshim/msgshim/pkg/messages"
	"github.com/anthroshim/msgshim/pkg/modelmap"
	"github.com/anthroshim/msgshim/pkg/proxyerrors"
	"github.com/anthroshim/msgshim/pkg/responses"
	"github.com/anthroshim/msgshim/pkg/sseio"
	"github.com/anthroshim/msgshim/pkg/streambridge"
	"github.com/anthroshim/msgshim/pkg/telemetry"
	"github.com/anthroshim/msgshim/pkg/transform"
)

// Server is the proxy's HTTP surface. Construct with New; it satisfies
// http.Handler directly.
type Server struct {
	router     chi.Router
	cfg        *config.AppConfig
	httpClient *httpclient.Client
	tracer     trace.Tracer
	telemetry  *telemetry.Settings
}

// New builds a Server wired from cfg. Tracing is active only when an
// OTLP endpoint is configured; otherwise the tracer is a no-op.
func New(cfg *config.AppConfig) *Server {
	settings := telemetry.DefaultSettings().
		WithEnabled(cfg.Telemetry.OTLPEndpoint != "").
		WithFunctionID("messages.create")
	s := &Server{
		cfg:        cfg,
		httpClient: httpclient.New(),
		tracer:     telemetry.GetTracer(settings),
		telemetry:  settings,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.requestLoggerMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/v1/messages", s.handleCreateMessage)
	r.Post("/v1/message", s.handleCreateMessage)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		ctx := applog.WithRequestLogger(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, 20<<20))
	if err != nil {
		writeProxyError(w, proxyerrors.InvalidInput("failed to read request body", err))
		return
	}

	var rawPayload any
	if err := json.Unmarshal(body, &rawPayload); err != nil {
		writeProxyError(w, proxyerrors.InvalidInput("invalid JSON body", err))
		return
	}
	applog.LogPayload(ctx, "anthropic.request", scrub.Payload(rawPayload), s.cfg.Logging.Payloads, s.cfg.Logging.MaxChars)

	req, err := messages.ParseRequest(body)
	if err != nil {
		writeProxyError(w, proxyerrors.InvalidInput("invalid JSON body", err))
		return
	}

	apiKey, baseURL := s.resolveCredentials(r)
	if apiKey == "" {
		writeProxyError(w, proxyerrors.MissingCredentials("missing OPENAI_API_KEY"))
		return
	}

	spanHeaders := requestSpanHeaders(r)
	outReq, terr := telemetry.RecordSpan(ctx, s.tracer, telemetry.SpanOptions{
		Name:        "request.translate",
		Attributes:  telemetry.GetBaseAttributes("openai", req.Model, s.telemetry, spanHeaders),
		EndWhenDone: true,
	}, func(ctx context.Context, _ trace.Span) (*responses.Request, error) {
		return transform.ToResponsesRequest(req, transform.Options{ImageURLObject: s.cfg.OpenAI.ImageURLObject})
	})
	if terr != nil {
		writeProxyError(w, terr)
		return
	}

	reqMap, err := requestToMap(outReq)
	if err != nil {
		writeProxyError(w, proxyerrors.InvalidInput("failed to encode upstream request", err))
		return
	}

	mapping, _ := config.ModelMap(s.cfg.ModelMapPath)
	requestedModel, _ := reqMap["model"].(string)
	resolvedModel, extras := modelmap.Resolve(requestedModel, mapping)
	reqMap["model"] = resolvedModel
	if len(extras) > 0 {
		jsonmerge.MergeInPlace(reqMap, extras)
	}
	if resolvedModel == "" {
		writeProxyError(w, proxyerrors.InvalidInput("request is missing a model", nil))
		return
	}

	reqMap["store"] = false
	if s.cfg.OpenAI.ForceStream {
		reqMap["stream"] = true
	}

	applog.LogPayload(ctx, "openai.request", scrub.Payload(reqMap), s.cfg.Logging.Payloads, s.cfg.Logging.MaxChars)

	url := responsesURL(baseURL)
	headers := map[string]string{"Authorization": "Bearer " + apiKey}

	clientWantsStream := req.Stream != nil && *req.Stream
	upstreamWillStream, _ := reqMap["stream"].(bool)

	upstreamAttrs := append(
		telemetry.GetBaseAttributes("openai", resolvedModel, s.telemetry, spanHeaders),
		attribute.Bool("proxy.upstream.stream", clientWantsStream || upstreamWillStream),
	)

	switch {
	case clientWantsStream:
		s.proxyStream(ctx, w, url, headers, reqMap)
	case upstreamWillStream:
		resp, err := telemetry.RecordSpan(ctx, s.tracer, telemetry.SpanOptions{
			Name: "upstream.call", Attributes: upstreamAttrs, EndWhenDone: true,
		}, func(ctx context.Context, _ trace.Span) (*responses.Response, error) {
			return s.fetchStreamToResponse(ctx, url, headers, reqMap)
		})
		if err != nil {
			writeProxyError(w, err)
			return
		}
		s.writeBatch(ctx, w, resp)
	default:
		resp, err := telemetry.RecordSpan(ctx, s.tracer, telemetry.SpanOptions{
			Name: "upstream.call", Attributes: upstreamAttrs, EndWhenDone: true,
		}, func(ctx context.Context, _ trace.Span) (*responses.Response, error) {
			return s.fetchBatchResponse(ctx, url, headers, reqMap)
		})
		if err != nil {
			writeProxyError(w, err)
			return
		}
		s.writeBatch(ctx, w, resp)
	}
}

func (s *Server) fetchBatchResponse(ctx context.Context, url string, headers map[string]string, body any) (*responses.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	httpResp, err := s.httpClient.PostJSON(reqCtx, url, headers, body)
	if err != nil {
		return nil, err
	}
	if uerr := httpclient.ReadUpstreamError(httpResp); uerr != nil {
		return nil, uerr
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, proxyerrors.UpstreamConnection(err)
	}
	resp, err := responses.DecodeResponse(raw)
	if err != nil {
		return nil, proxyerrors.InvalidInput("invalid upstream response body", err)
	}
	return resp, nil
}

func (s *Server) fetchStreamToResponse(ctx context.Context, url string, headers map[string]string, body any) (*responses.Response, error) {
	httpResp, err := s.httpClient.PostJSON(ctx, url, headers, body)
	if err != nil {
		return nil, err
	}
	if uerr := httpclient.ReadUpstreamError(httpResp); uerr != nil {
		return nil, uerr
	}
	defer httpResp.Body.Close()

	dec := sseio.NewDecoder(httpResp.Body)
	var last *responses.Response
	for {
		raw, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		ev, derr := responses.DecodeStreamEvent(raw)
		if derr != nil {
			continue
		}
		if isTerminalEventType(ev.Type) && ev.Response != nil {
			last = ev.Response
		}
	}
	if last == nil {
		return nil, proxyerrors.UpstreamStreamNoResponse()
	}
	return last, nil
}

func (s *Server) proxyStream(ctx context.Context, w http.ResponseWriter, url string, headers map[string]string, body map[string]any) {
	httpResp, err := s.httpClient.PostJSON(ctx, url, headers, body)
	if err != nil {
		writeProxyError(w, err)
		return
	}
	if uerr := httpclient.ReadUpstreamError(httpResp); uerr != nil {
		writeProxyError(w, uerr)
		return
	}
	defer httpResp.Body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	model, _ := body["model"].(string)
	bridge := streambridge.NewBridge("", model, false)
	dec := sseio.NewDecoder(httpResp.Body)
	enc := sseio.NewEncoder(w)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		raw, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		ev, derr := responses.DecodeStreamEvent(raw)
		if derr != nil {
			continue
		}
		for _, outEv := range bridge.Feed(ev) {
			_ = enc.Write(outEv)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if ctx.Err() != nil {
		return
	}
	for _, outEv := range bridge.End() {
		_ = enc.Write(outEv)
	}
	if flusher != nil {
		flusher.Flush()
	}
}

func (s *Server) writeBatch(ctx context.Context, w http.ResponseWriter, resp *responses.Response) {
	envelope := transform.ResponseToEnvelope(resp, transform.Options{})
	applog.LogPayload(ctx, "anthropic.response", envelope, s.cfg.Logging.Payloads, s.cfg.Logging.MaxChars)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope)
}

func (s *Server) resolveCredentials(r *http.Request) (apiKey, baseURL string) {
	apiKey = r.Header.Get("x-openai-api-key")
	if apiKey == "" {
		apiKey = s.cfg.OpenAI.APIKey
	}
	baseURL = r.Header.Get("x-openai-api-url")
	if baseURL == "" {
		baseURL = s.cfg.OpenAI.BaseURL
	}
	return apiKey, strings.TrimRight(baseURL, "/")
}

func responsesURL(baseURL string) string {
	if strings.HasSuffix(baseURL, "/responses") {
		return baseURL
	}
	return baseURL + "/responses"
}

// requestSpanHeaders flattens the inbound headers to first values for
// span attributes; credential-bearing ones are dropped downstream by
// telemetry.GetBaseAttributes.
func requestSpanHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for k, vals := range r.Header {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

func isTerminalEventType(t string) bool {
	return t == "response.completed" || t == "response.incomplete" || t == "response.failed"
}

func requestToMap(req *responses.Request) (map[string]any, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func writeProxyError(w http.ResponseWriter, err error) {
	status := proxyerrors.StatusCodeFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	msg := err.Error()
	if pe, ok := proxyerrors.As(err); ok && pe.Kind == proxyerrors.KindUpstreamStatus {
		msg = pe.Message
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type": "error",
		"error": map[string]string{
			"type":    "proxy_error",
			"message": msg,
		},
	})
}
