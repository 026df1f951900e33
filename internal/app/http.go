package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"noveldesk/internal/identity"
)

const (
	payloadCookieName   = "identity-payload"
	signatureCookieName = "identity-signature"

	// Whole document trees are small; a payload past this size is not a
	// novel, it is a mistake or an attack.
	maxDocumentBytes = 8 << 20
)

type HTTPServer struct {
	service        *Service
	allowedOrigins []string
	limiter        *rateLimiter
	metricsHandler http.Handler
}

func NewHTTPServer(service *Service, metricsHandler http.Handler) *HTTPServer {
	return &HTTPServer{
		service:        service,
		allowedOrigins: service.cfg.AllowedOrigins,
		limiter:        newRateLimiter(service.cfg.RateLimit, service.cfg.RateBurst),
		metricsHandler: metricsHandler,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

// Close stops the rate limiter's cleanup goroutine.
func (s *HTTPServer) Close() {
	s.limiter.stop()
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" && s.metricsHandler != nil {
		s.metricsHandler.ServeHTTP(w, r)
		return
	}

	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/me" {
		writeJSON(w, http.StatusOK, map[string]any{
			"user": map[string]any{"email": id.Email, "name": id.Name},
		})
		return
	}

	if r.URL.Path == "/api/novel" {
		if !s.limiter.allow(id.Email) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.handleLoadNovel(w, r, id)
			return
		// PUT is canonical; POST kept for the historical web client.
		case http.MethodPut, http.MethodPost:
			s.handleSaveNovel(w, r, id)
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleLoadNovel(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	tree, err := s.service.LoadDocument(id)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *HTTPServer) handleSaveNovel(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DOCUMENT", "Invalid document payload")
		return
	}
	if err := s.service.SaveDocument(id, raw); err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

// requireIdentity verifies the credential cookies. Every failure mode writes
// the same opaque 401 so the response gives no oracle for credential
// guessing; the specific cause is only logged server-side.
func (s *HTTPServer) requireIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, err := s.service.VerifyCredential(cookieValue(r, payloadCookieName), cookieValue(r, signatureCookieName))
	if err != nil {
		log.Printf("credential rejected: %v", err)
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return identity.Identity{}, false
	}
	return id, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.setCORSHeaders(writer.Header(), r.Header.Get("Origin"))
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		duration := time.Since(started)
		if s.service.metrics != nil {
			s.service.metrics.RecordRequest(r.Method, writer.status, duration)
		}
		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			duration.Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// setCORSHeaders reflects the request origin only when it is on the
// allow-list. Credentialed requests forbid a wildcard origin, so an
// unlisted origin simply gets no CORS headers at all.
func (s *HTTPServer) setCORSHeaders(header http.Header, origin string) {
	header.Set("Cache-Control", "no-store")
	if origin == "" {
		return
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == origin {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			header.Set("Access-Control-Allow-Methods", "GET,PUT,POST,OPTIONS")
			header.Add("Vary", "Origin")
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"code": code, "error": message})
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
