// ABOUTME: HTTP API: streamed message/command endpoints plus token exchange.
// ABOUTME: Responses are newline-delimited chunk lines, flushed per chunk.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hireloop/hireloop-gateway/internal/auth"
	"github.com/hireloop/hireloop-gateway/internal/dedupe"
	"github.com/hireloop/hireloop-gateway/internal/store"
	"github.com/hireloop/hireloop-gateway/internal/stream"
)

// tokenTTL is the lifetime of minted tenant tokens.
const tokenTTL = 30 * 24 * time.Hour

// API exposes the handler over HTTP.
type API struct {
	handler *Handler
	ledger  CommandLedger
	tenants TenantStore
	minter  TokenMinter
	dedupe  *dedupe.Cache
	buffer  int
	logger  *slog.Logger
}

// TenantStore is what the token endpoint needs from persistence.
type TenantStore interface {
	GetTenant(ctx context.Context, id string) (*store.Tenant, error)
}

// TokenMinter mints tenant bearer tokens.
type TokenMinter interface {
	Generate(tenantID string, expiresIn time.Duration) (string, error)
}

// NewAPI creates the HTTP API.
func NewAPI(handler *Handler, ledger CommandLedger, tenants TenantStore, minter TokenMinter, dedupeCache *dedupe.Cache, buffer int, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		handler: handler,
		ledger:  ledger,
		tenants: tenants,
		minter:  minter,
		dedupe:  dedupeCache,
		buffer:  buffer,
		logger:  logger.With("component", "api"),
	}
}

// Register adds the API routes to the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/messages", a.handleMessage)
	mux.HandleFunc("POST /v1/commands", a.handleCommand)
	mux.HandleFunc("POST /v1/token", a.handleToken)
	mux.HandleFunc("GET /healthz", a.handleHealth)
}

// messageRequest is the body for POST /v1/messages.
type messageRequest struct {
	ConversationID string   `json:"conversation_id"`
	Content        string   `json:"content"`
	Attachments    []string `json:"attachments,omitempty"`
	UserID         string   `json:"user_id"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

// commandRequest is the body for POST /v1/commands.
type commandRequest struct {
	ConversationID string          `json:"conversation_id"`
	CommandID      string          `json:"command_id"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// tokenRequest is the body for POST /v1/token.
type tokenRequest struct {
	TenantID string `json:"tenant_id"`
	Secret   string `json:"secret"`
}

func (a *API) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" {
		a.sendJSONError(w, http.StatusBadRequest, "conversation_id required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.logger.Error("streaming not supported")
		a.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess := stream.NewSession(r.Context(), a.buffer)

	if req.IdempotencyKey != "" && a.dedupe != nil &&
		a.dedupe.CheckAndMark("msg:"+req.IdempotencyKey) {
		a.logger.Debug("duplicate message ignored", "idempotency_key", req.IdempotencyKey)
		go func() {
			defer sess.Close()
			if err := sess.FinalText(duplicateText); err != nil {
				a.logger.Debug("failed to emit duplicate text", "error", err)
			}
		}()
		a.streamChunks(w, flusher, sess)
		return
	}

	go a.handler.HandleMessage(r.Context(), sess, &MessageInput{
		ConversationID: req.ConversationID,
		Text:           req.Content,
		Attachments:    req.Attachments,
		UserID:         req.UserID,
		Token:          bearerToken(r),
	})
	a.streamChunks(w, flusher, sess)
}

func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" || req.CommandID == "" {
		a.sendJSONError(w, http.StatusBadRequest, "conversation_id and command_id required")
		return
	}

	// Unknown command ids fail before the stream starts.
	if _, err := a.ledger.GetCommand(r.Context(), req.CommandID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.sendJSONError(w, http.StatusNotFound, "command not found")
			return
		}
		a.logger.Error("failed to look up command", "command_id", req.CommandID, "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.logger.Error("streaming not supported")
		a.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess := stream.NewSession(r.Context(), a.buffer)
	go a.handler.HandleCommand(r.Context(), sess, &CommandInput{
		ConversationID: req.ConversationID,
		CommandID:      req.CommandID,
		Payload:        req.Payload,
		Token:          bearerToken(r),
	})
	a.streamChunks(w, flusher, sess)
}

// handleToken exchanges a tenant id and secret for a bearer token.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TenantID == "" || req.Secret == "" {
		a.sendJSONError(w, http.StatusBadRequest, "tenant_id and secret required")
		return
	}

	tenant, err := a.tenants.GetTenant(r.Context(), req.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.logger.Error("failed to load tenant", "tenant_id", req.TenantID, "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !auth.CheckSecret(tenant.SecretHash, req.Secret) {
		a.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := a.minter.Generate(tenant.ID, tokenTTL)
	if err != nil {
		a.logger.Error("failed to mint token", "tenant_id", tenant.ID, "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"token": token}); err != nil {
		a.logger.Debug("failed to write token response", "error", err)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

// streamChunks drains the session onto the response, one line per
// chunk, flushing after each so the client sees updates live.
func (a *API) streamChunks(w http.ResponseWriter, flusher http.Flusher, sess *stream.Session) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	for chunk := range sess.Chunks() {
		fmt.Fprintln(w, stream.EncodeLine(chunk))
		flusher.Flush()
	}
}

func (a *API) sendJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		a.logger.Debug("failed to write error response", "error", err)
	}
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
