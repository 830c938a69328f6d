package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/auth"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/cache"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/config"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/crypto"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/email"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/middleware"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Cache    cache.Store
	Hub      ws.Publisher
	Mailer   *email.Mailer
	Keyring  *crypto.Keyring
	Verifier *auth.Verifier
	Log      *zap.Logger

	passwordHash string
	// cacheGen conta as invalidações feitas por changed.
	cacheGen atomic.Uint64
	// ping e sendAprovacao são trocados nos testes.
	ping          func(ctx context.Context) error
	sendAprovacao func(a email.Aprovacao) error
}

// SetPasswordHash define o hash bcrypt da senha da psicóloga.
func (h *Handler) SetPasswordHash(hash string) { h.passwordHash = hash }

// ConfigurePassword usa PSICOLOGA_PASSWORD_HASH ou, na falta dele, gera o hash de PSICOLOGA_PASSWORD.
func (h *Handler) ConfigurePassword() error {
	if h.Cfg.PsicologaPasswordHash != "" {
		h.passwordHash = h.Cfg.PsicologaPasswordHash
		return nil
	}
	if h.Cfg.PsicologaPassword == "" {
		h.logger().Warn("login disabled: PSICOLOGA_PASSWORD not set")
		return nil
	}
	hash, err := auth.HashPassword(h.Cfg.PsicologaPassword)
	if err != nil {
		return err
	}
	h.passwordHash = hash
	return nil
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h *Handler) publisher() ws.Publisher {
	if h.Hub == nil {
		return ws.Nop{}
	}
	return h.Hub
}

// reqLog anexa o request id ao logger.
func (h *Handler) reqLog(r *http.Request) *zap.Logger {
	return h.logger().With(zap.String("request_id", middleware.RequestIDFromContext(r.Context())))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError registra a falha e responde 500 com a mensagem pública msg.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.reqLog(r).Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
	writeError(w, http.StatusInternalServerError, msg)
}

// repoError mapeia gorm.ErrRecordNotFound para 404 e o resto para 500.
func (h *Handler) repoError(w http.ResponseWriter, r *http.Request, err error, notFound, failure string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	h.internalError(w, r, failure, err)
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	return id, err == nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// requireDB responde 503 enquanto o servidor roda sem DATABASE_URL.
func (h *Handler) requireDB(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.DB == nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// changed invalida os relatórios em cache e avisa os clientes websocket.
func (h *Handler) changed(ctx context.Context, e ws.Event) {
	h.cacheGen.Add(1)
	if h.Cache != nil {
		h.Cache.DeletePrefix(ctx, cache.Prefix)
	}
	h.publisher().Publish(e)
}
