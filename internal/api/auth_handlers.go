package api

import (
	"net/http"
	"time"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/auth"
)

const tokenTTL = 12 * time.Hour

// psicologaSubject identifica a única conta de login local.
const psicologaSubject = "psicologa"

type LoginRequest struct {
	Senha string `json:"senha"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      string    `json:"role"`
}

func genericLoginError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Senha inválida")
}

// Login valida a senha da psicóloga e emite um JWT HS256.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Senha == "" {
		fieldErrors{"senha": "Senha é obrigatória"}.write(w)
		return
	}
	if h.passwordHash == "" {
		writeError(w, http.StatusServiceUnavailable, "login não configurado")
		return
	}
	if !auth.CheckPassword(h.passwordHash, req.Senha) {
		genericLoginError(w)
		return
	}
	tok, exp, err := auth.BuildJWT(h.Cfg.JWTSecret, psicologaSubject, auth.RolePsicologa, "Psicóloga", tokenTTL)
	if err != nil {
		h.internalError(w, r, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: tok, ExpiresAt: exp, Role: auth.RolePsicologa})
}

// Me devolve o resumo das claims do token atual.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c := auth.ClaimsFrom(r.Context())
	if c == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	out := map[string]interface{}{
		"subject":  c.Subject,
		"role":     c.Role,
		"name":     c.Name,
		"external": c.External,
	}
	if c.ExpiresAt != nil {
		out["expiresAt"] = c.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, out)
}
