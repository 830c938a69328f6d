package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/metrics"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/middleware"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

// NewRouter registra as rotas e aplica a cadeia de middlewares. hub nil desativa /api/ws.
// limiter protege as rotas públicas (login, envio e acompanhamento de solicitações); com token
// válido a chave do limite é o subject, sem token é o IP.
func NewRouter(h *Handler, hub *ws.Hub, limiter *middleware.RateLimiter) http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	public := r.PathPrefix("/api").Subrouter()
	public.Use(middleware.OptionalAuthMiddleware(h.Verifier), limiter.Handler)
	public.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	public.Handle("/solicitacoes", h.requireDB(http.HandlerFunc(h.CreateSolicitacao))).Methods(http.MethodPost)
	public.Handle("/solicitacoes/codigo/{codigo}", h.requireDB(http.HandlerFunc(h.GetRastreamento))).Methods(http.MethodGet)
	public.Handle("/solicitacoes/codigo/{codigo}/comprovante.pdf", h.requireDB(http.HandlerFunc(h.GetComprovante))).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(h.Verifier))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)

	psi := r.PathPrefix("/api").Subrouter()
	psi.Use(middleware.RequirePsicologa(h.Verifier), h.requireDB)
	psi.HandleFunc("/pacientes", h.ListPacientes).Methods(http.MethodGet)
	psi.HandleFunc("/pacientes", h.CreatePaciente).Methods(http.MethodPost)
	psi.HandleFunc("/pacientes/{id}", h.GetPaciente).Methods(http.MethodGet)
	psi.HandleFunc("/pacientes/{id}", h.UpdatePaciente).Methods(http.MethodPatch)
	psi.HandleFunc("/pacientes/{id}", h.DeletePaciente).Methods(http.MethodDelete)
	psi.HandleFunc("/pacientes/{id}/consultas", h.ListPacienteConsultas).Methods(http.MethodGet)

	psi.HandleFunc("/consultas", h.ListConsultas).Methods(http.MethodGet)
	psi.HandleFunc("/consultas", h.CreateConsulta).Methods(http.MethodPost)
	psi.HandleFunc("/consultas/{id}", h.GetConsulta).Methods(http.MethodGet)
	psi.HandleFunc("/consultas/{id}", h.UpdateConsulta).Methods(http.MethodPatch)
	psi.HandleFunc("/consultas/{id}", h.DeleteConsulta).Methods(http.MethodDelete)

	psi.HandleFunc("/solicitacoes", h.ListSolicitacoes).Methods(http.MethodGet)
	psi.HandleFunc("/solicitacoes/{id}", h.GetSolicitacao).Methods(http.MethodGet)
	psi.HandleFunc("/solicitacoes/{id}", h.UpdateSolicitacao).Methods(http.MethodPatch)
	psi.HandleFunc("/solicitacoes/{id}", h.DeleteSolicitacao).Methods(http.MethodDelete)
	psi.HandleFunc("/solicitacoes/{id}/aprovar", h.AprovarSolicitacao).Methods(http.MethodPost)
	psi.HandleFunc("/solicitacoes/{id}/rejeitar", h.RejeitarSolicitacao).Methods(http.MethodPost)

	psi.HandleFunc("/relatorios", h.GetRelatorios).Methods(http.MethodGet)
	psi.HandleFunc("/relatorios.pdf", h.GetRelatoriosPDF).Methods(http.MethodGet)
	psi.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	if hub != nil {
		psi.HandleFunc("/ws", hub.Handler(h.Cfg.CORSOrigins)).Methods(http.MethodGet)
	}

	return h.middlewareChain(r)
}

// middlewareChain aplica os middlewares globais. RequestID é o mais externo: AccessLog e
// Recover leem o id do contexto.
func (h *Handler) middlewareChain(next http.Handler) http.Handler {
	log := h.logger()
	chain := middleware.Gzip(next)
	chain = middleware.CORS(h.Cfg.CORSOrigins)(chain)
	chain = middleware.Timeout(h.Cfg.RequestTimeoutSec)(chain)
	chain = middleware.AccessLog(log)(chain)
	chain = middleware.Recover(log)(chain)
	chain = middleware.RequestID(chain)
	return chain
}
