package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/email"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

type aprovarReq struct {
	Data          *string `json:"data"`
	Horario       *string `json:"horario"`
	Especialidade *string `json:"especialidade"`
	Observacoes   *string `json:"observacoes"`
}

type rejeitarReq struct {
	Observacoes *string `json:"observacoes"`
}

// AprovarSolicitacao agenda a consulta da solicitação pendente e avisa o funcionário por e-mail.
func (h *Handler) AprovarSolicitacao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Solicitacao not found")
		return
	}
	var req aprovarReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Data, req.Horario = trimPtr(req.Data), trimPtr(req.Horario)
	req.Especialidade, req.Observacoes = trimPtr(req.Especialidade), trimPtr(req.Observacoes)
	errs := fieldErrors{}
	if req.Data == nil {
		errs.add("data", "Data é obrigatória")
	}
	if req.Horario == nil {
		errs.add("horario", "Horário é obrigatório")
	}
	errs.date("data", req.Data)
	errs.horario("horario", req.Horario)
	if errs.write(w) {
		return
	}
	horario, _ := NormalizeHorario(*req.Horario)
	res, err := repo.AprovarSolicitacao(r.Context(), h.DB, id, repo.Aprovacao{
		Data:          *req.Data,
		Horario:       horario,
		Especialidade: req.Especialidade,
		Observacoes:   req.Observacoes,
	})
	if errors.Is(err, repo.ErrStatusConflict) {
		writeError(w, http.StatusConflict, "Solicitação já foi analisada")
		return
	}
	if err != nil {
		h.repoError(w, r, err, "Solicitacao not found", "Failed to approve solicitacao")
		return
	}
	ctx := r.Context()
	if res.PacienteCriado {
		h.changed(ctx, ws.Event{Type: ws.PacienteCriado, ID: res.Paciente.ID.String(), Codigo: res.Paciente.CodigoProntuario})
	}
	h.changed(ctx, ws.Event{Type: ws.ConsultaCriada, ID: res.Consulta.ID.String()})
	h.changed(ctx, ws.Event{Type: ws.SolicitacaoAtualizada, ID: res.Solicitacao.ID.String(), Codigo: res.Solicitacao.CodigoRastreamento})

	if s := res.Solicitacao; s.Email != nil && *s.Email != "" {
		h.notifyAprovacao(r, email.Aprovacao{
			To:              *s.Email,
			NomeFuncionario: s.NomeFuncionario,
			Data:            res.Consulta.Data,
			Horario:         res.Consulta.Horario,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"solicitacao": h.toSolicitacao(r, res.Solicitacao),
		"paciente":    toPaciente(res.Paciente),
		"consulta":    toConsulta(res.Consulta),
	})
}

// notifyAprovacao envia o e-mail de confirmação; falhas só são registradas.
func (h *Handler) notifyAprovacao(r *http.Request, a email.Aprovacao) {
	send := h.sendAprovacao
	if send == nil {
		if h.Mailer == nil {
			h.reqLog(r).Info("email would be sent", zap.String("to", a.To))
			return
		}
		send = h.Mailer.SendAprovacao
	}
	err := send(a)
	switch {
	case errors.Is(err, email.ErrNotConfigured):
		h.reqLog(r).Info("email would be sent", zap.String("to", a.To))
	case err != nil:
		h.reqLog(r).Error("approval email failed", zap.String("to", a.To), zap.Error(err))
	}
}

func (h *Handler) RejeitarSolicitacao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Solicitacao not found")
		return
	}
	var req rejeitarReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s, err := repo.RejeitarSolicitacao(r.Context(), h.DB, id, trimPtr(req.Observacoes))
	if errors.Is(err, repo.ErrStatusConflict) {
		writeError(w, http.StatusConflict, "Solicitação já foi analisada")
		return
	}
	if err != nil {
		h.repoError(w, r, err, "Solicitacao not found", "Failed to reject solicitacao")
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.SolicitacaoAtualizada, ID: s.ID.String(), Codigo: s.CodigoRastreamento})
	writeJSON(w, http.StatusOK, h.toSolicitacao(r, s))
}
