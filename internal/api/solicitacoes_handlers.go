package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/pdf"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

type solicitacaoReq struct {
	NomeFuncionario      *string `json:"nomeFuncionario"`
	Genero               *string `json:"genero"`
	Setor                *string `json:"setor"`
	Motivo               *string `json:"motivo"`
	Descricao            *string `json:"descricao"`
	DataPreferencial     *string `json:"dataPreferencial"`
	HorarioPreferencial  *string `json:"horarioPreferencial"`
	Email                *string `json:"email"`
	Telefone             *string `json:"telefone"`
	Status               *string `json:"status"`
	ObservacoesPsicologo *string `json:"observacoesPsicologo"`
}

func (req *solicitacaoReq) normalize() {
	for _, p := range []**string{&req.NomeFuncionario, &req.Genero, &req.Setor, &req.Motivo, &req.Descricao,
		&req.DataPreferencial, &req.HorarioPreferencial, &req.Email, &req.Telefone, &req.Status, &req.ObservacoesPsicologo} {
		*p = trimPtr(*p)
	}
}

func (req *solicitacaoReq) validate(create bool) fieldErrors {
	errs := fieldErrors{}
	if create {
		if req.NomeFuncionario == nil {
			errs.add("nomeFuncionario", "Nome é obrigatório")
		}
		if req.Setor == nil {
			errs.add("setor", "Setor é obrigatório")
		}
		if req.Motivo == nil {
			errs.add("motivo", "Motivo é obrigatório")
		}
		if req.Descricao == nil || utf8.RuneCountInString(*req.Descricao) < minDescricao {
			errs.add("descricao", "Descreva o motivo com pelo menos 10 caracteres")
		}
	}
	errs.enum("genero", req.Genero, generos...)
	errs.email("email", req.Email)
	errs.date("dataPreferencial", req.DataPreferencial)
	errs.enum("status", req.Status, solicStatus...)
	return errs
}

// toSolicitacao monta a resposta completa; a descrição cifrada é aberta com o keyring.
func (h *Handler) toSolicitacao(r *http.Request, s *repo.Solicitacao) solicitacaoResp {
	out := solicitacaoResp{
		ID:                   s.ID.String(),
		CodigoRastreamento:   s.CodigoRastreamento,
		NomeFuncionario:      s.NomeFuncionario,
		Genero:               s.Genero,
		Setor:                s.Setor,
		Motivo:               s.Motivo,
		Descricao:            s.Descricao,
		DataPreferencial:     s.DataPreferencial,
		HorarioPreferencial:  s.HorarioPreferencial,
		Email:                s.Email,
		Telefone:             s.Telefone,
		Status:               s.Status,
		ObservacoesPsicologo: s.ObservacoesPsicologo,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
	if len(s.DescricaoEncrypted) > 0 && s.DescricaoKeyVersion != nil {
		if !h.Keyring.Enabled() {
			h.reqLog(r).Warn("encrypted descricao but no keys configured", zap.String("codigo", s.CodigoRastreamento))
			return out
		}
		plain, err := h.Keyring.Open(s.DescricaoEncrypted, s.DescricaoNonce, *s.DescricaoKeyVersion)
		if err != nil {
			h.reqLog(r).Error("decrypt descricao", zap.String("codigo", s.CodigoRastreamento), zap.Error(err))
			return out
		}
		d := string(plain)
		out.Descricao = &d
	}
	return out
}

// CreateSolicitacao é a rota pública usada pelo funcionário. O status é sempre pendente.
func (h *Handler) CreateSolicitacao(w http.ResponseWriter, r *http.Request) {
	var req solicitacaoReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.normalize()
	req.Status = nil
	req.ObservacoesPsicologo = nil
	if req.validate(true).write(w) {
		return
	}
	in := repo.SolicitacaoInput{
		NomeFuncionario:     *req.NomeFuncionario,
		Genero:              req.Genero,
		Setor:               *req.Setor,
		Motivo:              *req.Motivo,
		DataPreferencial:    req.DataPreferencial,
		HorarioPreferencial: req.HorarioPreferencial,
		Email:               req.Email,
		Telefone:            req.Telefone,
	}
	if h.Keyring.Enabled() {
		ct, nonce, ver, err := h.Keyring.Seal([]byte(*req.Descricao))
		if err != nil {
			h.internalError(w, r, "Failed to create solicitacao", err)
			return
		}
		in.DescricaoEncrypted, in.DescricaoNonce, in.DescricaoKeyVersion = ct, nonce, &ver
	} else {
		in.Descricao = req.Descricao
	}
	s, err := repo.CreateSolicitacao(r.Context(), h.DB, in)
	if err != nil {
		h.internalError(w, r, "Failed to create solicitacao", err)
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.SolicitacaoCriada, ID: s.ID.String(), Codigo: s.CodigoRastreamento})
	out := h.toSolicitacao(r, s)
	out.Descricao = req.Descricao
	writeJSON(w, http.StatusCreated, out)
}

// GetRastreamento é a consulta pública pelo código de rastreamento.
func (h *Handler) GetRastreamento(w http.ResponseWriter, r *http.Request) {
	s, err := repo.SolicitacaoByCodigo(r.Context(), h.DB, strings.TrimSpace(mux.Vars(r)["codigo"]))
	if err != nil {
		h.repoError(w, r, err, "Solicitacao not found", "Failed to fetch solicitacao")
		return
	}
	writeJSON(w, http.StatusOK, toRastreamento(s))
}

func (h *Handler) trackingURL(code string) string {
	base := strings.TrimRight(h.Cfg.AppPublicURL, "/")
	if base == "" {
		return ""
	}
	return base + "/acompanhar?codigo=" + url.QueryEscape(code)
}

// GetComprovante devolve o recibo em PDF com QR code para a página de acompanhamento.
func (h *Handler) GetComprovante(w http.ResponseWriter, r *http.Request) {
	s, err := repo.SolicitacaoByCodigo(r.Context(), h.DB, strings.TrimSpace(mux.Vars(r)["codigo"]))
	if err != nil {
		h.repoError(w, r, err, "Solicitacao not found", "Failed to fetch solicitacao")
		return
	}
	c := pdf.Comprovante{
		Codigo:          s.CodigoRastreamento,
		NomeFuncionario: s.NomeFuncionario,
		Setor:           s.Setor,
		Motivo:          s.Motivo,
		Status:          s.Status,
		CriadaEm:        s.CreatedAt.In(h.location()),
		TrackingURL:     h.trackingURL(s.CodigoRastreamento),
	}
	if s.DataPreferencial != nil {
		c.DataPreferencial = *s.DataPreferencial
	}
	if s.HorarioPreferencial != nil {
		c.HorarioPreferencial = *s.HorarioPreferencial
	}
	b, err := pdf.BuildComprovantePDF(c)
	if err != nil {
		h.internalError(w, r, "Failed to build comprovante", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="comprovante-`+s.CodigoRastreamento+`.pdf"`)
	_, _ = w.Write(b)
}

func (h *Handler) ListSolicitacoes(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" {
		errs := fieldErrors{}
		errs.enum("status", &status, solicStatus...)
		if errs.write(w) {
			return
		}
	}
	list, err := repo.ListSolicitacoes(r.Context(), h.DB, status, limit, offset)
	if err != nil {
		h.internalError(w, r, "Failed to fetch solicitacoes", err)
		return
	}
	if limit > 0 {
		counts, err := repo.CountSolicitacoesByStatus(r.Context(), h.DB)
		if err != nil {
			h.internalError(w, r, "Failed to fetch solicitacoes", err)
			return
		}
		total := counts[status]
		if status == "" {
			total = 0
			for _, n := range counts {
				total += n
			}
		}
		setTotal(w, limit, total)
	}
	out := make([]solicitacaoResp, len(list))
	for i := range list {
		out[i] = h.toSolicitacao(r, &list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetSolicitacao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Solicitacao not found")
		return
	}
	s, err := repo.SolicitacaoByID(r.Context(), h.DB, id)
	if err != nil {
		h.repoError(w, r, err, "Solicitacao not found", "Failed to fetch solicitacao")
		return
	}
	writeJSON(w, http.StatusOK, h.toSolicitacao(r, s))
}

func (h *Handler) UpdateSolicitacao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Solicitacao not found")
		return
	}
	var req solicitacaoReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.normalize()
	errs := req.validate(false)
	if req.Descricao != nil {
		errs.add("descricao", "a descrição não pode ser alterada")
	}
	if errs.write(w) {
		return
	}
	s, err := repo.UpdateSolicitacao(r.Context(), h.DB, id, repo.SolicitacaoPatch{
		NomeFuncionario:      req.NomeFuncionario,
		Genero:               req.Genero,
		Setor:                req.Setor,
		Motivo:               req.Motivo,
		DataPreferencial:     req.DataPreferencial,
		HorarioPreferencial:  req.HorarioPreferencial,
		Email:                req.Email,
		Telefone:             req.Telefone,
		Status:               req.Status,
		ObservacoesPsicologo: req.ObservacoesPsicologo,
	})
	if err != nil {
		h.repoError(w, r, err, "Solicitacao not found", "Failed to update solicitacao")
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.SolicitacaoAtualizada, ID: s.ID.String(), Codigo: s.CodigoRastreamento})
	writeJSON(w, http.StatusOK, h.toSolicitacao(r, s))
}

func (h *Handler) DeleteSolicitacao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Solicitacao not found")
		return
	}
	if err := repo.DeleteSolicitacao(r.Context(), h.DB, id); err != nil {
		h.repoError(w, r, err, "Solicitacao not found", "Failed to delete solicitacao")
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.SolicitacaoRemovida, ID: id.String()})
	w.WriteHeader(http.StatusNoContent)
}

// location é o fuso usado para datas mostradas ao usuário.
func (h *Handler) location() *time.Location {
	if h.Cfg != nil && h.Cfg.ReminderTZ != "" {
		if loc, err := time.LoadLocation(h.Cfg.ReminderTZ); err == nil {
			return loc
		}
	}
	return time.UTC
}
