package api

import (
	"net/http"
	"strings"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

type pacienteReq struct {
	Nome     *string `json:"nome"`
	Genero   *string `json:"genero"`
	Setor    *string `json:"setor"`
	Email    *string `json:"email"`
	Telefone *string `json:"telefone"`
}

func (req *pacienteReq) normalize() {
	req.Genero = trimPtr(req.Genero)
	req.Setor = trimPtr(req.Setor)
	req.Email = trimPtr(req.Email)
	req.Telefone = trimPtr(req.Telefone)
	if req.Nome != nil {
		n := strings.TrimSpace(*req.Nome)
		req.Nome = &n
	}
}

func (req *pacienteReq) validate(create bool) fieldErrors {
	errs := fieldErrors{}
	if create || req.Nome != nil {
		nome := ""
		if req.Nome != nil {
			nome = *req.Nome
		}
		errs.required("nome", nome, "Nome do paciente é obrigatório")
	}
	errs.enum("genero", req.Genero, generos...)
	errs.email("email", req.Email)
	return errs
}

func (h *Handler) ListPacientes(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	list, err := repo.SearchPacientes(r.Context(), h.DB, search, limit, offset)
	if err != nil {
		h.internalError(w, r, "Failed to fetch pacientes", err)
		return
	}
	if limit > 0 && search == "" {
		total, err := repo.CountPacientes(r.Context(), h.DB)
		if err != nil {
			h.internalError(w, r, "Failed to fetch pacientes", err)
			return
		}
		setTotal(w, limit, total)
	}
	writeJSON(w, http.StatusOK, toPacientes(list))
}

func (h *Handler) GetPaciente(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Paciente not found")
		return
	}
	p, err := repo.PacienteByID(r.Context(), h.DB, id)
	if err != nil {
		h.repoError(w, r, err, "Paciente not found", "Failed to fetch paciente")
		return
	}
	writeJSON(w, http.StatusOK, toPaciente(p))
}

func (h *Handler) ListPacienteConsultas(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusOK, []consultaResp{})
		return
	}
	list, err := repo.ConsultasByPaciente(r.Context(), h.DB, id)
	if err != nil {
		h.internalError(w, r, "Failed to fetch consultas", err)
		return
	}
	writeJSON(w, http.StatusOK, toConsultas(list))
}

func (h *Handler) CreatePaciente(w http.ResponseWriter, r *http.Request) {
	var req pacienteReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.normalize()
	if req.validate(true).write(w) {
		return
	}
	p, err := repo.CreatePaciente(r.Context(), h.DB, repo.PacienteInput{
		Nome:     *req.Nome,
		Genero:   req.Genero,
		Setor:    req.Setor,
		Email:    req.Email,
		Telefone: req.Telefone,
	})
	if err != nil {
		h.internalError(w, r, "Failed to create paciente", err)
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.PacienteCriado, ID: p.ID.String(), Codigo: p.CodigoProntuario})
	writeJSON(w, http.StatusCreated, toPaciente(p))
}

func (h *Handler) UpdatePaciente(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Paciente not found")
		return
	}
	var req pacienteReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.normalize()
	if req.validate(false).write(w) {
		return
	}
	p, err := repo.UpdatePaciente(r.Context(), h.DB, id, repo.PacientePatch{
		Nome:     req.Nome,
		Genero:   req.Genero,
		Setor:    req.Setor,
		Email:    req.Email,
		Telefone: req.Telefone,
	})
	if err != nil {
		h.repoError(w, r, err, "Paciente not found", "Failed to update paciente")
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.PacienteAtualizado, ID: p.ID.String(), Codigo: p.CodigoProntuario})
	writeJSON(w, http.StatusOK, toPaciente(p))
}

func (h *Handler) DeletePaciente(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Paciente not found")
		return
	}
	if err := repo.DeletePaciente(r.Context(), h.DB, id); err != nil {
		h.repoError(w, r, err, "Paciente not found", "Failed to delete paciente")
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.PacienteRemovido, ID: id.String()})
	w.WriteHeader(http.StatusNoContent)
}
