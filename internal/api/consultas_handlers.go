package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

type consultaReq struct {
	PacienteID    *string `json:"pacienteId"`
	Paciente      *string `json:"paciente"`
	Genero        *string `json:"genero"`
	Setor         *string `json:"setor"`
	Data          *string `json:"data"`
	Horario       *string `json:"horario"`
	Status        *string `json:"status"`
	Compareceu    *string `json:"compareceu"`
	Especialidade *string `json:"especialidade"`
	Motivo        *string `json:"motivo"`
	Observacoes   *string `json:"observacoes"`
}

// consultaParsed guarda os valores normalizados depois de validate.
type consultaParsed struct {
	pacienteID *uuid.UUID
	horario    *string
}

func (req *consultaReq) normalize() {
	for _, p := range []**string{&req.PacienteID, &req.Paciente, &req.Genero, &req.Setor, &req.Data,
		&req.Horario, &req.Status, &req.Compareceu, &req.Especialidade, &req.Motivo, &req.Observacoes} {
		*p = trimPtr(*p)
	}
}

func (req *consultaReq) validate(create bool) (consultaParsed, fieldErrors) {
	var out consultaParsed
	errs := fieldErrors{}
	if create {
		if req.Data == nil {
			errs.add("data", "Data é obrigatória")
		}
		if req.Horario == nil {
			errs.add("horario", "Horário é obrigatório")
		}
		if req.PacienteID == nil && req.Paciente == nil {
			errs.add("paciente", "Nome do paciente é obrigatório")
		}
	}
	if req.PacienteID != nil {
		id, err := uuid.Parse(*req.PacienteID)
		if err != nil {
			errs.add("pacienteId", "identificador inválido")
		} else {
			out.pacienteID = &id
		}
	}
	errs.date("data", req.Data)
	if req.Horario != nil {
		hhmm, err := NormalizeHorario(*req.Horario)
		if err != nil {
			errs.add("horario", "horário inválido (use HH:MM)")
		} else {
			out.horario = &hhmm
		}
	}
	errs.enum("status", req.Status, consultaStatus...)
	errs.enum("compareceu", req.Compareceu, compareceus...)
	errs.enum("genero", req.Genero, generos...)
	return out, errs
}

func (h *Handler) ListConsultas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := ParseLimitOffset(r)
	status := strings.TrimSpace(q.Get("status"))
	if status != "" {
		errs := fieldErrors{}
		errs.enum("status", &status, consultaStatus...)
		if errs.write(w) {
			return
		}
	}
	list, err := repo.ListConsultas(r.Context(), h.DB, repo.ConsultaFilter{
		Status: status,
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.internalError(w, r, "Failed to fetch consultas", err)
		return
	}
	writeJSON(w, http.StatusOK, toConsultas(list))
}

func (h *Handler) GetConsulta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Consulta not found")
		return
	}
	c, err := repo.ConsultaByID(r.Context(), h.DB, id)
	if err != nil {
		h.repoError(w, r, err, "Consulta not found", "Failed to fetch consulta")
		return
	}
	writeJSON(w, http.StatusOK, toConsulta(c))
}

// CreateConsulta agenda uma consulta. Sem pacienteId, o paciente é buscado pelo nome
// e cadastrado quando ainda não existe.
func (h *Handler) CreateConsulta(w http.ResponseWriter, r *http.Request) {
	var req consultaReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.normalize()
	parsed, errs := req.validate(true)
	if errs.write(w) {
		return
	}
	ctx := r.Context()
	var (
		c      *repo.Consulta
		p      *repo.Paciente
		criado bool
		status string
	)
	if req.Status != nil {
		status = *req.Status
	}
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if parsed.pacienteID != nil {
			p, err = repo.PacienteByID(ctx, tx, *parsed.pacienteID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.ErrPacienteInexistente
			}
			if err != nil {
				return err
			}
		} else {
			p, err = repo.PacienteByNome(ctx, tx, *req.Paciente)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				p, err = repo.CreatePaciente(ctx, tx, repo.PacienteInput{Nome: *req.Paciente, Genero: req.Genero, Setor: req.Setor})
				criado = true
			}
			if err != nil {
				return err
			}
		}
		genero, setor := req.Genero, req.Setor
		if genero == nil {
			genero = p.Genero
		}
		if setor == nil {
			setor = p.Setor
		}
		c, err = repo.CreateConsulta(ctx, tx, repo.ConsultaInput{
			PacienteID:    &p.ID,
			Paciente:      p.Nome,
			Genero:        genero,
			Setor:         setor,
			Data:          *req.Data,
			Horario:       *parsed.horario,
			Status:        status,
			Compareceu:    req.Compareceu,
			Especialidade: req.Especialidade,
			Motivo:        req.Motivo,
			Observacoes:   req.Observacoes,
		})
		return err
	})
	if errors.Is(err, repo.ErrPacienteInexistente) {
		fieldErrors{"pacienteId": "Paciente não encontrado"}.write(w)
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to create consulta", err)
		return
	}
	if criado {
		h.changed(ctx, ws.Event{Type: ws.PacienteCriado, ID: p.ID.String(), Codigo: p.CodigoProntuario})
	}
	h.changed(ctx, ws.Event{Type: ws.ConsultaCriada, ID: c.ID.String()})
	writeJSON(w, http.StatusCreated, toConsulta(c))
}

func (h *Handler) UpdateConsulta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Consulta not found")
		return
	}
	var req consultaReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.normalize()
	parsed, errs := req.validate(false)
	if errs.write(w) {
		return
	}
	ctx := r.Context()
	updated, err := repo.UpdateConsulta(ctx, h.DB, id, repo.ConsultaPatch{
		PacienteID:    parsed.pacienteID,
		Paciente:      req.Paciente,
		Genero:        req.Genero,
		Setor:         req.Setor,
		Data:          req.Data,
		Horario:       parsed.horario,
		Status:        req.Status,
		Compareceu:    req.Compareceu,
		Especialidade: req.Especialidade,
		Motivo:        req.Motivo,
		Observacoes:   req.Observacoes,
	})
	if errors.Is(err, repo.ErrPacienteInexistente) {
		fieldErrors{"pacienteId": "Paciente não encontrado"}.write(w)
		return
	}
	if err != nil {
		h.repoError(w, r, err, "Consulta not found", "Failed to update consulta")
		return
	}
	h.changed(ctx, ws.Event{Type: ws.ConsultaAtualizada, ID: updated.ID.String()})
	// A resposta traz nome, gênero e setor do cadastro atual, como no GET.
	c, err := repo.ConsultaByID(ctx, h.DB, updated.ID)
	if err != nil {
		h.repoError(w, r, err, "Consulta not found", "Failed to fetch consulta")
		return
	}
	writeJSON(w, http.StatusOK, toConsulta(c))
}

func (h *Handler) DeleteConsulta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Consulta not found")
		return
	}
	if err := repo.DeleteConsulta(r.Context(), h.DB, id); err != nil {
		h.repoError(w, r, err, "Consulta not found", "Failed to delete consulta")
		return
	}
	h.changed(r.Context(), ws.Event{Type: ws.ConsultaRemovida, ID: id.String()})
	w.WriteHeader(http.StatusNoContent)
}
