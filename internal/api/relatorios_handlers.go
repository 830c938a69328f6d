package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/cache"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/pdf"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/relatorio"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/repo"
)

const (
	keyRelatorio    = cache.Prefix + "json"
	keyRelatorioPDF = cache.Prefix + "pdf"
	keyDashboard    = cache.Prefix + "dashboard:"
)

type dashboardResp struct {
	ConsultasHoje         int `json:"consultasHoje"`
	PacientesUnicos       int `json:"pacientesUnicos"`
	ConsultasAgendadas    int `json:"consultasAgendadas"`
	SolicitacoesPendentes int `json:"solicitacoesPendentes"`
}

func (h *Handler) cached(ctx context.Context, key string) []byte {
	if h.Cache == nil {
		return nil
	}
	return h.Cache.Get(ctx, key)
}

// store grava b em key, a menos que changed tenha rodado depois de gen ter sido lido:
// nesse caso b pode estar desatualizado e a entrada é descartada.
func (h *Handler) store(ctx context.Context, key string, b []byte, gen uint64) {
	if h.Cache == nil || h.cacheGen.Load() != gen {
		return
	}
	h.Cache.Set(ctx, key, b)
	if h.cacheGen.Load() != gen {
		h.Cache.DeletePrefix(ctx, key)
	}
}

func (h *Handler) buildRelatorio(ctx context.Context) (relatorio.Relatorio, error) {
	consultas, err := repo.ListConsultas(ctx, h.DB, repo.ConsultaFilter{})
	if err != nil {
		return relatorio.Relatorio{}, err
	}
	counts, err := repo.CountSolicitacoesByStatus(ctx, h.DB)
	if err != nil {
		return relatorio.Relatorio{}, err
	}
	rel := relatorio.Build(consultas)
	rel.Solicitacoes = counts
	return rel, nil
}

func (h *Handler) GetRelatorios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gen := h.cacheGen.Load()
	b := h.cached(ctx, keyRelatorio)
	if b == nil {
		rel, err := h.buildRelatorio(ctx)
		if err != nil {
			h.internalError(w, r, "Failed to build relatorio", err)
			return
		}
		if b, err = json.Marshal(rel); err != nil {
			h.internalError(w, r, "Failed to build relatorio", err)
			return
		}
		h.store(ctx, keyRelatorio, b, gen)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (h *Handler) GetRelatoriosPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gen := h.cacheGen.Load()
	b := h.cached(ctx, keyRelatorioPDF)
	if b == nil {
		rel, err := h.buildRelatorio(ctx)
		if err != nil {
			h.internalError(w, r, "Failed to build relatorio", err)
			return
		}
		if b, err = pdf.BuildRelatorioPDF(rel, time.Now().In(h.location())); err != nil {
			h.internalError(w, r, "Failed to build relatorio", err)
			return
		}
		h.store(ctx, keyRelatorioPDF, b, gen)
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="relatorio-consultas.pdf"`)
	_, _ = w.Write(b)
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := time.Now().In(h.location()).Format("2006-01-02")
	key := keyDashboard + today
	gen := h.cacheGen.Load()
	b := h.cached(ctx, key)
	if b == nil {
		d, err := repo.Dashboard(ctx, h.DB, today)
		if err != nil {
			h.internalError(w, r, "Failed to fetch dashboard", err)
			return
		}
		if b, err = json.Marshal(dashboardResp(*d)); err != nil {
			h.internalError(w, r, "Failed to fetch dashboard", err)
			return
		}
		h.store(ctx, key, b, gen)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
