package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pmfcarvalho/extrato/internal/auth"
	"github.com/pmfcarvalho/extrato/internal/converter"
	"github.com/pmfcarvalho/extrato/internal/metrics"
	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
	"github.com/pmfcarvalho/extrato/internal/storage"
	"github.com/pmfcarvalho/extrato/internal/store"
)

const maxUploadBytes = 32 << 20

var pdfMagic = []byte("%PDF-")

type ConversionHandler struct {
	conversions *store.ConversionStore
	subs        *store.SubscriptionStore
	engine      converter.Engine
	artifacts   storage.Store
	logger      *slog.Logger
}

func NewConversionHandler(
	cs *store.ConversionStore,
	ss *store.SubscriptionStore,
	engine converter.Engine,
	artifacts storage.Store,
	logger *slog.Logger,
) *ConversionHandler {
	return &ConversionHandler{
		conversions: cs,
		subs:        ss,
		engine:      engine,
		artifacts:   artifacts,
		logger:      logger,
	}
}

// Upload accepts a PDF, gates it on the subscription quota, and converts it
// synchronously. The response is the conversion record, already terminal:
// the extraction engine runs within the request, so clients observe
// completed or failed, never processing, unless they list mid-flight.
func (h *ConversionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	bankName := r.URL.Query().Get("bank_name")
	if bankName == "" {
		bankName = "Millennium"
	}
	if !converter.SupportedBank(bankName) {
		writeDetail(w, http.StatusBadRequest, "Banco não suportado")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Ficheiro em falta")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Erro ao ler ficheiro")
		return
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		writeDetail(w, http.StatusBadRequest, "Apenas arquivos PDF são aceites")
		return
	}

	sub, err := h.subs.GetActiveByUserID(userID)
	if err != nil {
		h.logger.Error("get active subscription", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	estimatedPages := plan.EstimatePages(int64(len(content)))
	if !plan.Allows(sub, estimatedPages) {
		writeDetail(w, http.StatusForbidden, "Limite de utilização atingido. Faça upgrade do seu plano.")
		return
	}

	conv, err := h.conversions.Create(userID, header.Filename, bankName, estimatedPages)
	if err != nil {
		h.logger.Error("create conversion", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}

	if err := h.artifacts.Save(r.Context(), conv.ID+".pdf", bytes.NewReader(content)); err != nil {
		h.logger.Error("save upload", "conversion", conv.ID, "error", err)
	}

	start := time.Now()
	statement, err := h.engine.Extract(r.Context(), bytes.NewReader(content), bankName)
	metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.failConversion(conv, err)
		writeDetail(w, http.StatusInternalServerError, "Erro ao processar PDF")
		return
	}

	pages := statement.Pages
	if pages <= 0 {
		pages = estimatedPages
	}

	if err := h.writeArtifacts(r.Context(), conv.ID, statement); err != nil {
		h.failConversion(conv, err)
		writeDetail(w, http.StatusInternalServerError, "Erro ao gerar ficheiros")
		return
	}

	if err := h.conversions.SetPages(conv.ID, pages); err != nil {
		h.logger.Error("set conversion pages", "conversion", conv.ID, "error", err)
	}
	if err := h.conversions.SetStatus(conv.ID, model.ConversionCompleted); err != nil {
		h.logger.Error("set conversion status", "conversion", conv.ID, "error", err)
	}
	if err := h.subs.AddUsage(sub.ID, pages); err != nil {
		h.logger.Error("add subscription usage", "subscription", sub.ID, "error", err)
	}

	metrics.ConversionsTotal.WithLabelValues(bankName, string(model.ConversionCompleted)).Inc()
	metrics.ConversionPagesTotal.Add(float64(pages))

	conv, err = h.conversions.GetByID(conv.ID, userID)
	if err != nil || conv == nil {
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversionHandler) failConversion(conv *model.Conversion, cause error) {
	h.logger.Error("conversion failed", "conversion", conv.ID, "bank", conv.BankName, "error", cause)
	if err := h.conversions.SetStatus(conv.ID, model.ConversionFailed); err != nil {
		h.logger.Error("set conversion status", "conversion", conv.ID, "error", err)
	}
	metrics.ConversionsTotal.WithLabelValues(conv.BankName, string(model.ConversionFailed)).Inc()
}

func (h *ConversionHandler) writeArtifacts(ctx context.Context, id string, st *converter.Statement) error {
	var csvBuf bytes.Buffer
	if err := converter.WriteCSV(&csvBuf, st); err != nil {
		return err
	}
	if err := h.artifacts.Save(ctx, id+".csv", &csvBuf); err != nil {
		return err
	}

	var xlsxBuf bytes.Buffer
	if err := converter.WriteXLSX(&xlsxBuf, st); err != nil {
		return err
	}
	return h.artifacts.Save(ctx, id+".xlsx", &xlsxBuf)
}

// List returns the user's conversions, most recent first.
func (h *ConversionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	conversions, err := h.conversions.ListByUserID(userID)
	if err != nil {
		h.logger.Error("list conversions", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if conversions == nil {
		conversions = []*model.Conversion{}
	}
	writeJSON(w, http.StatusOK, conversions)
}

// Get returns one conversion by id.
func (h *ConversionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	conv, err := h.conversions.GetByID(r.PathValue("id"), userID)
	if err != nil {
		h.logger.Error("get conversion", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if conv == nil {
		writeDetail(w, http.StatusNotFound, "Conversão não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Download streams a generated artifact. Only completed conversions have
// artifacts; anything else is rejected before touching storage.
func (h *ConversionHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	format := r.PathValue("format")
	var ext, contentType string
	switch format {
	case "csv":
		ext, contentType = ".csv", "text/csv"
	case "excel":
		ext, contentType = ".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		writeDetail(w, http.StatusBadRequest, "Formato inválido")
		return
	}

	conv, err := h.conversions.GetByID(r.PathValue("id"), userID)
	if err != nil {
		h.logger.Error("get conversion", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if conv == nil {
		writeDetail(w, http.StatusNotFound, "Conversão não encontrada")
		return
	}
	if conv.Status != model.ConversionCompleted {
		writeDetail(w, http.StatusConflict, "Conversão ainda não concluída")
		return
	}

	artifact, err := h.artifacts.Open(r.Context(), conv.ID+ext)
	if err != nil {
		h.logger.Error("open artifact", "conversion", conv.ID, "error", err)
		writeDetail(w, http.StatusNotFound, "Ficheiro não encontrado")
		return
	}
	defer artifact.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+conv.OriginalFilename+ext+`"`)
	if _, err := io.Copy(w, artifact); err != nil {
		h.logger.Error("stream artifact", "conversion", conv.ID, "error", err)
	}
}
