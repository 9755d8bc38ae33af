package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pmfcarvalho/extrato/internal/auth"
	"github.com/pmfcarvalho/extrato/internal/converter"
	"github.com/pmfcarvalho/extrato/internal/database"
	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
	"github.com/pmfcarvalho/extrato/internal/storage"
	"github.com/pmfcarvalho/extrato/internal/store"
)

type stubEngine struct {
	calls     int
	statement *converter.Statement
	err       error
}

func (e *stubEngine) Extract(ctx context.Context, pdf io.Reader, bankName string) (*converter.Statement, error) {
	e.calls++
	return e.statement, e.err
}

type conversionFixture struct {
	handler *ConversionHandler
	engine  *stubEngine
	subs    *store.SubscriptionStore
	convs   *store.ConversionStore
	userID  string
	subID   string
}

func newConversionFixture(t *testing.T) *conversionFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	user, err := users.Create("rui@example.com", "Rui", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	subs := store.NewSubscriptionStore(db)
	free, _ := plan.Get(plan.Free)
	sub, err := subs.Create(user.ID, free)
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	artifacts, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}

	convs := store.NewConversionStore(db)
	engine := &stubEngine{
		statement: &converter.Statement{
			Bank:  "BPI",
			Pages: 2,
			Transactions: []converter.Transaction{
				{Date: "2026-08-01", Description: "Ordenado", Amount: 1500, Kind: "credito"},
			},
		},
	}

	return &conversionFixture{
		handler: NewConversionHandler(convs, subs, engine, artifacts, slog.New(slog.DiscardHandler)),
		engine:  engine,
		subs:    subs,
		convs:   convs,
		userID:  user.ID,
		subID:   sub.ID,
	}
}

func uploadRequest(t *testing.T, userID, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func TestUploadRejectsNonPDF(t *testing.T) {
	f := newConversionFixture(t)

	req := uploadRequest(t, f.userID, "/api/conversions/upload?bank_name=BPI", "notas.txt", []byte("plain text"))
	rec := httptest.NewRecorder()
	f.handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if f.engine.calls != 0 {
		t.Fatal("engine should not run for a rejected file")
	}
}

func TestUploadRejectsUnknownBank(t *testing.T) {
	f := newConversionFixture(t)

	req := uploadRequest(t, f.userID, "/api/conversions/upload?bank_name=Desconhecido", "extrato.pdf", []byte("%PDF-1.4"))
	rec := httptest.NewRecorder()
	f.handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if f.engine.calls != 0 {
		t.Fatal("engine should not run for an unsupported bank")
	}
}

func TestUploadCompletesAndMetersUsage(t *testing.T) {
	f := newConversionFixture(t)

	req := uploadRequest(t, f.userID, "/api/conversions/upload?bank_name=BPI", "extrato.pdf", []byte("%PDF-1.7 data"))
	rec := httptest.NewRecorder()
	f.handler.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var conv model.Conversion
	json.NewDecoder(rec.Body).Decode(&conv)
	if conv.Status != model.ConversionCompleted {
		t.Fatalf("status = %s, want completed", conv.Status)
	}
	if conv.PagesCount != 2 {
		t.Fatalf("pages = %d, want engine-reported 2", conv.PagesCount)
	}
	if conv.OriginalFilename != "extrato.pdf" || conv.BankName != "BPI" {
		t.Fatalf("conversion = %+v", conv)
	}

	sub, _ := f.subs.GetActiveByUserID(f.userID)
	if sub.ConversionsUsedThisMonth != 1 {
		t.Fatalf("conversions used = %d, want 1", sub.ConversionsUsedThisMonth)
	}
	if sub.PagesUsedThisMonth != 2 {
		t.Fatalf("pages used = %d, want 2", sub.PagesUsedThisMonth)
	}
}

func TestUploadQuotaExceeded(t *testing.T) {
	f := newConversionFixture(t)
	// Burn the free tier's conversion allowance.
	for range 5 {
		if err := f.subs.AddUsage(f.subID, 1); err != nil {
			t.Fatalf("add usage: %v", err)
		}
	}

	req := uploadRequest(t, f.userID, "/api/conversions/upload?bank_name=BPI", "extrato.pdf", []byte("%PDF-1.4"))
	rec := httptest.NewRecorder()
	f.handler.Upload(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if f.engine.calls != 0 {
		t.Fatal("engine should not run when quota is exhausted")
	}
}

func TestUploadEngineFailureMarksConversionFailed(t *testing.T) {
	f := newConversionFixture(t)
	f.engine.statement = nil
	f.engine.err = errors.New("layout not recognized")

	req := uploadRequest(t, f.userID, "/api/conversions/upload?bank_name=BPI", "extrato.pdf", []byte("%PDF-1.4"))
	rec := httptest.NewRecorder()
	f.handler.Upload(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	list, err := f.convs.ListByUserID(f.userID)
	if err != nil || len(list) != 1 {
		t.Fatalf("conversions = %v, %v", list, err)
	}
	if list[0].Status != model.ConversionFailed {
		t.Fatalf("status = %s, want failed", list[0].Status)
	}

	sub, _ := f.subs.GetActiveByUserID(f.userID)
	if sub.ConversionsUsedThisMonth != 0 {
		t.Fatal("failed conversion must not consume quota")
	}
}

func TestDownloadLifecycle(t *testing.T) {
	f := newConversionFixture(t)

	req := uploadRequest(t, f.userID, "/api/conversions/upload?bank_name=BPI", "extrato.pdf", []byte("%PDF-1.7"))
	rec := httptest.NewRecorder()
	f.handler.Upload(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}
	var conv model.Conversion
	json.NewDecoder(rec.Body).Decode(&conv)

	dlReq := httptest.NewRequest(http.MethodGet, "/api/conversions/"+conv.ID+"/download/csv", nil)
	dlReq = dlReq.WithContext(auth.WithUserID(dlReq.Context(), f.userID))
	dlReq.SetPathValue("id", conv.ID)
	dlReq.SetPathValue("format", "csv")
	dlRec := httptest.NewRecorder()
	f.handler.Download(dlRec, dlReq)

	if dlRec.Code != http.StatusOK {
		t.Fatalf("download status = %d, body %s", dlRec.Code, dlRec.Body)
	}
	if got := dlRec.Header().Get("Content-Disposition"); got != `attachment; filename="extrato.pdf.csv"` {
		t.Fatalf("content-disposition = %q", got)
	}
	if !bytes.Contains(dlRec.Body.Bytes(), []byte("Ordenado")) {
		t.Fatal("artifact missing transaction data")
	}
}

func TestDownloadNonCompletedConflicts(t *testing.T) {
	f := newConversionFixture(t)
	conv, err := f.convs.Create(f.userID, "extrato.pdf", "BPI", 1)
	if err != nil {
		t.Fatalf("create conversion: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/conversions/"+conv.ID+"/download/csv", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), f.userID))
	req.SetPathValue("id", conv.ID)
	req.SetPathValue("format", "csv")
	rec := httptest.NewRecorder()
	f.handler.Download(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
