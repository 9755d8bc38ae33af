package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testStatement = &Statement{
	Bank:           "Millennium",
	Period:         "01/01/2026 - 31/01/2026",
	OpeningBalance: 1000.00,
	ClosingBalance: 850.50,
	Pages:          3,
	Transactions: []Transaction{
		{Date: "05/01/2026", Description: "Supermercado", Amount: 42.30, Kind: "debito"},
		{Date: "12/01/2026", Description: "Ordenado", Amount: 1200.00, Kind: "credito", TaxCategory: "IRS"},
	},
}

func TestHTTPEngineExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("bank_name"); got != "Millennium" {
			t.Errorf("bank_name = %q, want %q", got, "Millennium")
		}
		body, _ := io.ReadAll(r.Body)
		if !bytes.HasPrefix(body, []byte("%PDF-")) {
			t.Error("expected PDF body to be forwarded")
		}
		json.NewEncoder(w).Encode(testStatement)
	}))
	defer server.Close()

	engine := NewHTTPEngine(server.URL)
	st, err := engine.Extract(context.Background(), strings.NewReader("%PDF-1.4 fake"), "Millennium")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if st.Pages != 3 {
		t.Errorf("pages = %d, want 3", st.Pages)
	}
	if len(st.Transactions) != 2 {
		t.Errorf("transactions = %d, want 2", len(st.Transactions))
	}
}

func TestHTTPEngineExtractServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	engine := NewHTTPEngine(server.URL)
	if _, err := engine.Extract(context.Background(), strings.NewReader("%PDF-"), "BPI"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestHTTPEngineFillsBankName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&Statement{Pages: 1})
	}))
	defer server.Close()

	engine := NewHTTPEngine(server.URL)
	st, err := engine.Extract(context.Background(), strings.NewReader("%PDF-"), "BPI")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if st.Bank != "BPI" {
		t.Errorf("bank = %q, want %q", st.Bank, "BPI")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testStatement); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3 (header + 2 rows)", len(lines))
	}
	if lines[0] != "data,descricao,valor,tipo,categoria_fiscal" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "42.30") {
		t.Errorf("row 1 = %q, want amount 42.30", lines[1])
	}
	if !strings.Contains(lines[2], "IRS") {
		t.Errorf("row 2 = %q, want tax category IRS", lines[2])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, testStatement); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	// XLSX is a zip archive; check the magic bytes rather than parsing it back.
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("expected zip container output")
	}
}
