package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Transaction is one statement line as reported by the extraction service.
type Transaction struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Kind        string  `json:"kind"`
	TaxCategory string  `json:"tax_category,omitempty"`
}

// Statement is the structured result of extracting one bank statement PDF.
type Statement struct {
	Bank           string        `json:"bank"`
	Account        string        `json:"account,omitempty"`
	Period         string        `json:"period,omitempty"`
	OpeningBalance float64       `json:"opening_balance"`
	ClosingBalance float64       `json:"closing_balance"`
	Pages          int           `json:"pages"`
	Transactions   []Transaction `json:"transactions"`
}

// Engine extracts structured statement data from a PDF. The bank-specific
// layout parsing lives behind this interface; the service only consumes the
// result contract.
type Engine interface {
	Extract(ctx context.Context, pdf io.Reader, bankName string) (*Statement, error)
}

// HTTPEngine delegates extraction to an external service over HTTP.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEngine(baseURL string) *HTTPEngine {
	return &HTTPEngine{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *HTTPEngine) Extract(ctx context.Context, pdf io.Reader, bankName string) (*Statement, error) {
	u := fmt.Sprintf("%s/extract?bank_name=%s", e.baseURL, url.QueryEscape(bankName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pdf)
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var st Statement
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	if st.Bank == "" {
		st.Bank = bankName
	}
	return &st, nil
}
