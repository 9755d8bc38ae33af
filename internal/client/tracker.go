package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/pmfcarvalho/extrato/internal/converter"
	"github.com/pmfcarvalho/extrato/internal/model"
)

// Tracker maintains the account's conversion jobs. Job status is pull-based:
// a job reported as processing stays processing in the caller's view until
// the next ListJobs refresh — the tracker never polls on its own.
type Tracker struct {
	client    *Client
	uploading atomic.Bool
}

func NewTracker(c *Client) *Tracker {
	return &Tracker{client: c}
}

var pdfMagic = []byte("%PDF-")

// SubmitUpload validates the document locally and issues a single upload
// request. Bad input is rejected before any network call. A second submit
// while one is in flight is refused; uploads of distinct jobs from distinct
// controls are the caller's concern.
func (t *Tracker) SubmitUpload(ctx context.Context, filename string, content []byte, bankName string) (*model.Conversion, error) {
	if !bytes.HasPrefix(content, pdfMagic) {
		return nil, &ValidationError{Reason: "only PDF documents are accepted"}
	}
	if !converter.SupportedBank(bankName) {
		return nil, &ValidationError{Reason: "unsupported bank: " + bankName}
	}

	if !t.uploading.CompareAndSwap(false, true) {
		return nil, &ValidationError{Reason: "an upload is already in progress"}
	}
	defer t.uploading.Store(false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if _, err := part.Write(content); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if err := mw.Close(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	path := "/api/conversions/upload?bank_name=" + url.QueryEscape(bankName)
	resp, err := t.client.do(ctx, http.MethodPost, path, &body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var job model.Conversion
	if err := decodeJSON(resp.Body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns the account's conversions, most recent first. On failure
// the caller's previous list stays valid; nothing is partially updated.
func (t *Tracker) ListJobs(ctx context.Context) ([]model.Conversion, error) {
	var jobs []model.Conversion
	if err := t.client.getJSON(ctx, "/api/conversions", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns one conversion by id.
func (t *Tracker) GetJob(ctx context.Context, jobID string) (*model.Conversion, error) {
	var job model.Conversion
	if err := t.client.getJSON(ctx, "/api/conversions/"+url.PathEscape(jobID), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Download fetches a completed job's artifact in the given format and
// returns the stream with a suggested filename. Callers should gate this on
// job status; a non-completed job is rejected here regardless.
func (t *Tracker) Download(ctx context.Context, jobID, format string) (io.ReadCloser, string, error) {
	var ext string
	switch format {
	case "csv":
		ext = ".csv"
	case "excel":
		ext = ".xlsx"
	default:
		return nil, "", &ValidationError{Reason: "format must be csv or excel"}
	}

	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != model.ConversionCompleted {
		return nil, "", &NotReadyError{Resource: "conversion " + jobID, State: string(job.Status)}
	}

	path := fmt.Sprintf("/api/conversions/%s/download/%s", url.PathEscape(jobID), format)
	resp, err := t.client.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, "", err
	}

	name := strings.TrimSuffix(job.OriginalFilename, ".pdf") + ext
	return resp.Body, name, nil
}
