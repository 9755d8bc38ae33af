package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pmfcarvalho/extrato/internal/model"
)

type ConversionStore struct {
	db *sql.DB
}

func NewConversionStore(db *sql.DB) *ConversionStore {
	return &ConversionStore{db: db}
}

func scanConversion(scanner interface{ Scan(...any) error }) (*model.Conversion, error) {
	var c model.Conversion
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.OriginalFilename, &c.BankName,
		&c.PagesCount, &c.Status, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const conversionCols = `id, user_id, original_filename, bank_name, pages_count, status, created_at`

// Create inserts a new conversion in processing state and returns it.
func (s *ConversionStore) Create(userID, filename, bankName string, pages int) (*model.Conversion, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO conversions (id, user_id, original_filename, bank_name, pages_count, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, filename, bankName, pages, model.ConversionProcessing, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversion: %w", err)
	}
	return s.GetByID(id, userID)
}

// GetByID returns the conversion scoped to its owner, or nil if not found.
func (s *ConversionStore) GetByID(id, userID string) (*model.Conversion, error) {
	row := s.db.QueryRow(
		`SELECT `+conversionCols+` FROM conversions WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	c, err := scanConversion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	return c, nil
}

// ListByUserID returns the user's conversions, most recent first.
func (s *ConversionStore) ListByUserID(userID string) ([]*model.Conversion, error) {
	rows, err := s.db.Query(
		`SELECT `+conversionCols+` FROM conversions WHERE user_id = ? ORDER BY created_at DESC LIMIT 100`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var conversions []*model.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		conversions = append(conversions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return conversions, nil
}

// SetStatus moves the conversion to the given status. Terminal statuses are
// never overwritten; the transition is forward-only.
func (s *ConversionStore) SetStatus(id string, status model.ConversionStatus) error {
	_, err := s.db.Exec(
		`UPDATE conversions SET status = ? WHERE id = ? AND status = ?`,
		status, id, model.ConversionProcessing,
	)
	if err != nil {
		return fmt.Errorf("set conversion status: %w", err)
	}
	return nil
}

// SetPages corrects the page count once the extraction engine has reported
// the real value.
func (s *ConversionStore) SetPages(id string, pages int) error {
	_, err := s.db.Exec(
		`UPDATE conversions SET pages_count = ? WHERE id = ?`,
		pages, id,
	)
	if err != nil {
		return fmt.Errorf("set conversion pages: %w", err)
	}
	return nil
}
