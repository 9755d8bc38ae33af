package converter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Transacoes"

var artifactHeader = []string{"data", "descricao", "valor", "tipo", "categoria_fiscal"}

// WriteCSV writes the statement's transactions as CSV.
func WriteCSV(w io.Writer, st *Statement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(artifactHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range st.Transactions {
		record := []string{
			tx.Date,
			tx.Description,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Kind,
			tx.TaxCategory,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the statement's transactions as a single-sheet workbook.
func WriteXLSX(w io.Writer, st *Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(artifactHeader))
	for i, h := range artifactHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, tx := range st.Transactions {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{tx.Date, tx.Description, tx.Amount, tx.Kind, tx.TaxCategory}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
