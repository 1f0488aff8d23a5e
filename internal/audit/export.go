package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"time"
)

var csvHeader = []string{"created_at", "user_id", "user_name", "action", "entity", "entity_id", "details"}

// WriteCSV renders records as CSV with a header row.
func WriteCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		details := ""
		if len(rec.Details) > 0 {
			raw, err := json.Marshal(rec.Details)
			if err != nil {
				return nil, err
			}
			details = string(raw)
		}
		row := []string{
			rec.CreatedAt.UTC().Format(time.RFC3339),
			csvCell(rec.UserID),
			csvCell(rec.UserName),
			rec.Action.String(),
			csvCell(rec.Entity),
			csvCell(rec.EntityID),
			csvCell(details),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// csvCell neutralises values that spreadsheets would evaluate as formulas.
func csvCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}
