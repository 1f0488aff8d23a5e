package audit

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	records := []Record{
		{
			UserID:    "1",
			UserName:  "=HYPERLINK(\"x\")",
			Action:    ActionUpdate,
			Entity:    "course",
			EntityID:  "5",
			Details:   map[string]any{"title": "Matematika"},
			CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{UserID: "2", UserName: "Sari", Action: ActionDelete, Entity: "notice", EntityID: "8", CreatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}

	out, err := WriteCSV(records)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "2024-03-01T10:00:00Z", rows[1][0])
	assert.Equal(t, "'=HYPERLINK(\"x\")", rows[1][2])
	assert.Equal(t, `{"title":"Matematika"}`, rows[1][6])
	assert.Equal(t, "", rows[2][6])
}

func TestCSVCell(t *testing.T) {
	for _, value := range []string{"=1+1", "+62", "-5", "@SUM", "\tx"} {
		assert.Equal(t, "'"+value, csvCell(value))
	}
	assert.Equal(t, "Budi", csvCell("Budi"))
	assert.Equal(t, "", csvCell(""))
}
