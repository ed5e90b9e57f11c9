package google

import (
	"fmt"
	"strconv"
	"strings"

	"orcamentos/internal/core"
)

// Header is the column layout of the export sheet.
var Header = []string{"id", "usuario_id", "titulo", "ano", "valor_previsto", "valor_executado", "descricao"}

// budgetRow lays out e in Header order. Amounts are plain numbers so the sheet can sum them.
func budgetRow(e core.BudgetEntry) []any {
	return []any{
		e.ID,
		e.OwnerID,
		e.Title,
		e.Year,
		e.Planned.Float(),
		e.Executed.Float(),
		e.Description,
	}
}

// parseExportedIDs collects the numeric ids of column A, skipping the header and blank rows.
func parseExportedIDs(values [][]any) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(fmt.Sprint(row[0]))
		id, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			// Numbers may come back formatted as floats.
			f, ferr := strconv.ParseFloat(cell, 64)
			if ferr != nil || f != float64(int64(f)) {
				continue
			}
			id = int64(f)
		}
		if id > 0 {
			ids[id] = struct{}{}
		}
	}
	return ids
}
