package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"orcamentos/internal/core"
)

// budgetRow is the wire shape of a budget entry.
type budgetRow struct {
	ID             int64   `json:"id"`
	Titulo         string  `json:"titulo"`
	Ano            int     `json:"ano"`
	ValorPrevisto  float64 `json:"valor_previsto"`
	ValorExecutado float64 `json:"valor_executado"`
	Descricao      string  `json:"descricao"`
	UsuarioID      int64   `json:"usuario_id"`
}

func toBudgetRow(e core.BudgetEntry) budgetRow {
	return budgetRow{
		ID:             e.ID,
		Titulo:         e.Title,
		Ano:            e.Year,
		ValorPrevisto:  e.Planned.Float(),
		ValorExecutado: e.Executed.Float(),
		Descricao:      e.Description,
		UsuarioID:      e.OwnerID,
	}
}

// budgetView is what the rows template renders.
type budgetView struct {
	ID        int64
	Title     string
	Year      int
	Planned   string
	Executed  string
	Desc      string
	Overspent bool
}

func toBudgetView(e core.BudgetEntry) budgetView {
	return budgetView{
		ID:        e.ID,
		Title:     e.Title,
		Year:      e.Year,
		Planned:   formatBRL(e.Planned),
		Executed:  formatBRL(e.Executed),
		Desc:      e.Description,
		Overspent: e.Executed.Cents > e.Planned.Cents,
	}
}

// formatBRL formats an amount as a pt-BR currency string (e.g., "R$ 1.000,50").
func formatBRL(m core.Money) string {
	return "R$ " + m.FormatBRL()
}

// budgetFromRequest reads the entry fields by wire name. Fields that cannot be
// parsed are reported in the returned map; the entry still carries what could be read.
func budgetFromRequest(p *RequestBodyParser, ownerID int64) (core.BudgetEntry, core.ValidationErrors) {
	errs := core.ValidationErrors{}
	e := core.BudgetEntry{
		Title:       p.Get("titulo"),
		Description: p.Get("descricao"),
		OwnerID:     ownerID,
	}

	if v := p.Get("ano"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			errs["ano"] = core.ErrInvalidYear.Error()
		}
		e.Year = year
	}

	for field, dst := range map[string]*core.Money{
		"valor_previsto":  &e.Planned,
		"valor_executado": &e.Executed,
	} {
		cents, err := core.ParseDecimalToCents(p.Get(field))
		if err != nil {
			errs[field] = core.ErrInvalidAmount.Error()
			continue
		}
		dst.Cents = cents
	}

	if len(errs) == 0 {
		return e, nil
	}
	return e, errs
}

// mergeValidation adds the problems found by Validate to errs without overwriting parse errors.
func mergeValidation(errs core.ValidationErrors, err error) core.ValidationErrors {
	if errs == nil {
		errs = core.ValidationErrors{}
	}
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		for field, msg := range verrs {
			if _, exists := errs[field]; !exists {
				errs[field] = msg
			}
		}
	}
	return errs
}

// validationSummary joins field messages in a stable order for notices.
func validationSummary(errs core.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, errs[f])
	}
	return strings.Join(msgs, "; ")
}

// parseOwnerID reads an optional usuario_id. ok is false when the value is present but malformed.
func parseOwnerID(v string) (id int64, present, ok bool) {
	if v == "" {
		return 0, false, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, true, false
	}
	return id, true, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
