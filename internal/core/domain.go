package core

import (
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLength        = 100
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MinPasswordLength    = 6
	MinYear              = 1900
	MaxYear              = 2200
)

type (
	// User is a registered account. PasswordHash holds an Argon2id PHC string
	// and is never serialized.
	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Registration carries the raw fields of a sign-up request.
	Registration struct {
		Name     string
		Email    string
		Password string
	}

	// BudgetEntry is a planned vs. executed spending record for a titled item in a year.
	BudgetEntry struct {
		ID          int64
		Title       string
		Year        int
		Planned     Money
		Executed    Money
		Description string
		OwnerID     int64
		CreatedAt   time.Time
	}
)

var (
	ErrEmptyName        = errors.New("nome é obrigatório")
	ErrNameTooLong      = errors.New("nome muito longo")
	ErrInvalidEmail     = errors.New("email inválido")
	ErrPasswordTooShort = errors.New("senha deve ter pelo menos 6 caracteres")
	ErrEmptyTitle       = errors.New("título é obrigatório")
	ErrTitleTooLong     = errors.New("título muito longo")
	ErrInvalidYear      = errors.New("ano inválido")
	ErrInvalidAmount    = errors.New("valor inválido")
	ErrDescTooLong      = errors.New("descrição muito longa")
	ErrMissingOwner     = errors.New("usuário dono ausente")
)

// ValidationErrors maps a wire field name to the problem found in it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "dados inválidos: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) add(field string, err error) {
	if _, exists := v[field]; !exists {
		v[field] = err.Error()
	}
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// NormalizeEmail trims and lower-cases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize returns a copy with trimmed name and normalized email. The password is left untouched.
func (r Registration) Normalize() Registration {
	return Registration{
		Name:     strings.TrimSpace(r.Name),
		Email:    NormalizeEmail(r.Email),
		Password: r.Password,
	}
}

func (r Registration) Validate() error {
	errs := ValidationErrors{}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		errs.add("nome", ErrEmptyName)
	} else if utf8.RuneCountInString(name) > MaxNameLength {
		errs.add("nome", ErrNameTooLong)
	}
	if !validEmail(r.Email) {
		errs.add("email", ErrInvalidEmail)
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Password)) < MinPasswordLength {
		errs.add("senha", ErrPasswordTooShort)
	}
	return errs.orNil()
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Ana <ana@x.com>".
	return addr.Address == email
}

// Normalize trims the text fields.
func (e BudgetEntry) Normalize() BudgetEntry {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	return e
}

func (e BudgetEntry) Validate() error {
	errs := ValidationErrors{}
	title := strings.TrimSpace(e.Title)
	if title == "" {
		errs.add("titulo", ErrEmptyTitle)
	} else if utf8.RuneCountInString(title) > MaxTitleLength {
		errs.add("titulo", ErrTitleTooLong)
	}
	if e.Year < MinYear || e.Year > MaxYear {
		errs.add("ano", ErrInvalidYear)
	}
	if err := e.Planned.Validate(); err != nil {
		errs.add("valor_previsto", err)
	}
	if err := e.Executed.Validate(); err != nil {
		errs.add("valor_executado", err)
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		errs.add("descricao", ErrDescTooLong)
	}
	if e.OwnerID <= 0 {
		errs.add("usuario_id", ErrMissingOwner)
	}
	return errs.orNil()
}

// FilterByOwner returns the entries owned by ownerID, preserving order.
func FilterByOwner(entries []BudgetEntry, ownerID int64) []BudgetEntry {
	out := make([]BudgetEntry, 0, len(entries))
	for _, e := range entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out
}
