package http

import (
	"errors"
	"mime"
	"net/http"
	"sync/atomic"

	"orcamentos/internal/auth"
	"orcamentos/internal/core"
	applog "orcamentos/internal/log"
	"orcamentos/internal/services"
	"orcamentos/internal/store"
)

type errorBody struct {
	Error  string            `json:"error"`
	Campos map[string]string `json:"campos,omitempty"`
}

type userBody struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

type loginBody struct {
	Sucesso bool      `json:"sucesso"`
	Usuario *userBody `json:"usuario,omitempty"`
	Msg     string    `json:"msg,omitempty"`
}

type idBody struct {
	ID int64 `json:"id"`
}

func toUserBody(u core.User) userBody {
	return userBody{ID: u.ID, Nome: u.Name, Email: u.Email}
}

// parseJSONBody writes the error response itself and reports whether the handler may continue.
// Only application/json bodies are accepted, so plain cross-site form posts never reach the handlers.
func parseJSONBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody{Error: "Content-Type deve ser application/json"})
		return nil, false
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "JSON inválido"})
		return nil, false
	}
	return p, true
}

// requireAPIUser answers 401 when the request carries no valid session.
func requireAPIUser(w http.ResponseWriter, r *http.Request) (auth.SessionUser, bool) {
	view := viewFromContext(r.Context())
	if view.User == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "não autenticado"})
		return auth.SessionUser{}, false
	}
	return *view.User, true
}

// writeServiceError maps service and store errors to JSON responses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var verrs core.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "dados inválidos", Campos: verrs})
	case errors.Is(err, store.ErrEmailExists):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: store.ErrEmailExists.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, loginBody{Sucesso: false, Msg: services.ErrInvalidCredentials.Error()})
	case errors.Is(err, store.ErrUserNotFound):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "sessão inválida"})
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, operation,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "erro interno"})
	}
}

func (s *Server) handleAPIRegister(w http.ResponseWriter, r *http.Request) {
	p, ok := parseJSONBody(w, r)
	if !ok {
		return
	}

	id, err := s.accounts.Register(r.Context(), core.Registration{
		Name:     p.Get("nome"),
		Email:    p.Get("email"),
		Password: p.Get("senha"),
	})
	if err != nil {
		s.writeServiceError(w, r, applog.OpRegister, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.usersRegistered, 1)
	writeJSON(w, http.StatusOK, idBody{ID: id})
}

func (s *Server) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	p, ok := parseJSONBody(w, r)
	if !ok {
		return
	}

	u, err := s.accounts.Login(r.Context(), p.Get("email"), p.Get("senha"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			atomic.AddInt64(&s.appMetrics.loginFailures, 1)
		}
		s.writeServiceError(w, r, applog.OpLogin, err)
		return
	}

	if err := s.sessions.Login(w, r, auth.SessionUser{ID: u.ID, Name: u.Name}); err != nil {
		s.writeServiceError(w, r, applog.OpLogin, err)
		return
	}

	body := toUserBody(u)
	writeJSON(w, http.StatusOK, loginBody{Sucesso: true, Usuario: &body})
}

func (s *Server) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		s.writeServiceError(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIMe(w http.ResponseWriter, r *http.Request) {
	su, ok := requireAPIUser(w, r)
	if !ok {
		return
	}

	u, err := s.accounts.GetUser(r.Context(), su.ID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserBody(u))
}

func (s *Server) handleAPIListBudgets(w http.ResponseWriter, r *http.Request) {
	su, ok := requireAPIUser(w, r)
	if !ok {
		return
	}

	entries, err := s.budgets.ListByOwner(r.Context(), su.ID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}

	rows := make([]budgetRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, toBudgetRow(e))
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAPICreateBudget(w http.ResponseWriter, r *http.Request) {
	su, ok := requireAPIUser(w, r)
	if !ok {
		return
	}
	p, ok := parseJSONBody(w, r)
	if !ok {
		return
	}

	ownerID, present, valid := parseOwnerID(p.Get("usuario_id"))
	if !valid {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "dados inválidos",
			Campos: core.ValidationErrors{"usuario_id": "usuário inválido"},
		})
		return
	}
	if present && ownerID != su.ID {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Budget owner does not match session",
			applog.FieldUserID, su.ID,
			"requested_owner", ownerID)
		writeJSON(w, http.StatusForbidden, errorBody{Error: "usuario_id não corresponde ao usuário da sessão"})
		return
	}

	entry, perrs := budgetFromRequest(p, su.ID)
	if perrs != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "dados inválidos",
			Campos: mergeValidation(perrs, entry.Normalize().Validate()),
		})
		return
	}

	id, err := s.budgets.Create(r.Context(), entry)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.budgetsCreated, 1)
	writeJSON(w, http.StatusOK, idBody{ID: id})
}
