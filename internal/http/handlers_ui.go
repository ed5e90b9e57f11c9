package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"orcamentos/internal/auth"
	"orcamentos/internal/core"
	applog "orcamentos/internal/log"
	"orcamentos/internal/services"
	"orcamentos/internal/store"
)

const (
	pageTitle = "Orçamentos"

	msgRegisterMissing = "Preencha nome, email e senha."
	msgRegisterOK      = "Usuário criado com sucesso! Agora faça login."
	msgRegisterFailed  = "Erro ao registrar: "
	msgLoginMissing    = "Preencha email e senha."
	msgLoginFailed     = "Credenciais inválidas."
	msgBudgetMissing   = "Preencha pelo menos título e ano."
	msgBudgetSaved     = "Orçamento salvo com sucesso!"
	msgSessionExpired  = "Sessão expirada. Entre novamente."
	msgInternal        = "Erro interno. Tente novamente mais tarde."
)

type noticeView struct {
	Kind    NotificationType
	Message string
}

type authPage struct {
	View   ViewContext
	Title  string
	Name   string
	Email  string
	Notice *noticeView
}

type painelPage struct {
	View   ViewContext
	Title  string
	Notice *noticeView
}

type rowsData struct {
	Rows   []budgetView
	Failed bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := viewFromContext(r.Context())
	if view.LoggedIn() {
		http.Redirect(w, r, "/painel", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", authPage{View: view, Title: pageTitle})
}

func (s *Server) handlePainel(w http.ResponseWriter, r *http.Request) {
	view := viewFromContext(r.Context())
	if !view.LoggedIn() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "painel.html", painelPage{View: view, Title: pageTitle})
}

// authFailure shows msg in the notice area, or re-renders the login page without htmx.
func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, status int, page authPage, msg string) {
	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}
	page.Notice = &noticeView{Kind: NotificationError, Message: msg}
	s.render(w, r, status, "index.html", page)
}

func (s *Server) handleUIRegister(w http.ResponseWriter, r *http.Request) {
	p, failure := ParseBodyOrFail(r)
	if failure != nil {
		failure.Write(w)
		return
	}

	page := authPage{
		View:  viewFromContext(r.Context()),
		Title: pageTitle,
		Name:  p.Get("nome"),
		Email: p.Get("email"),
	}
	password := p.Get("senha")
	if page.Name == "" || page.Email == "" || password == "" {
		s.authFailure(w, r, http.StatusBadRequest, page, msgRegisterMissing)
		return
	}

	_, err := s.accounts.Register(r.Context(), core.Registration{Name: page.Name, Email: page.Email, Password: password})
	if err != nil {
		var verrs core.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			s.authFailure(w, r, http.StatusBadRequest, page, msgRegisterFailed+validationSummary(verrs))
		case errors.Is(err, store.ErrEmailExists):
			s.authFailure(w, r, http.StatusBadRequest, page, msgRegisterFailed+err.Error())
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Registration failed",
				applog.FieldOperation, applog.OpRegister,
				applog.FieldError, err)
			s.authFailure(w, r, http.StatusInternalServerError, page, msgRegisterFailed+msgInternal)
		}
		return
	}
	atomic.AddInt64(&s.appMetrics.usersRegistered, 1)

	// The login form comes back with only the email filled in.
	done := authPage{
		View:   page.View,
		Title:  pageTitle,
		Email:  core.NormalizeEmail(page.Email),
		Notice: &noticeView{Kind: NotificationSuccess, Message: msgRegisterOK},
	}
	if !isHTMX(r) {
		s.render(w, r, http.StatusOK, "index.html", done)
		return
	}
	html, err := s.renderFragment("auth_card", done)
	if err != nil {
		s.fragmentFailed(w, r, "auth_card", err)
		return
	}
	NewHTMXResponse().Retarget("#loginCard", "outerHTML").BodyHTML(html).Write(w)
}

func (s *Server) handleUILogin(w http.ResponseWriter, r *http.Request) {
	p, failure := ParseBodyOrFail(r)
	if failure != nil {
		failure.Write(w)
		return
	}

	page := authPage{
		View:  viewFromContext(r.Context()),
		Title: pageTitle,
		Email: p.Get("email"),
	}
	password := p.Get("senha")
	if page.Email == "" || password == "" {
		s.authFailure(w, r, http.StatusBadRequest, page, msgLoginMissing)
		return
	}

	u, err := s.accounts.Login(r.Context(), page.Email, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			atomic.AddInt64(&s.appMetrics.loginFailures, 1)
			s.authFailure(w, r, http.StatusUnauthorized, page, msgLoginFailed)
			return
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Login failed",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldError, err)
		s.authFailure(w, r, http.StatusInternalServerError, page, msgInternal)
		return
	}

	if err := s.sessions.Login(w, r, auth.SessionUser{ID: u.ID, Name: u.Name}); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session save failed",
			applog.FieldComponent, applog.ComponentSession,
			applog.FieldUserID, u.ID,
			applog.FieldError, err)
		s.authFailure(w, r, http.StatusInternalServerError, page, msgInternal)
		return
	}
	s.navigate(w, r, "/painel")
}

func (s *Server) handleUILogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session clear failed",
			applog.FieldComponent, applog.ComponentSession,
			applog.FieldError, err)
	}
	s.navigate(w, r, "/")
}

// navigate sends htmx clients an HX-Redirect and everyone else a 303.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(path).Write(w)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (s *Server) handleBudgetRows(w http.ResponseWriter, r *http.Request) {
	view := viewFromContext(r.Context())
	if !view.LoggedIn() {
		UnauthorizedError(msgSessionExpired).Redirect("/").Write(w)
		return
	}

	data := rowsData{}
	entries, err := s.budgets.ListByOwner(r.Context(), view.User.ID)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List budget entries failed",
			applog.FieldOperation, applog.OpList,
			applog.FieldUserID, view.User.ID,
			applog.FieldError, err)
		data.Failed = true
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, toBudgetView(e))
	}

	html, err := s.renderFragment("rows", data)
	if err != nil {
		s.fragmentFailed(w, r, "rows", err)
		return
	}
	NewHTMXResponse().BodyHTML(html).Write(w)
}

// budgetFailure shows msg next to the form, or re-renders the page without htmx.
func (s *Server) budgetFailure(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}
	s.render(w, r, status, "painel.html", painelPage{
		View:   viewFromContext(r.Context()),
		Title:  pageTitle,
		Notice: &noticeView{Kind: NotificationError, Message: msg},
	})
}

func (s *Server) handleUICreateBudget(w http.ResponseWriter, r *http.Request) {
	view := viewFromContext(r.Context())
	if !view.LoggedIn() {
		if isHTMX(r) {
			UnauthorizedError(msgSessionExpired).Redirect("/").Write(w)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	p, failure := ParseBodyOrFail(r)
	if failure != nil {
		failure.Write(w)
		return
	}
	if p.Get("titulo") == "" || p.Get("ano") == "" {
		s.budgetFailure(w, r, http.StatusBadRequest, msgBudgetMissing)
		return
	}
	if ownerID, present, valid := parseOwnerID(p.Get("usuario_id")); !valid || (present && ownerID != view.User.ID) {
		s.budgetFailure(w, r, http.StatusForbidden, "Usuário não corresponde à sessão.")
		return
	}

	entry, perrs := budgetFromRequest(p, view.User.ID)
	if perrs != nil {
		errs := mergeValidation(perrs, entry.Normalize().Validate())
		s.budgetFailure(w, r, http.StatusBadRequest, "Dados inválidos: "+validationSummary(errs))
		return
	}

	id, err := s.budgets.Create(r.Context(), entry)
	if err != nil {
		var verrs core.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			s.budgetFailure(w, r, http.StatusBadRequest, "Dados inválidos: "+validationSummary(verrs))
		case errors.Is(err, store.ErrUserNotFound):
			s.budgetFailure(w, r, http.StatusUnauthorized, msgSessionExpired)
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Create budget entry failed",
				applog.FieldOperation, applog.OpCreate,
				applog.FieldUserID, view.User.ID,
				applog.FieldError, err)
			s.budgetFailure(w, r, http.StatusInternalServerError, "Erro ao salvar orçamento.")
		}
		return
	}
	atomic.AddInt64(&s.appMetrics.budgetsCreated, 1)

	if !isHTMX(r) {
		http.Redirect(w, r, "/painel", http.StatusSeeOther)
		return
	}
	SuccessResponse(msgBudgetSaved).
		TriggerFormReset().
		TriggerBudgetCreated(id, entry.Year).
		Write(w)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	prefs := viewFromContext(r.Context()).Prefs.ToggleTheme()
	s.writePreferences(w, prefs)
	s.refresh(w, r)
}

func (s *Server) handleAdjustFont(w http.ResponseWriter, r *http.Request) {
	delta, err := strconv.Atoi(r.URL.Query().Get("delta"))
	if err != nil {
		BadRequestError("Ajuste de fonte inválido.").Write(w)
		return
	}
	prefs := viewFromContext(r.Context()).Prefs.AdjustFont(delta)
	s.writePreferences(w, prefs)
	s.refresh(w, r)
}

// refresh reloads the page the preference change came from.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		NewHTMXResponse().Refresh().Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderFragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) fragmentFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
		applog.FieldComponent, applog.ComponentTemplate,
		applog.FieldOperation, applog.OpRender,
		"template", name,
		applog.FieldError, err)
	InternalServerError(msgInternal).Write(w)
}
