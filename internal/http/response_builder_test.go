package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerBudgetCreated(7, 2024).
		TriggerFormReset().
		TriggerSuccessNotification("Orçamento salvo").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"orcamento:created"`,
		`"orcamentos:refresh"`,
		`"form:reset"`,
		`"show-notification"`,
		`"id":7`,
		`"ano":2024`,
		`"type":"success"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_Navigation(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		headers map[string]string
	}{
		{
			name:    "redirect",
			builder: NewHTMXResponse().Redirect("/painel"),
			headers: map[string]string{"HX-Redirect": "/painel"},
		},
		{
			name:    "refresh",
			builder: NewHTMXResponse().Refresh(),
			headers: map[string]string{"HX-Refresh": "true"},
		},
		{
			name:    "retarget",
			builder: NewHTMXResponse().Retarget("#loginCard", "outerHTML"),
			headers: map[string]string{"HX-Retarget": "#loginCard", "HX-Reswap": "outerHTML"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			for name, want := range tt.headers {
				if got := w.Header().Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("Preencha email e senha."),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error" role="alert">Preencha email e senha.</div>`,
		},
		{
			name:       "unauthorized",
			builder:    UnauthorizedError("Credenciais inválidas."),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `<div class="error" role="alert">Credenciais inválidas.</div>`,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("Erro interno"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error" role="alert">Erro interno</div>`,
		},
		{
			name:       "too many requests",
			builder:    TooManyRequestsError("Devagar"),
			wantStatus: http.StatusTooManyRequests,
			wantBody:   `<div class="error" role="alert">Devagar</div>`,
		},
		{
			name:       "success",
			builder:    SuccessResponse("Usuário criado com sucesso! Agora faça login."),
			wantStatus: http.StatusOK,
			wantBody:   `<div class="success" role="alert">Usuário criado com sucesso! Agora faça login.</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q, want text/html", ct)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestNotificationTypes(t *testing.T) {
	tests := []struct {
		notifType NotificationType
		want      string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().
			TriggerNotification(tt.notifType, "test", 1000).
			Write(w)

		trigger := w.Header().Get("HX-Trigger")
		if !strings.Contains(trigger, `"type":"`+tt.want+`"`) {
			t.Errorf("Notification type %q not found in trigger: %s", tt.want, trigger)
		}
	}
}
