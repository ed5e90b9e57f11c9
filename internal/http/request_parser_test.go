package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"titulo": "Roads", "ano": 2024, "valor_previsto": 1000.5, "usuario_id": 1, "descricao": null}`
	req := httptest.NewRequest(http.MethodPost, "/orcamentos", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	tests := map[string]string{
		"titulo":         "Roads",
		"ano":            "2024",
		"valor_previsto": "1000.5",
		"usuario_id":     "1",
		"descricao":      "",
		"missing":        "",
	}
	for key, want := range tests {
		if got := parser.Get(key); got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestRequestBodyParser_LargeIntegersKeepPrecision(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"usuario_id": 9007199254740993}`))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("usuario_id"); got != "9007199254740993" {
		t.Errorf("Get('usuario_id') = %q", got)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "nome=Ana+Souza&email=ana%40exemplo.com&senha=segredo"
	req := httptest.NewRequest(http.MethodPost, "/ui/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if got := parser.Get("nome"); got != "Ana Souza" {
		t.Errorf("Get('nome') = %q, want 'Ana Souza'", got)
	}
	if got := parser.Get("email"); got != "ana@exemplo.com" {
		t.Errorf("Get('email') = %q", got)
	}
}

func TestRequestBodyParser_StripsControlCharacters(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"titulo": "  Ro\u0000ads\u0007 "}`))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("titulo"); got != "Roads" {
		t.Errorf("Get('titulo') = %q, want 'Roads'", got)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email": `))
	req.Header.Set("Content-Type", "application/json")

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected an error for truncated JSON")
	}
}

func TestParseBodyOrFail(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		limit      int64
		wantStatus int
	}{
		{name: "valid form", body: "titulo=Roads", wantStatus: 0},
		{name: "broken json", body: `{"titulo":`, wantStatus: http.StatusBadRequest},
		{name: "too large", body: strings.Repeat("a", 64), limit: 16, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ui/orcamentos", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.limit > 0 {
				req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, tt.limit)
			}

			parser, failure := ParseBodyOrFail(req)
			if tt.wantStatus == 0 {
				if failure != nil || parser == nil {
					t.Fatalf("expected a parser, got failure")
				}
				return
			}
			if failure == nil {
				t.Fatalf("expected a failure response")
			}
			w := httptest.NewRecorder()
			failure.Write(w)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
