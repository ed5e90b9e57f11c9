package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orcamentos/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"}, nil)
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{"inline wins", Options{CredentialsJSON: `{"inline":true}`, CredentialsFile: path}, `{"inline":true}`, false},
		{"file", Options{CredentialsFile: path}, `{"type":"service_account"}`, false},
		{"missing file", Options{CredentialsFile: filepath.Join(dir, "nope.json")}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadCredentials(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: defaultSheetName}

	if err := c.ExportBudgetEntry(context.Background(), core.BudgetEntry{ID: 1}); err == nil {
		t.Fatal("expected error with nil service")
	}
	if _, err := c.ExportedIDs(context.Background()); err == nil {
		t.Fatal("expected error with nil service")
	}
}
