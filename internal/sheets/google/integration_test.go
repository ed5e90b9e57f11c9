//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"orcamentos/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportFlow(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	opts := Options{
		SpreadsheetID:   spreadsheetID,
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if opts.CredentialsJSON == "" && opts.CredentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, opts, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	id := time.Now().Unix()
	entry := core.BudgetEntry{
		ID:          id,
		Title:       "Integration test",
		Year:        2024,
		Planned:     core.Money{Cents: 100050},
		Executed:    core.Money{Cents: 80000},
		Description: "created by the integration suite",
		OwnerID:     1,
	}
	if err := client.ExportBudgetEntry(ctx, entry); err != nil {
		t.Fatalf("ExportBudgetEntry: %v", err)
	}

	ids, err := client.ExportedIDs(ctx)
	if err != nil {
		t.Fatalf("ExportedIDs: %v", err)
	}
	if _, ok := ids[id]; !ok {
		t.Fatalf("exported id %d not found in sheet", id)
	}
}
