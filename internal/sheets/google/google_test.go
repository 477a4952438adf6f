package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"detetive/internal/config"
	ports "detetive/internal/sheets"
)

func TestNewFromConfig_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{})
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	t.Run("inline wins", func(t *testing.T) {
		got, err := loadCredentials(context.Background(), `{"type":"service_account"}`, "/does/not/exist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != `{"type":"service_account"}` {
			t.Errorf("got %s", got)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		if err := os.WriteFile(path, []byte(`{"k":1}`), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := loadCredentials(context.Background(), "", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != `{"k":1}` {
			t.Errorf("got %s", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadCredentials(context.Background(), "", filepath.Join(t.TempDir(), "nope.json"))
		if err == nil || !strings.Contains(err.Error(), "read service account file") {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := loadCredentials(context.Background(), "", "")
		if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
			t.Errorf("expected missing credentials error, got %v", err)
		}
	})
}

func TestClient_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Transacoes"}

	if _, err := c.Upsert(context.Background(), ports.Row{TransactionID: "tx-1"}); err == nil {
		t.Error("Upsert should fail without a service")
	}
	if err := c.MarkDeleted(context.Background(), "tx-1"); err == nil {
		t.Error("MarkDeleted should fail without a service")
	}
}
