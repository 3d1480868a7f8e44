package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreFileThenEnvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"STRIPE_API_KEY":"sk_file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STRIPE_API_KEY", "sk_env")
	t.Setenv("PAYPAL_CLIENT_ID", "pp_env")

	s := NewStore(path)
	if got := s.Get("STRIPE_API_KEY"); got != "sk_file" {
		t.Fatalf("file value ignored: %q", got)
	}
	if got := s.Get("PAYPAL_CLIENT_ID"); got != "pp_env" {
		t.Fatalf("env fallback broken: %q", got)
	}
}

func TestStoreMissingFile(t *testing.T) {
	t.Setenv("SQUARE_ACCESS_TOKEN", "sq_env")
	s := NewStore("/nonexistent/secrets.json")
	if got := s.Get("SQUARE_ACCESS_TOKEN"); got != "sq_env" {
		t.Fatalf("missing file should fall back to env, got %q", got)
	}
}
