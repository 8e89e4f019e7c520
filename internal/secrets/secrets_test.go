package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	secretFile := filepath.Join(dir, "key")
	if err := os.WriteFile(secretFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("file wins over env", func(t *testing.T) {
		t.Setenv("EDGESCAN_TEST_KEY", "from-env")
		t.Setenv("EDGESCAN_TEST_KEY_FILE", secretFile)
		v, found, err := Lookup("EDGESCAN_TEST_KEY")
		if err != nil || !found || v != "from-file" {
			t.Errorf("got %q, %v, %v", v, found, err)
		}
	})

	t.Run("env only", func(t *testing.T) {
		t.Setenv("EDGESCAN_TEST_KEY", "from-env")
		v, found, err := Lookup("EDGESCAN_TEST_KEY")
		if err != nil || !found || v != "from-env" {
			t.Errorf("got %q, %v, %v", v, found, err)
		}
	})

	t.Run("unset", func(t *testing.T) {
		_, found, err := Lookup("EDGESCAN_TEST_UNSET")
		if err != nil || found {
			t.Errorf("found = %v, err = %v", found, err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Setenv("EDGESCAN_TEST_KEY_FILE", filepath.Join(dir, "missing"))
		if _, _, err := Lookup("EDGESCAN_TEST_KEY"); err == nil {
			t.Error("expected error")
		}
		if got := GetOptionalSecret("EDGESCAN_TEST_KEY", "fallback"); got != "fallback" {
			t.Errorf("GetOptionalSecret = %q", got)
		}
	})
}
