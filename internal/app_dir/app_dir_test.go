package app_dir

import (
	"path/filepath"
	"testing"
)

func TestGetAppDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DNT_DIR", dir)
	appDir, err := GetAppDir()
	if err != nil {
		t.Fatal(err)
	}
	if appDir != dir {
		t.Fatalf("expected %s, got %s", dir, appDir)
	}

	t.Setenv("DNT_DIR", "")
	appDir, err = GetAppDir()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(appDir) != ".dnt" && filepath.Base(appDir) != "dnt" {
		t.Fatalf("unexpected app dir %s", appDir)
	}
}
