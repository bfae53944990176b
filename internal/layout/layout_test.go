package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathConvention(t *testing.T) {
	l := New("/srv/ingot")
	if got := l.RawDir("acme", "crm", AreaIncoming); got != filepath.Join("/srv/ingot", "raw", "acme", "crm", "incoming") {
		t.Fatalf("RawDir = %q", got)
	}
	if got := l.DataDir("acme", "crm", AreaArchive); got != filepath.Join("/srv/ingot", "data", "acme", "crm", "archive") {
		t.Fatalf("DataDir = %q", got)
	}
	if got := l.ManifestPath("acme", "BATCH000003", AreaSuccess); got != filepath.Join("/srv/ingot", "batch_info", "acme", "success", "batch_output_acme_BATCH000003.json") {
		t.Fatalf("ManifestPath = %q", got)
	}
}

func TestEnsureClientDirs(t *testing.T) {
	root := t.TempDir()
	l := New(root)
	if err := l.EnsureClientDirs("acme", []string{"crm", "erp"}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, dir := range []string{
		l.RawDir("acme", "crm", AreaIncoming),
		l.RawDir("acme", "erp", AreaArchive),
		l.DataDir("acme", "crm", AreaIncoming),
		l.BatchInfoDir("acme", AreaFailed),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("missing directory %q: %v", dir, err)
		}
	}
	// Second call is a no-op.
	if err := l.EnsureClientDirs("acme", []string{"crm", "erp"}); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a", "orders.csv")
	dst := filepath.Join(dir, "b", "orders.csv")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("id,name\n1,x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "id,name\n1,x\n" {
		t.Fatalf("destination content = %q", data)
	}
}

func TestListIncoming(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"orders.csv", ".hidden", "users.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := ListIncoming(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %v, want 2 entries", names)
	}

	missing, err := ListIncoming(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Fatalf("missing dir: names=%v err=%v", missing, err)
	}
}
