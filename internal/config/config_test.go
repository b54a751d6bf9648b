package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	f, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom empty: %v", err)
	}
	f.AddConnection("prod", &Connection{
		Host: "db.example.com", Port: 5432, Database: "warehouse",
		User: "loader", Schema: "raw",
	}, false)
	f.AddProfile("census", &Profile{
		Dest: "ucop_file_loads", Strategy: "overwrite",
		Tags: map[string]string{"extract_type": "CENSUS"},
	})
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if g.Default != "prod" {
		t.Errorf("first connection should become default, got %q", g.Default)
	}
	conn := g.Connection("")
	if conn == nil || conn.Host != "db.example.com" || conn.Schema != "raw" {
		t.Errorf("unexpected default connection: %+v", conn)
	}
	prof := g.Profile("census")
	if prof == nil || prof.Tags["extract_type"] != "CENSUS" {
		t.Errorf("unexpected profile: %+v", prof)
	}
}

func TestRemoveConnection_RepointsDefault(t *testing.T) {
	f := &File{}
	f.AddConnection("a", &Connection{Host: "a"}, false)
	f.AddConnection("b", &Connection{Host: "b"}, false)
	if f.Default != "a" {
		t.Fatalf("expected default a, got %q", f.Default)
	}
	if !f.RemoveConnection("a") {
		t.Fatal("remove should succeed")
	}
	if f.Default != "b" {
		t.Errorf("default should repoint to b, got %q", f.Default)
	}
	if f.RemoveConnection("missing") {
		t.Error("removing unknown connection should report false")
	}
}

func TestConnectionURL(t *testing.T) {
	c := &Connection{Host: "localhost", Port: 5433, Database: "dcx", User: "u", Password: "p", SSLMode: "disable"}
	got := c.URL()
	want := "postgresql://u:p@localhost:5433/dcx?sslmode=disable"
	if got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}

	c2 := &Connection{DSN: "postgresql://elsewhere/db"}
	if c2.URL() != "postgresql://elsewhere/db" {
		t.Errorf("explicit DSN should win, got %q", c2.URL())
	}

	c3 := &Connection{Database: "d"}
	if c3.URL() != "postgresql://localhost:5432/d" {
		t.Errorf("defaults not applied: %q", c3.URL())
	}
}

func TestSave_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	f, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	f.AddConnection("x", &Connection{Password: "secret"}, true)
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
}
