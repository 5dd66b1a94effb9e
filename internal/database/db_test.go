package database

import "testing"

func TestDSN(t *testing.T) {
	cfg := Config{User: "harbor", Pass: "hunter2", Host: "db.internal", Port: "3306", Name: "harbor"}
	want := "harbor:hunter2@tcp(db.internal:3306)/harbor?charset=utf8mb4&parseTime=true&loc=UTC"
	if got := cfg.dsn(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}

func TestDSNWithoutPassword(t *testing.T) {
	cfg := Config{User: "harbor", Host: "localhost", Port: "3306", Name: "harbor"}
	want := "harbor@tcp(localhost:3306)/harbor?charset=utf8mb4&parseTime=true&loc=UTC"
	if got := cfg.dsn(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
