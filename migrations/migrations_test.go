package migrations

import (
	"strings"
	"testing"
)

func TestStatements(t *testing.T) {
	stmts, err := Statements()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 8 {
		t.Fatalf("got %d statements, want 8", len(stmts))
	}
	var creates []string
	for _, s := range stmts {
		if strings.HasSuffix(s, ";") || strings.Contains(s, "--") {
			t.Errorf("statement not cleaned: %q", s)
		}
		if strings.HasPrefix(s, "CREATE TABLE") {
			creates = append(creates, strings.Fields(s)[2])
		}
	}
	want := "bookings retired_booking_codes outbox booking_notifications"
	if got := strings.Join(creates, " "); got != want {
		t.Errorf("tables = %q, want %q", got, want)
	}
	if !strings.Contains(stmts[4], "UNIQUE KEY uq_booking_code (booking_code)") {
		t.Error("bookings must keep the unique index on booking_code")
	}
}

func TestSplit(t *testing.T) {
	got := split("-- c\nSELECT 1;\n\nSELECT\n  2;\nSELECT 3")
	if len(got) != 3 || got[0] != "SELECT 1" || got[2] != "SELECT 3" {
		t.Errorf("split = %q", got)
	}
}
