package google

import (
	"testing"
	"time"

	"spendpoints/internal/core"
)

func TestStandingsRows(t *testing.T) {
	at := time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)
	rows := standingsRows([]core.House{
		{Name: "Ravenclaw", Points: 120, MemberCount: 4},
		{Name: "Slytherin", Points: -7, MemberCount: 2},
	}, at)

	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "House" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != 1 || rows[1][1] != "Ravenclaw" || rows[1][2] != 120 {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != 2 || rows[2][2] != -7 || rows[2][4] != "2025-03-12T09:30:00Z" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestParseStandings_RoundTripsRows(t *testing.T) {
	in := []core.House{
		{Name: "Gryffindor", Points: 50, MemberCount: 3},
		{Name: "Hufflepuff", Points: 0, MemberCount: 1},
	}
	got, err := parseStandings(standingsRows(in, time.Now()))
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Fatalf("unexpected standings: %+v", got)
	}
}

func TestParseStandings_SheetValues(t *testing.T) {
	// Sheets returns formatted strings and may reorder columns or leave gaps.
	values := [][]interface{}{
		{"House", "Members", "Points"},
		{"Ravenclaw", "4", "120"},
		{""},
		{"Slytherin", "", "-7"},
	}
	got, err := parseStandings(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 houses, got %d", len(got))
	}
	if got[1].Points != -7 || got[1].MemberCount != 0 {
		t.Fatalf("unexpected second house: %+v", got[1])
	}
}

func TestParseStandings_Errors(t *testing.T) {
	if _, err := parseStandings([][]interface{}{{"Team", "Score"}}); err == nil {
		t.Fatal("expected header error")
	}
	if _, err := parseStandings([][]interface{}{{"House", "Points"}, {"Ravenclaw", "lots"}}); err == nil {
		t.Fatal("expected points error")
	}
	got, err := parseStandings(nil)
	if err != nil || got != nil {
		t.Fatalf("empty sheet should parse to nothing, got %v %v", got, err)
	}
}
