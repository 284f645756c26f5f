package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spendpoints/internal/core"
)

var standingsHeader = []interface{}{"Rank", "House", "Points", "Members", "Updated"}

// standingsRows renders standings as a values matrix with a header row.
func standingsRows(standings []core.House, at time.Time) [][]interface{} {
	rows := make([][]interface{}, 0, len(standings)+1)
	rows = append(rows, standingsHeader)
	stamp := at.UTC().Format(time.RFC3339)
	for i, h := range standings {
		rows = append(rows, []interface{}{i + 1, h.Name, h.Points, h.MemberCount, stamp})
	}
	return rows
}

// parseStandings converts a values matrix (as returned by Sheets API) back
// into houses. Columns are located by header so they may be reordered.
func parseStandings(values [][]interface{}) ([]core.House, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colHouse := indexOf(headers, "House")
	colPoints := indexOf(headers, "Points")
	colMembers := indexOf(headers, "Members")
	if colHouse == -1 || colPoints == -1 {
		return nil, fmt.Errorf("unexpected leaderboard header: got headers=%v", headers)
	}

	var out []core.House
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		name := strings.TrimSpace(safeGet(row, colHouse))
		if name == "" {
			continue
		}
		points, err := strconv.Atoi(strings.TrimSpace(safeGet(row, colPoints)))
		if err != nil {
			return nil, fmt.Errorf("row %d: points: %w", i+1, err)
		}
		h := core.House{Name: name, Points: points}
		if colMembers != -1 {
			if m, err := strconv.Atoi(strings.TrimSpace(safeGet(row, colMembers))); err == nil {
				h.MemberCount = m
			}
		}
		out = append(out, h)
	}
	return out, nil
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
