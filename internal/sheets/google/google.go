package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"spendpoints/internal/core"
	ports "spendpoints/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultLeaderboardSheet = "Leaderboard"

type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	leaderboardSheet string
}

// Ensure interface conformance
var (
	_ ports.LeaderboardWriter = (*Client)(nil)
	_ ports.LeaderboardReader = (*Client)(nil)
)

// Options configures a Sheets client. CredentialsJSON takes precedence over
// CredentialsFile; with neither set GOOGLE_APPLICATION_CREDENTIALS is used.
type Options struct {
	SpreadsheetID    string
	LeaderboardSheet string
	CredentialsJSON  string
	CredentialsFile  string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(opts.LeaderboardSheet)
	if sheet == "" {
		sheet = defaultLeaderboardSheet
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		leaderboardSheet: sheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	credentialsFile = strings.TrimSpace(credentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// WriteStandings replaces the leaderboard sheet contents with standings.
func (c *Client) WriteStandings(ctx context.Context, standings []core.House, at time.Time) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:E", c.leaderboardSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}

	vr := &gsheet.ValueRange{Values: standingsRows(standings, at)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.leaderboardSheet+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write leaderboard: %w", err)
	}

	slog.InfoContext(ctx, "Leaderboard written to Google Sheets",
		"sheet", c.leaderboardSheet,
		"houses", len(standings))
	return nil
}

// ReadStandings returns the standings currently on the leaderboard sheet.
func (c *Client) ReadStandings(ctx context.Context) ([]core.House, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.leaderboardSheet+"!A:E").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return parseStandings(resp.Values)
}
