package sheets

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/models"
	"github.com/Snaptraks/FateBot/utils"
)

// Client appends finalized rosters to the guild's attendance
// spreadsheet. Export failures never block event finalization; callers
// log and move on.
type Client struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewClient builds a Sheets client from the service-account credentials
// in the environment.
func NewClient(ctx context.Context, spreadsheetID string) (*Client, error) {
	creds := os.Getenv(constants.EnvFirebaseCreds)
	if creds == "" {
		return nil, fmt.Errorf("%s environment variable not set", constants.EnvFirebaseCreds)
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON([]byte(creds)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	utils.Info("Attendance export enabled for spreadsheet %s", spreadsheetID)
	return &Client{service: service, spreadsheetID: spreadsheetID}, nil
}

// Append writes one row per participant: event title, trigger date,
// user ID, role.
func (c *Client) Append(eventTitle string, triggerAt time.Time, participants []models.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(participants))
	for _, p := range participants {
		values = append(values, []interface{}{
			eventTitle,
			triggerAt.UTC().Format(constants.DateTimeFormat),
			p.UserID,
			p.Role,
		})
	}

	_, err := c.service.Spreadsheets.Values.
		Append(c.spreadsheetID, "Attendance!A:D", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Do()
	if err != nil {
		return fmt.Errorf("failed to append attendance rows: %w", err)
	}
	return nil
}
