// Package sheets reads location rows from the volunteer spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// ErrNotConfigured means no spreadsheet id was supplied
var ErrNotConfigured = errors.New("sheets: spreadsheet is not configured")

// RowSource returns every row of the sheet, header included
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Config locates the sheet
type Config struct {
	SpreadsheetID   string
	SheetName       string
	Range           string
	CredentialsFile string
}

// A1 is the range in A1 notation, e.g. "Sheet1!A:G"
func (c Config) A1() string {
	if c.SheetName == "" {
		return c.Range
	}
	return c.SheetName + "!" + c.Range
}

// Google reads rows with the Sheets API
type Google struct {
	cfg Config
	svc *gsheets.Service
}

// NewGoogle builds a read-only Sheets client
func NewGoogle(ctx context.Context, cfg Config) (*Google, error) {
	if cfg.SpreadsheetID == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}
	return &Google{cfg: cfg, svc: svc}, nil
}

func (g *Google) Rows(ctx context.Context) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.cfg.SpreadsheetID, g.cfg.A1()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", g.cfg.A1(), err)
	}
	return Strings(resp.Values), nil
}

// Strings converts the API's cell values to strings
func Strings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, cells)
	}
	return rows
}

// Disabled fails every read; it stands in when no sheet is configured
type Disabled struct{}

func (Disabled) Rows(context.Context) ([][]string, error) { return nil, ErrNotConfigured }
