package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cassa/internal/core"
	"cassa/internal/log"
	ports "cassa/internal/sheets"
)

// sheetsEpoch is day zero of the spreadsheet serial date system.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Ensure interface conformance
var (
	_ ports.SummaryExporter = (*Client)(nil)
	_ ports.SummaryLister   = (*Client)(nil)
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client appends archived months to one sheet of a spreadsheet, one row per
// month: key, label, earned, spent, profit.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	if sheetName == "" {
		sheetName = "Summaries"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ExportedMonths reads the month column and returns the keys found there.
func (c *Client) ExportedMonths(ctx context.Context) ([]core.MonthKey, error) {
	values, err := c.readMonthColumn(ctx)
	if err != nil {
		return nil, err
	}
	return monthKeys(values), nil
}

// ExportSummary appends s unless its month already has a row. The header
// row is written first when the sheet is empty.
func (c *Client) ExportSummary(ctx context.Context, s core.MonthlySummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	values, err := c.readMonthColumn(ctx)
	if err != nil {
		return err
	}
	for _, key := range monthKeys(values) {
		if key == s.MonthKey {
			c.logger.InfoContext(ctx, "Month already exported, skipping",
				log.FieldOperation, log.OpExport, log.FieldMonthKey, s.MonthKey)
			return nil
		}
	}

	rows := [][]interface{}{summaryRow(s)}
	if len(values) == 0 {
		rows = append([][]interface{}{headerRow()}, rows...)
	}

	rng := fmt.Sprintf("%s!A:E", c.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}

	c.logger.InfoContext(ctx, "Summary exported to Google Sheets",
		log.FieldOperation, log.OpExport,
		log.FieldMonthKey, s.MonthKey,
		"sheet", c.sheetName)
	return nil
}

func (c *Client) readMonthColumn(ctx context.Context) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read month column: %w", err)
	}
	return resp.Values, nil
}

func headerRow() []interface{} {
	row := make([]interface{}, len(ports.Header))
	for i, h := range ports.Header {
		row[i] = h
	}
	return row
}

// summaryRow renders amounts as plain decimal strings; USER_ENTERED lets
// the sheet parse them as numbers. The month key gets a leading apostrophe
// so the sheet stores it as text instead of turning it into a date.
func summaryRow(s core.MonthlySummary) []interface{} {
	return []interface{}{
		"'" + string(s.MonthKey),
		s.MonthLabel(),
		s.TotalEarned.String(),
		s.TotalSpent.String(),
		s.TotalProfit.String(),
	}
}

// monthKeys extracts valid month keys from the first column, skipping the
// header and anything that does not parse.
func monthKeys(values [][]interface{}) []core.MonthKey {
	var keys []core.MonthKey
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		if key, ok := cellMonthKey(row[0]); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// cellMonthKey reads an unformatted cell. Text holds the key itself; a
// number is a date serial left by rows the sheet converted to a date.
func cellMonthKey(v interface{}) (core.MonthKey, bool) {
	switch cell := v.(type) {
	case string:
		text := strings.TrimPrefix(strings.TrimSpace(cell), "'")
		key, err := core.ParseMonthKey(text)
		return key, err == nil
	case float64:
		if cell < 1 {
			return "", false
		}
		return core.MonthKeyOf(sheetsEpoch.AddDate(0, 0, int(cell))), true
	default:
		return "", false
	}
}
