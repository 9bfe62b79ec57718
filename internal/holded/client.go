// Package holded wraps the Holded accounting API endpoints the pipeline
// extracts from: the chart of accounts and the daily ledger.
package holded

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Account is one chart-of-accounts row as returned by the API.
type Account struct {
	ID      string          `json:"id"`
	Color   string          `json:"color"`
	Num     json.Number     `json:"num"`
	Name    string          `json:"name"`
	Group   string          `json:"group"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`
}

// LedgerLine is one movement inside a daily ledger entry.
type LedgerLine struct {
	Line    int             `json:"line"`
	Account json.Number     `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Tags    json.RawMessage `json:"tags"`
	Checked string          `json:"checked"`
}

// LedgerEntry is one journal entry with its lines.
type LedgerEntry struct {
	EntryNumber    int64        `json:"entryNumber"`
	Timestamp      int64        `json:"timestamp"`
	Type           string       `json:"type"`
	Description    string       `json:"description"`
	DocDescription string       `json:"docDescription"`
	Lines          []LedgerLine `json:"lines"`
}

// Client calls the Holded accounting API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a Client. A zero timeout falls back to 60s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// ChartOfAccounts fetches the full chart of accounts snapshot.
func (c *Client) ChartOfAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.get(ctx, "/api/accounting/v1/chartofaccounts", nil, &accounts); err != nil {
		return nil, fmt.Errorf("holded: chart of accounts: %w", err)
	}
	return accounts, nil
}

// DailyLedger fetches ledger entries whose timestamps fall inside
// [from 00:00, to 23:59:59].
func (c *Client) DailyLedger(ctx context.Context, from, to time.Time) ([]LedgerEntry, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC).Unix()
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC).Unix()
	params := url.Values{
		"starttmp": {strconv.FormatInt(start, 10)},
		"endtmp":   {strconv.FormatInt(end, 10)},
	}
	var entries []LedgerEntry
	if err := c.get(ctx, "/api/accounting/v1/dailyledger", params, &entries); err != nil {
		return nil, fmt.Errorf("holded: daily ledger: %w", err)
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PreviousQuarterStart returns the first day of the quarter preceding the
// one containing now; the incremental sync window opens there so late
// postings into the prior quarter are still picked up.
func PreviousQuarterStart(now time.Time) time.Time {
	quarter := (int(now.Month())-1)/3 + 1
	if quarter == 1 {
		return time.Date(now.Year()-1, time.October, 1, 0, 0, 0, 0, time.UTC)
	}
	month := time.Month((quarter-2)*3 + 1)
	return time.Date(now.Year(), month, 1, 0, 0, 0, 0, time.UTC)
}
