package sales

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

// Amount is a sale value in minor units (cents). No floats.
type Amount int64

// ParseAmount reads a decimal string such as "10.5" or "160.50". The value
// must be positive with at most two fractional digits.
func ParseAmount(raw string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a decimal number", apperr.ErrInvalidInput, raw)
	}
	return amountFromDecimal(d)
}

func amountFromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be > 0", apperr.ErrInvalidInput)
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("%w: amount has more than two fractional digits", apperr.ErrInvalidInput)
	}
	cents := d.Shift(2)
	if cents.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, fmt.Errorf("%w: amount is too large", apperr.ErrInvalidInput)
	}
	return Amount(cents.IntPart()), nil
}

func (a Amount) Decimal() decimal.Decimal { return decimal.New(int64(a), -2) }

func (a Amount) String() string { return a.Decimal().StringFixed(2) }

// MarshalJSON renders the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. Negative
// values are rejected.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("%w: amount is required", apperr.ErrInvalidInput)
	}
	raw := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: amount %q is not a decimal number", apperr.ErrInvalidInput, raw)
	}
	// Zero decodes so report totals survive a round trip; RecordSale rejects it.
	if d.IsZero() {
		*a = 0
		return nil
	}
	v, err := amountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

const dateLayout = "2006-01-02"

// Date is a calendar day without time component, held at UTC midnight.
type Date struct {
	t time.Time
}

// ParseDate reads YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", apperr.ErrInvalidInput, raw)
	}
	return Date{t: t}, nil
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Time() time.Time    { return d.t }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Compare(o Date) int { return d.t.Compare(o.t) }
func (d Date) String() string     { return d.t.Format(dateLayout) }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Range is an inclusive day range. A nil bound is unbounded on that side.
type Range struct {
	From *Date `json:"from"`
	To   *Date `json:"to"`
}

// ParseRange reads optional from/to bounds; empty strings mean unbounded.
func ParseRange(from, to string) (Range, error) {
	var r Range
	if strings.TrimSpace(from) != "" {
		d, err := ParseDate(from)
		if err != nil {
			return Range{}, err
		}
		r.From = &d
	}
	if strings.TrimSpace(to) != "" {
		d, err := ParseDate(to)
		if err != nil {
			return Range{}, err
		}
		r.To = &d
	}
	return r, nil
}

// Empty reports whether from > to, which matches nothing.
func (r Range) Empty() bool {
	return r.From != nil && r.To != nil && r.From.After(*r.To)
}

func (r Range) Contains(d Date) bool {
	if r.From != nil && d.Before(*r.From) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}

// Sale is an immutable ledger entry attributed to one contributor.
type Sale struct {
	ID        string    `json:"id"`
	Date      Date      `json:"date"`
	Amount    Amount    `json:"amount"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSale is the input of RecordSale.
type NewSale struct {
	Date   Date   `json:"date"`
	Amount Amount `json:"amount"`
}

// Filter selects ledger entries. A nil AccountIDs selects every owner.
type Filter struct {
	AccountIDs []string
	Range      Range
}

// Stats summarises a set of amounts.
type Stats struct {
	Count int    `json:"count"`
	Sum   Amount `json:"sum"`
	Mean  Amount `json:"mean"`
	Min   Amount `json:"min"`
	Max   Amount `json:"max"`
}

type PersonalReport struct {
	AccountID string `json:"account_id"`
	Range
	Stats
}

// SquadRow is one roster line of a squad report.
type SquadRow struct {
	Account org.Summary `json:"account"`
	Count   int         `json:"count"`
	Sum     Amount      `json:"sum"`
	Mean    Amount      `json:"mean"`
}

type SquadReport struct {
	SquadID   string `json:"squad_id"`
	SquadName string `json:"squad_name"`
	Range
	Rows []SquadRow `json:"rows"`
}

type LeaderboardEntry struct {
	Rank    int         `json:"rank"`
	Account org.Summary `json:"account"`
	Count   int         `json:"count"`
	Total   Amount      `json:"total"`
}

type Leaderboard struct {
	Limit int `json:"limit"`
	Range
	Entries []LeaderboardEntry `json:"entries"`
}

// SaleView is a sale with its owner attached, as listed to managers and owners.
type SaleView struct {
	Sale
	Owner *org.Summary `json:"owner,omitempty"`
}
