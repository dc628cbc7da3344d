// Package report renders implied-volatility outcomes as JSON or CSV.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-iv/internal/impliedvol"
)

// Row is one (quote, method) line of a report. Numbers are pre-rendered so JSON
// and CSV carry identical text.
type Row struct {
	Symbol     string `csv:"symbol" json:"symbol"`
	Spot       string `csv:"spot" json:"spot"`
	Strike     string `csv:"strike" json:"strike"`
	Expiry     string `csv:"expiry" json:"expiry"`
	Rate       string `csv:"rate" json:"rate"`
	Price      string `csv:"observed_price" json:"observed_price"`
	Method     string `csv:"method" json:"method"`
	IV         string `csv:"implied_vol" json:"implied_vol"`
	Converged  bool   `csv:"converged" json:"converged"`
	Iterations int    `csv:"iterations" json:"iterations"`
	Residual   string `csv:"residual" json:"residual"`
	Expansions int    `csv:"expansions" json:"expansions"`
	Repriced   string `csv:"repriced" json:"repriced"`
	Error      string `csv:"error" json:"error,omitempty"`
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// NewRows builds one Row per outcome. symbols is indexed by Outcome.Index; a
// missing entry leaves the symbol blank.
func NewRows(outcomes []impliedvol.Outcome, symbols []string) []Row {
	rows := make([]Row, 0, len(outcomes))
	for _, o := range outcomes {
		q, res := o.Quote, o.Result
		row := Row{
			Spot:       fixed(q.Spot, 2),
			Strike:     fixed(q.Strike, 2),
			Expiry:     fixed(q.Expiry, 6),
			Rate:       fixed(q.Rate, 4),
			Price:      fixed(q.Price, 4),
			Method:     res.Method.String(),
			Converged:  res.Converged,
			Iterations: res.Iterations,
			Expansions: res.Expansions,
		}
		if o.Index >= 0 && o.Index < len(symbols) {
			row.Symbol = symbols[o.Index]
		}

		if o.Err != nil {
			row.Error = o.Err.Error()
			rows = append(rows, row)
			continue
		}

		row.IV = fixed(res.Volatility, 6)
		row.Residual = fixed(res.Residual, 8)
		if repriced, err := q.CallPrice(res.Volatility); err == nil {
			row.Repriced = fixed(repriced, 4)
		}
		if !res.Converged {
			row.Error = res.Err().Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

// Summary counts converged rows.
type Summary struct {
	Rows      int `json:"rows"`
	Converged int `json:"converged"`
	Failed    int `json:"failed"`
}

// Summarize tallies rows; a row is failed when it carries an error.
func Summarize(rows []Row) Summary {
	s := Summary{Rows: len(rows)}
	for _, r := range rows {
		if r.Converged && r.Error == "" {
			s.Converged++
		}
		if r.Error != "" {
			s.Failed++
		}
	}
	return s
}
