// Package importer reads customer receivables out of .xlsx exports and turns
// them into dated income transactions for a custom tab. The expected layout
// comes from the accounting system's standard export: customer name in column
// F, invoice date in column I, open amount in column Y, first row a header.
package importer

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"nakit/internal/core"
)

const (
	DefaultCustomerColumn = "F"
	DefaultDateColumn     = "I"
	DefaultAmountColumn   = "Y"
	DefaultValorDays      = 60

	unknownCustomer = "Bilinmeyen"
)

// Options controls one import run. Zero-value columns fall back to the
// standard export layout; zero ValorDays falls back to 60.
type Options struct {
	TabID          string
	CustomerColumn string
	DateColumn     string
	AmountColumn   string
	ValorDays      int
	ApplyBoschRule bool
}

func (o *Options) applyDefaults() {
	if o.CustomerColumn == "" {
		o.CustomerColumn = DefaultCustomerColumn
	}
	if o.DateColumn == "" {
		o.DateColumn = DefaultDateColumn
	}
	if o.AmountColumn == "" {
		o.AmountColumn = DefaultAmountColumn
	}
	if o.ValorDays == 0 {
		o.ValorDays = DefaultValorDays
	}
}

// Row is one parsed receivable before grouping, kept for the preview screen.
type Row struct {
	Customer    string          `json:"customer"`
	InvoiceDate string          `json:"invoiceDate"`
	DueDate     string          `json:"dueDate"`
	FinalDate   string          `json:"finalDate"`
	Amount      decimal.Decimal `json:"amount"`
}

// Preview is the result of parsing a workbook: the individual rows sorted by
// collection date, plus how many rows were skipped for missing or unreadable
// dates.
type Preview struct {
	Rows    []Row `json:"rows"`
	Skipped int   `json:"skipped"`
}

// ParseReceivables reads the first sheet of an .xlsx workbook. Each data row
// gets a due date (invoice date + valor days) and a final collection date,
// optionally normalized by the Bosch weekday rule. Rows without a readable
// date are skipped and counted; unreadable amounts become zero, matching how
// the export leaves settled invoices blank.
func ParseReceivables(r io.Reader, opts Options) (Preview, error) {
	opts.applyDefaults()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return Preview{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Preview{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Preview{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	colCust, err := excelize.ColumnNameToNumber(opts.CustomerColumn)
	if err != nil {
		return Preview{}, fmt.Errorf("customer column: %w", err)
	}
	colDate, err := excelize.ColumnNameToNumber(opts.DateColumn)
	if err != nil {
		return Preview{}, fmt.Errorf("date column: %w", err)
	}
	colAmt, err := excelize.ColumnNameToNumber(opts.AmountColumn)
	if err != nil {
		return Preview{}, fmt.Errorf("amount column: %w", err)
	}

	var preview Preview
	for i, row := range rows {
		if i == 0 {
			continue // header
		}

		invDate, ok := parseCellDate(cell(row, colDate))
		if !ok {
			preview.Skipped++
			continue
		}

		dueDate := invDate.AddDate(0, 0, opts.ValorDays)
		finalDate := dueDate
		if opts.ApplyBoschRule {
			finalDate = core.BoschCollectionDay(dueDate)
		}

		customer := strings.TrimSpace(cell(row, colCust))
		if customer == "" {
			customer = unknownCustomer
		}

		preview.Rows = append(preview.Rows, Row{
			Customer:    customer,
			InvoiceDate: core.YMD(invDate),
			DueDate:     core.YMD(dueDate),
			FinalDate:   core.YMD(finalDate),
			Amount:      parseCellAmount(cell(row, colAmt)),
		})
	}

	sort.SliceStable(preview.Rows, func(a, b int) bool {
		return preview.Rows[a].FinalDate < preview.Rows[b].FinalDate
	})

	return preview, nil
}

// Transactions groups the previewed rows by collection date and customer and
// emits one local-currency income transaction per group, tagged with the tab
// it was imported into.
func (p Preview) Transactions(tabID string) []core.Transaction {
	type group struct {
		date     string
		customer string
	}

	sums := make(map[group]decimal.Decimal)
	order := make([]group, 0, len(p.Rows))
	for _, row := range p.Rows {
		g := group{date: row.FinalDate, customer: row.Customer}
		if _, seen := sums[g]; !seen {
			order = append(order, g)
		}
		sums[g] = sums[g].Add(row.Amount)
	}

	sort.Slice(order, func(a, b int) bool {
		if order[a].date != order[b].date {
			return order[a].date < order[b].date
		}
		return order[a].customer < order[b].customer
	})

	txs := make([]core.Transaction, 0, len(order))
	for _, g := range order {
		txs = append(txs, core.Transaction{
			ID:          "excel-" + uuid.NewString(),
			Direction:   core.Income,
			Date:        g.date,
			Amount:      sums[g],
			Currency:    core.LocalCurrency,
			Description: g.customer,
			Source:      core.SourceExcel,
			SourceTab:   tabID,
		})
	}
	return txs
}

func cell(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return row[col-1]
}

// parseCellDate accepts what the export actually produces: an Excel serial
// number for date-typed cells, or one of a few textual date formats.
func parseCellDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		// Serial dates carry no timezone; keep the calendar day as-is.
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), true
	}

	for _, layout := range []string{core.YMDLayout, "02.01.2006", "01-02-06", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return core.Midnight(t), true
		}
	}
	return time.Time{}, false
}

func parseCellAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
