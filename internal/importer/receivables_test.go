package importer

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"nakit/internal/core"
)

type testRow struct {
	customer string
	date     any
	amount   any
}

func buildWorkbook(t *testing.T, rows []testRow) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	mustSet := func(cell string, value any) {
		t.Helper()
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}

	mustSet("F1", "Cari Ünvan")
	mustSet("I1", "Fatura Tarihi")
	mustSet("Y1", "Bakiye")

	for i, row := range rows {
		n := i + 2
		if row.customer != "" {
			mustSet(cellRef("F", n), row.customer)
		}
		if row.date != nil {
			mustSet(cellRef("I", n), row.date)
		}
		if row.amount != nil {
			mustSet(cellRef("Y", n), row.amount)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func cellRef(col string, row int) string {
	name, _ := excelize.JoinCellName(col, row)
	return name
}

func TestParseReceivables(t *testing.T) {
	wb := buildWorkbook(t, []testRow{
		{customer: "Acme Ltd", date: "2024-06-20", amount: 1500.50},
		{customer: "Beta AŞ", date: "2024-06-21", amount: 3000},
		{customer: "", date: "2024-06-20", amount: 99},       // missing customer
		{customer: "No Date", date: nil, amount: 500},        // skipped
		{customer: "Bad Date", date: "soon", amount: 500},    // skipped
		{customer: "Settled", date: "2024-06-22", amount: "-"}, // amount unreadable
	})

	preview, err := ParseReceivables(wb, Options{ValorDays: 10})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if preview.Skipped != 2 {
		t.Errorf("got %d skipped rows, want 2", preview.Skipped)
	}
	if len(preview.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(preview.Rows))
	}

	first := preview.Rows[0]
	if first.Customer != "Acme Ltd" {
		t.Errorf("got customer %q, want Acme Ltd", first.Customer)
	}
	if first.InvoiceDate != "2024-06-20" {
		t.Errorf("got invoice date %s, want 2024-06-20", first.InvoiceDate)
	}
	if first.DueDate != "2024-06-30" || first.FinalDate != "2024-06-30" {
		t.Errorf("got due %s final %s, want 2024-06-30 for both", first.DueDate, first.FinalDate)
	}
	if !first.Amount.Equal(decimal.RequireFromString("1500.5")) {
		t.Errorf("got amount %s, want 1500.5", first.Amount)
	}

	for _, row := range preview.Rows {
		if row.Customer == "" {
			t.Errorf("row with blank customer should fall back to %q", unknownCustomer)
		}
		if row.Customer == unknownCustomer && !row.Amount.Equal(decimal.NewFromInt(99)) {
			t.Errorf("fallback row mangled: %+v", row)
		}
	}
}

func TestParseReceivablesSerialDates(t *testing.T) {
	// 45463 is 2024-06-20 in the 1900 date system.
	wb := buildWorkbook(t, []testRow{
		{customer: "Acme Ltd", date: 45463, amount: 100},
	})

	preview, err := ParseReceivables(wb, Options{ValorDays: 1})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(preview.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(preview.Rows))
	}
	if got := preview.Rows[0].InvoiceDate; got != "2024-06-20" {
		t.Errorf("got invoice date %s, want 2024-06-20", got)
	}
}

func TestParseReceivablesBoschRule(t *testing.T) {
	// Invoice 2024-06-10 + 11 days = Friday 2024-06-21, which the rule
	// pulls back to Thursday.
	wb := buildWorkbook(t, []testRow{
		{customer: "Bosch San.", date: "2024-06-10", amount: 100},
	})

	preview, err := ParseReceivables(wb, Options{ValorDays: 11, ApplyBoschRule: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(preview.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(preview.Rows))
	}
	row := preview.Rows[0]
	if row.DueDate != "2024-06-21" {
		t.Errorf("got due date %s, want 2024-06-21", row.DueDate)
	}
	if row.FinalDate != "2024-06-20" {
		t.Errorf("got final date %s, want 2024-06-20 (Thursday)", row.FinalDate)
	}
}

func TestPreviewTransactionsGrouping(t *testing.T) {
	preview := Preview{
		Rows: []Row{
			{Customer: "Acme Ltd", FinalDate: "2024-06-20", Amount: decimal.NewFromInt(100)},
			{Customer: "Acme Ltd", FinalDate: "2024-06-20", Amount: decimal.NewFromInt(250)},
			{Customer: "Beta AŞ", FinalDate: "2024-06-20", Amount: decimal.NewFromInt(40)},
			{Customer: "Acme Ltd", FinalDate: "2024-06-21", Amount: decimal.NewFromInt(10)},
		},
	}

	txs := preview.Transactions("tab1")
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3 groups", len(txs))
	}

	first := txs[0]
	if first.Description != "Acme Ltd" || first.Date != "2024-06-20" {
		t.Errorf("unexpected first group: %+v", first)
	}
	if !first.Amount.Equal(decimal.NewFromInt(350)) {
		t.Errorf("got amount %s, want 350 (two rows summed)", first.Amount)
	}

	for _, tx := range txs {
		if tx.Direction != core.Income {
			t.Errorf("transaction %s: got direction %s, want income", tx.ID, tx.Direction)
		}
		if tx.Currency != core.LocalCurrency {
			t.Errorf("transaction %s: got currency %s, want local", tx.ID, tx.Currency)
		}
		if tx.Source != core.SourceExcel || tx.SourceTab != "tab1" {
			t.Errorf("transaction %s: missing import provenance: %+v", tx.ID, tx)
		}
	}
}
