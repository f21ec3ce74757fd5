package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"nakit/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nakit.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAssetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	asset := core.Asset{
		ID:       "a1",
		Kind:     core.BankAsset,
		Name:     "Main account",
		SubKind:  "vadesiz",
		Currency: core.TRY,
		Amount:   decimal.RequireFromString("10500.75"),
		Included: true,
	}
	if err := repo.SaveAsset(ctx, asset); err != nil {
		t.Fatalf("save: %v", err)
	}

	assets, err := repo.ListAssets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("got %d assets, want 1", len(assets))
	}
	got := assets[0]
	if got.ID != asset.ID || got.Name != asset.Name || got.Currency != asset.Currency || !got.Included {
		t.Errorf("got %+v, want %+v", got, asset)
	}
	if !got.Amount.Equal(asset.Amount) {
		t.Errorf("got amount %s, want %s", got.Amount, asset.Amount)
	}

	// Saving under the same ID updates in place.
	asset.Amount = decimal.NewFromInt(9000)
	asset.Included = false
	if err := repo.SaveAsset(ctx, asset); err != nil {
		t.Fatalf("update: %v", err)
	}
	assets, err = repo.ListAssets(ctx)
	if err != nil {
		t.Fatalf("list after update: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("got %d assets after update, want 1", len(assets))
	}
	if !assets[0].Amount.Equal(decimal.NewFromInt(9000)) || assets[0].Included {
		t.Errorf("update not applied: %+v", assets[0])
	}

	if err := repo.DeleteAsset(ctx, "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteAsset(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want %v", err, ErrNotFound)
	}
}

func TestCheckRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	check := core.Check{
		ID:            "c1",
		DueDate:       "2024-06-20",
		Valor:         2,
		EffectiveDate: "2024-06-24",
		Amount:        decimal.NewFromInt(5000),
		Description:   "Acme Ltd",
	}
	if err := repo.SaveCheck(ctx, check); err != nil {
		t.Fatalf("save: %v", err)
	}

	checks, err := repo.ListChecks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(checks) != 1 {
		t.Fatalf("got %d checks, want 1", len(checks))
	}
	if got := checks[0]; got.EffectiveDate != check.EffectiveDate || got.Valor != check.Valor {
		t.Errorf("got %+v, want %+v", got, check)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rules := []core.RecurringRule{
		{
			ID:          "r1",
			Direction:   core.Expense,
			StartDate:   "2024-01-01",
			Amount:      decimal.NewFromInt(250),
			Currency:    core.TRY,
			Description: "Cleaning",
			Freq:        core.Weekly,
			WeekDays:    []int{1, 4},
		},
		{
			ID:          "r2",
			Direction:   core.Expense,
			StartDate:   "2024-01-01",
			Amount:      decimal.NewFromInt(80000),
			Currency:    core.TRY,
			Description: "Payroll",
			Freq:        core.Monthly,
			MonthType:   core.SpecialDay,
			SpecialOrd:  5,
			SpecialWday: 5,
		},
	}
	for _, rule := range rules {
		if err := repo.SaveRule(ctx, rule); err != nil {
			t.Fatalf("save %s: %v", rule.ID, err)
		}
	}

	got, err := repo.ListRules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rules, want 2", len(got))
	}

	byID := map[string]core.RecurringRule{}
	for _, rule := range got {
		byID[rule.ID] = rule
	}
	weekly := byID["r1"]
	if len(weekly.WeekDays) != 2 || weekly.WeekDays[0] != 1 || weekly.WeekDays[1] != 4 {
		t.Errorf("got week days %v, want [1 4]", weekly.WeekDays)
	}
	monthly := byID["r2"]
	if monthly.MonthType != core.SpecialDay || monthly.SpecialOrd != 5 || monthly.SpecialWday != 5 {
		t.Errorf("special rule mangled: %+v", monthly)
	}
}

func TestTransactionBatchAndTabDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tab := core.CustomTab{ID: "tab1", Name: "June receivables"}
	if err := repo.SaveTab(ctx, tab); err != nil {
		t.Fatalf("save tab: %v", err)
	}

	batch := []core.Transaction{
		{ID: "t1", Direction: core.Income, Date: "2024-06-20", Amount: decimal.NewFromInt(100), Currency: core.TRY, Description: "Customer A", Source: core.SourceExcel, SourceTab: "tab1"},
		{ID: "t2", Direction: core.Income, Date: "2024-06-21", Amount: decimal.NewFromInt(200), Currency: core.TRY, Description: "Customer B", Source: core.SourceExcel, SourceTab: "tab1"},
		{ID: "t3", Direction: core.Expense, Date: "2024-06-22", Amount: decimal.NewFromInt(300), Currency: core.TRY, Description: "Manual expense", Source: core.SourceManual},
	}
	if err := repo.SaveTransactions(ctx, batch); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	byTab, err := repo.ListTransactionsByTab(ctx, "tab1")
	if err != nil {
		t.Fatalf("list by tab: %v", err)
	}
	if len(byTab) != 2 {
		t.Fatalf("got %d tab transactions, want 2", len(byTab))
	}

	// Deleting a tab drops its imported rows but not manual ones.
	if err := repo.DeleteTab(ctx, "tab1"); err != nil {
		t.Fatalf("delete tab: %v", err)
	}
	all, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].ID != "t3" {
		t.Fatalf("got %+v, want only the manual transaction", all)
	}

	if err := repo.DeleteTab(ctx, "tab1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second tab delete: got %v, want %v", err, ErrNotFound)
	}
}

func TestAnalysisReports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.LatestAnalysisReport(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty table: got %v, want %v", err, ErrNotFound)
	}

	for _, content := range []string{"first report", "second report"} {
		if err := repo.SaveAnalysisReport(ctx, AnalysisReport{
			ViewCurrency: core.TRY,
			Granularity:  string(core.WeeklyView),
			Content:      content,
		}); err != nil {
			t.Fatalf("save report: %v", err)
		}
	}

	latest, err := repo.LatestAnalysisReport(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Content != "second report" {
		t.Errorf("got %q, want the most recent report", latest.Content)
	}
}

func TestExport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveAsset(ctx, core.Asset{ID: "a1", Kind: core.BankAsset, Name: "Main", Currency: core.TRY, Amount: decimal.NewFromInt(1), Included: true}); err != nil {
		t.Fatalf("save asset: %v", err)
	}
	if err := repo.SaveTab(ctx, core.CustomTab{ID: "tab1", Name: "Imports"}); err != nil {
		t.Fatalf("save tab: %v", err)
	}

	snap, err := repo.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(snap.Assets) != 1 || len(snap.Tabs) != 1 {
		t.Errorf("snapshot incomplete: %+v", snap)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	snap := Snapshot{
		Assets: []core.Asset{
			{ID: "a1", Kind: core.BankAsset, Name: "Main", Currency: core.TRY, Amount: decimal.RequireFromString("10500.75"), Included: true},
		},
		Checks: []core.Check{
			{ID: "c1", DueDate: "2024-06-20", Valor: 2, EffectiveDate: "2024-06-24", Amount: decimal.NewFromInt(5000), Description: "Acme Ltd"},
		},
		Rules: []core.RecurringRule{
			{
				ID: "r1", Direction: core.Expense, StartDate: "2024-06-01",
				Amount: decimal.NewFromInt(30000), Currency: core.TRY,
				Description: "Rent", Freq: core.Weekly, WeekDays: []int{1, 4},
			},
		},
		Transactions: []core.Transaction{
			{ID: "t1", Direction: core.Income, Date: "2024-07-01", Amount: decimal.NewFromInt(100), Currency: core.TRY, Description: "Invoice", Source: core.SourceManual},
		},
		Tabs: []core.CustomTab{{ID: "tab1", Name: "Imports"}},
	}
	if err := repo.Restore(ctx, snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got, err := repo.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(got.Assets) != 1 || len(got.Checks) != 1 || len(got.Rules) != 1 ||
		len(got.Transactions) != 1 || len(got.Tabs) != 1 {
		t.Fatalf("restored snapshot incomplete: %+v", got)
	}
	if !got.Assets[0].Amount.Equal(snap.Assets[0].Amount) {
		t.Errorf("asset amount = %s, want %s", got.Assets[0].Amount, snap.Assets[0].Amount)
	}
	if len(got.Rules[0].WeekDays) != 2 {
		t.Errorf("rule week days = %v, want [1 4]", got.Rules[0].WeekDays)
	}
}

func TestRestoreUpsertsExistingRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveAsset(ctx, core.Asset{ID: "a1", Kind: core.BankAsset, Name: "Old name", Currency: core.TRY, Amount: decimal.NewFromInt(1), Included: true}); err != nil {
		t.Fatalf("save asset: %v", err)
	}

	snap := Snapshot{
		Assets: []core.Asset{
			{ID: "a1", Kind: core.BankAsset, Name: "New name", Currency: core.TRY, Amount: decimal.NewFromInt(2), Included: true},
		},
	}
	if err := repo.Restore(ctx, snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	assets, err := repo.ListAssets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("got %d assets, want 1 (restore must not duplicate)", len(assets))
	}
	if assets[0].Name != "New name" {
		t.Errorf("got name %q, want the restored value", assets[0].Name)
	}
}
