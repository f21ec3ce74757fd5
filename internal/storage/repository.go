// Package storage persists the dashboard's data in a local SQLite file.
// Amounts are stored as decimal strings to keep them exact across the
// round trip.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"nakit/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- assets ---

const insertAssetSQL = `
	INSERT INTO assets (id, kind, name, sub_kind, currency, amount, included)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		name = excluded.name,
		sub_kind = excluded.sub_kind,
		currency = excluded.currency,
		amount = excluded.amount,
		included = excluded.included`

func (r *SQLiteRepository) SaveAsset(ctx context.Context, a core.Asset) error {
	_, err := r.db.ExecContext(ctx, insertAssetSQL,
		a.ID, a.Kind, a.Name, a.SubKind, a.Currency, a.Amount.String(), boolToInt(a.Included))
	if err != nil {
		return fmt.Errorf("save asset: %w", err)
	}

	slog.InfoContext(ctx, "Asset saved", "id", a.ID, "name", a.Name)
	return nil
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]core.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, name, sub_kind, currency, amount, included
		FROM assets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []core.Asset
	for rows.Next() {
		var a core.Asset
		var amount string
		var included int
		if err := rows.Scan(&a.ID, &a.Kind, &a.Name, &a.SubKind, &a.Currency, &amount, &included); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse asset amount: %w", err)
		}
		a.Included = included != 0
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) DeleteAsset(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "assets", id, "delete asset")
}

// --- checks ---

const insertCheckSQL = `
	INSERT INTO checks (id, due_date, valor, effective_date, amount, description)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		due_date = excluded.due_date,
		valor = excluded.valor,
		effective_date = excluded.effective_date,
		amount = excluded.amount,
		description = excluded.description`

func (r *SQLiteRepository) SaveCheck(ctx context.Context, c core.Check) error {
	_, err := r.db.ExecContext(ctx, insertCheckSQL,
		c.ID, c.DueDate, c.Valor, c.EffectiveDate, c.Amount.String(), c.Description)
	if err != nil {
		return fmt.Errorf("save check: %w", err)
	}

	slog.InfoContext(ctx, "Check saved", "id", c.ID, "effective_date", c.EffectiveDate)
	return nil
}

func (r *SQLiteRepository) ListChecks(ctx context.Context) ([]core.Check, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, due_date, valor, effective_date, amount, description
		FROM checks ORDER BY effective_date`)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var checks []core.Check
	for rows.Next() {
		var c core.Check
		var amount string
		if err := rows.Scan(&c.ID, &c.DueDate, &c.Valor, &c.EffectiveDate, &amount, &c.Description); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse check amount: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (r *SQLiteRepository) DeleteCheck(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "checks", id, "delete check")
}

// --- recurring rules ---

const insertRuleSQL = `
	INSERT INTO recurring_rules
		(id, direction, start_date, amount, currency, description, freq,
		 week_days, month_type, fixed_day, special_ord, special_wday)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		direction = excluded.direction,
		start_date = excluded.start_date,
		amount = excluded.amount,
		currency = excluded.currency,
		description = excluded.description,
		freq = excluded.freq,
		week_days = excluded.week_days,
		month_type = excluded.month_type,
		fixed_day = excluded.fixed_day,
		special_ord = excluded.special_ord,
		special_wday = excluded.special_wday`

func (r *SQLiteRepository) SaveRule(ctx context.Context, rule core.RecurringRule) error {
	weekDays, err := json.Marshal(rule.WeekDays)
	if err != nil {
		return fmt.Errorf("encode week days: %w", err)
	}

	_, err = r.db.ExecContext(ctx, insertRuleSQL,
		rule.ID, rule.Direction, rule.StartDate, rule.Amount.String(), rule.Currency,
		rule.Description, rule.Freq, string(weekDays), rule.MonthType,
		rule.FixedDayNum, rule.SpecialOrd, rule.SpecialWday)
	if err != nil {
		return fmt.Errorf("save recurring rule: %w", err)
	}

	slog.InfoContext(ctx, "Recurring rule saved", "id", rule.ID, "description", rule.Description)
	return nil
}

func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, direction, start_date, amount, currency, description, freq,
		       week_days, month_type, fixed_day, special_ord, special_wday
		FROM recurring_rules ORDER BY description`)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		var rule core.RecurringRule
		var amount, weekDays string
		if err := rows.Scan(&rule.ID, &rule.Direction, &rule.StartDate, &amount,
			&rule.Currency, &rule.Description, &rule.Freq, &weekDays,
			&rule.MonthType, &rule.FixedDayNum, &rule.SpecialOrd, &rule.SpecialWday); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		if rule.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse rule amount: %w", err)
		}
		if err := json.Unmarshal([]byte(weekDays), &rule.WeekDays); err != nil {
			return nil, fmt.Errorf("decode week days: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "recurring_rules", id, "delete recurring rule")
}

// --- transactions ---

func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, insertTransactionSQL,
		t.ID, t.Direction, t.Date, t.Amount.String(), t.Currency, t.Description, t.Source, t.SourceTab)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved", "id", t.ID, "date", t.Date, "description", t.Description)
	return nil
}

// SaveTransactions writes a batch atomically. Used by the spreadsheet import
// so a half-failed import never leaves partial rows behind.
func (r *SQLiteRepository) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, insertTransactionSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Direction, t.Date, t.Amount.String(),
			t.Currency, t.Description, t.Source, t.SourceTab); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch saved", "count", len(txs))
	return nil
}

const insertTransactionSQL = `
	INSERT INTO transactions (id, direction, date, amount, currency, description, source, source_tab)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		direction = excluded.direction,
		date = excluded.date,
		amount = excluded.amount,
		currency = excluded.currency,
		description = excluded.description,
		source = excluded.source,
		source_tab = excluded.source_tab`

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, direction, date, amount, currency, description, source, source_tab
		FROM transactions ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByTab(ctx context.Context, tabID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, direction, date, amount, currency, description, source, source_tab
		FROM transactions WHERE source_tab = ? ORDER BY date`, tabID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by tab: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.Direction, &t.Date, &amount, &t.Currency,
			&t.Description, &t.Source, &t.SourceTab); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		var err error
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse transaction amount: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "transactions", id, "delete transaction")
}

// --- custom tabs ---

const insertTabSQL = `
	INSERT INTO custom_tabs (id, name) VALUES (?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name`

func (r *SQLiteRepository) SaveTab(ctx context.Context, tab core.CustomTab) error {
	_, err := r.db.ExecContext(ctx, insertTabSQL, tab.ID, tab.Name)
	if err != nil {
		return fmt.Errorf("save tab: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTabs(ctx context.Context) ([]core.CustomTab, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM custom_tabs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	defer rows.Close()

	var tabs []core.CustomTab
	for rows.Next() {
		var tab core.CustomTab
		if err := rows.Scan(&tab.ID, &tab.Name); err != nil {
			return nil, fmt.Errorf("scan tab: %w", err)
		}
		tabs = append(tabs, tab)
	}
	return tabs, rows.Err()
}

// DeleteTab removes a tab together with every transaction imported into it.
func (r *SQLiteRepository) DeleteTab(ctx context.Context, id string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE source_tab = ?`, id); err != nil {
		return fmt.Errorf("delete tab transactions: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM custom_tabs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tab: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tab: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit tab delete: %w", err)
	}

	slog.InfoContext(ctx, "Tab deleted with its transactions", "id", id)
	return nil
}

// --- analysis reports ---

type AnalysisReport struct {
	ID           int64         `json:"id"`
	CreatedAt    time.Time     `json:"createdAt"`
	ViewCurrency core.Currency `json:"viewCurrency"`
	Granularity  string        `json:"granularity"`
	Content      string        `json:"content"`
}

func (r *SQLiteRepository) SaveAnalysisReport(ctx context.Context, report AnalysisReport) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_reports (view_currency, granularity, content)
		VALUES (?, ?, ?)`,
		report.ViewCurrency, report.Granularity, report.Content)
	if err != nil {
		return fmt.Errorf("save analysis report: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LatestAnalysisReport(ctx context.Context) (AnalysisReport, error) {
	var report AnalysisReport
	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, view_currency, granularity, content
		FROM analysis_reports ORDER BY id DESC LIMIT 1`).
		Scan(&report.ID, &report.CreatedAt, &report.ViewCurrency, &report.Granularity, &report.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return report, ErrNotFound
	}
	if err != nil {
		return report, fmt.Errorf("latest analysis report: %w", err)
	}
	return report, nil
}

// --- backup ---

// Snapshot is a full export of the dashboard's data, used by the backup
// endpoint and restorable by replaying the saves.
type Snapshot struct {
	Assets       []core.Asset         `json:"assets"`
	Checks       []core.Check         `json:"checks"`
	Rules        []core.RecurringRule `json:"recurringRules"`
	Transactions []core.Transaction   `json:"transactions"`
	Tabs         []core.CustomTab     `json:"customTabs"`
}

func (r *SQLiteRepository) Export(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Assets, err = r.ListAssets(ctx); err != nil {
		return snap, err
	}
	if snap.Checks, err = r.ListChecks(ctx); err != nil {
		return snap, err
	}
	if snap.Rules, err = r.ListRules(ctx); err != nil {
		return snap, err
	}
	if snap.Transactions, err = r.ListTransactions(ctx); err != nil {
		return snap, err
	}
	if snap.Tabs, err = r.ListTabs(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// Restore replays a snapshot into the database atomically. Every record is
// upserted by id, exactly as saving it individually would, so restoring
// over existing data updates matching rows instead of duplicating them.
func (r *SQLiteRepository) Restore(ctx context.Context, snap Snapshot) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, tab := range snap.Tabs {
		if _, err := dbTx.ExecContext(ctx, insertTabSQL, tab.ID, tab.Name); err != nil {
			return fmt.Errorf("restore tab %s: %w", tab.ID, err)
		}
	}
	for _, a := range snap.Assets {
		if _, err := dbTx.ExecContext(ctx, insertAssetSQL,
			a.ID, a.Kind, a.Name, a.SubKind, a.Currency, a.Amount.String(), boolToInt(a.Included)); err != nil {
			return fmt.Errorf("restore asset %s: %w", a.ID, err)
		}
	}
	for _, c := range snap.Checks {
		if _, err := dbTx.ExecContext(ctx, insertCheckSQL,
			c.ID, c.DueDate, c.Valor, c.EffectiveDate, c.Amount.String(), c.Description); err != nil {
			return fmt.Errorf("restore check %s: %w", c.ID, err)
		}
	}
	for _, rule := range snap.Rules {
		weekDays, err := json.Marshal(rule.WeekDays)
		if err != nil {
			return fmt.Errorf("encode week days: %w", err)
		}
		if _, err := dbTx.ExecContext(ctx, insertRuleSQL,
			rule.ID, rule.Direction, rule.StartDate, rule.Amount.String(), rule.Currency,
			rule.Description, rule.Freq, string(weekDays), rule.MonthType,
			rule.FixedDayNum, rule.SpecialOrd, rule.SpecialWday); err != nil {
			return fmt.Errorf("restore recurring rule %s: %w", rule.ID, err)
		}
	}
	for _, t := range snap.Transactions {
		if _, err := dbTx.ExecContext(ctx, insertTransactionSQL,
			t.ID, t.Direction, t.Date, t.Amount.String(), t.Currency,
			t.Description, t.Source, t.SourceTab); err != nil {
			return fmt.Errorf("restore transaction %s: %w", t.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot restored",
		"assets", len(snap.Assets),
		"checks", len(snap.Checks),
		"rules", len(snap.Rules),
		"transactions", len(snap.Transactions),
		"tabs", len(snap.Tabs))
	return nil
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, id, op string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
