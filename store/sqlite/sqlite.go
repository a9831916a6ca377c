/*
Package sqlite provides a SQLite-backed implementation of the engine's
storage interfaces.

PURPOSE:
  Implements engine.Store (entities, credit ledger, pools, flags,
  suspensions). In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

WHERE THE INVARIANTS LIVE:
  - idx_unique_active_award: partial unique index on
    (rep_id, dm_id, period, source) WHERE active=1. Exactly-once awarding is
    a property of the schema, not of a check-then-insert in application
    code.
  - ApplyConsumption / ResetPool: version-guarded writes inside one SQL
    transaction; an UPDATE whose expected version no longer matches affects
    zero rows and surfaces ErrConcurrentModification.
  - ReplaceActiveSuspension: deactivate-then-insert inside one transaction
    so a representative never carries two active suspension rows.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/engine.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory databases vanish per-connection; a single connection also
	// sidesteps SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Representatives (sales-side actors; deactivated, never deleted)
	CREATE TABLE IF NOT EXISTS representatives (
		id TEXT PRIMARY KEY,
		company_domain TEXT NOT NULL,
		standing TEXT NOT NULL DEFAULT 'good',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reps_company
		ON representatives(company_domain);

	-- Decision makers (referred actors; mutated by external flows)
	CREATE TABLE IF NOT EXISTS decision_makers (
		id TEXT PRIMARY KEY,
		referrer_id TEXT,
		engagement_score INTEGER,
		calendar_connected INTEGER NOT NULL DEFAULT 0,
		onboarding_complete INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dms_referrer
		ON decision_makers(referrer_id) WHERE referrer_id IS NOT NULL;

	-- Credit ledger (immutable award records)
	CREATE TABLE IF NOT EXISTS credit_entries (
		id TEXT PRIMARY KEY,
		rep_id TEXT NOT NULL,
		dm_id TEXT NOT NULL,
		period TEXT NOT NULL,
		source TEXT NOT NULL,
		amount INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		awarded_at TEXT NOT NULL
	);

	-- CRITICAL: at most one ACTIVE entry per (rep, dm, period, source).
	-- Concurrent award attempts lose here, not in application code.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_active_award
		ON credit_entries(rep_id, dm_id, period, source)
		WHERE active = 1;

	CREATE INDEX IF NOT EXISTS idx_entries_rep
		ON credit_entries(rep_id, awarded_at DESC);

	-- Company credit pools (versioned for optimistic concurrency)
	CREATE TABLE IF NOT EXISTS pools (
		company_domain TEXT PRIMARY KEY,
		allowance TEXT NOT NULL,
		used TEXT NOT NULL,
		remaining TEXT NOT NULL,
		period TEXT NOT NULL,
		max_calls_per_month INTEGER,
		max_unlocks_per_month INTEGER,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Per-rep consumption counters, keyed by period so stale months fall away
	CREATE TABLE IF NOT EXISTS pool_usage (
		company_domain TEXT NOT NULL,
		rep_id TEXT NOT NULL,
		period TEXT NOT NULL,
		kind TEXT NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (company_domain, rep_id, period, kind)
	);

	-- Behavioral flags
	CREATE TABLE IF NOT EXISTS flags (
		id TEXT PRIMARY KEY,
		target_rep_id TEXT NOT NULL,
		reporter_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		description TEXT,
		severity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_flags_target_created
		ON flags(target_rep_id, created_at);

	-- Suspensions
	CREATE TABLE IF NOT EXISTS suspensions (
		id TEXT PRIMARY KEY,
		rep_id TEXT NOT NULL,
		type TEXT NOT NULL,
		reason TEXT,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_suspensions_rep_active
		ON suspensions(rep_id, active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTITY STORE
// =============================================================================

// SaveRepresentative inserts or updates a representative.
func (s *Store) SaveRepresentative(ctx context.Context, rep engine.Representative) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO representatives (id, company_domain, standing, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_domain = excluded.company_domain,
			standing = excluded.standing,
			active = excluded.active
	`
	createdAt := rep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		rep.ID, rep.CompanyDomain, rep.Standing, boolToInt(rep.Active),
		createdAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetRepresentative retrieves a representative by id. Returns (nil, nil)
// when the id is unknown.
func (s *Store) GetRepresentative(ctx context.Context, id engine.RepID) (*engine.Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rep engine.Representative
	var active int
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_domain, standing, active, created_at FROM representatives WHERE id = ?",
		id,
	).Scan(&rep.ID, &rep.CompanyDomain, &rep.Standing, &active, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rep.Active = active != 0
	rep.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rep, nil
}

// SaveDecisionMaker inserts or updates a decision maker.
func (s *Store) SaveDecisionMaker(ctx context.Context, dm engine.DecisionMaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO decision_makers
		(id, referrer_id, engagement_score, calendar_connected, onboarding_complete, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			referrer_id = excluded.referrer_id,
			engagement_score = excluded.engagement_score,
			calendar_connected = excluded.calendar_connected,
			onboarding_complete = excluded.onboarding_complete,
			active = excluded.active
	`
	var referrer *string
	if dm.ReferrerID != nil {
		r := string(*dm.ReferrerID)
		referrer = &r
	}
	createdAt := dm.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		dm.ID, referrer, dm.EngagementScore,
		boolToInt(dm.CalendarConnected), boolToInt(dm.OnboardingComplete),
		boolToInt(dm.Active), createdAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetDecisionMaker retrieves a decision maker by id. Returns (nil, nil)
// when the id is unknown.
func (s *Store) GetDecisionMaker(ctx context.Context, id engine.DMID) (*engine.DecisionMaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var dm engine.DecisionMaker
	var referrer sql.NullString
	var score sql.NullInt64
	var calendar, onboarding, active int
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, referrer_id, engagement_score, calendar_connected, onboarding_complete, active, created_at
		 FROM decision_makers WHERE id = ?`,
		id,
	).Scan(&dm.ID, &referrer, &score, &calendar, &onboarding, &active, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if referrer.Valid {
		r := engine.RepID(referrer.String)
		dm.ReferrerID = &r
	}
	if score.Valid {
		v := int(score.Int64)
		dm.EngagementScore = &v
	}
	dm.CalendarConnected = calendar != 0
	dm.OnboardingComplete = onboarding != 0
	dm.Active = active != 0
	dm.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &dm, nil
}

// =============================================================================
// CREDIT STORE
// =============================================================================

// AppendEntry persists a ledger entry. The partial unique index rejects a
// second active entry for the same tuple; that rejection is mapped to
// DuplicateEntryError.
func (s *Store) AppendEntry(ctx context.Context, e engine.CreditLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO credit_entries (id, rep_id, dm_id, period, source, amount, active, awarded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.RepID, e.DMID, e.Period.String(), e.Source, e.Amount,
		boolToInt(e.Active), e.AwardedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &engine.DuplicateEntryError{
				RepID:  e.RepID,
				DMID:   e.DMID,
				Period: e.Period,
				Source: e.Source,
			}
		}
		return fmt.Errorf("failed to append credit entry: %w", err)
	}
	return nil
}

// ActiveEntry returns the active entry for the tuple, if any.
func (s *Store) ActiveEntry(ctx context.Context, rep engine.RepID, dm engine.DMID, period engine.Period, source engine.SourceClass) (*engine.CreditLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, rep_id, dm_id, period, source, amount, active, awarded_at
		FROM credit_entries
		WHERE rep_id = ? AND dm_id = ? AND period = ? AND source = ? AND active = 1
		LIMIT 1
	`
	entries, err := s.queryEntries(ctx, query, rep, dm, period.String(), source)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// EntriesByRep returns all entries for a representative, newest first.
func (s *Store) EntriesByRep(ctx context.Context, rep engine.RepID) ([]engine.CreditLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, rep_id, dm_id, period, source, amount, active, awarded_at
		FROM credit_entries
		WHERE rep_id = ?
		ORDER BY awarded_at DESC
	`
	return s.queryEntries(ctx, query, rep)
}

// DeactivateEntry soft-deactivates an entry (administrative reversal).
func (s *Store) DeactivateEntry(ctx context.Context, id engine.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE credit_entries SET active = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrEntryNotFound
	}
	return nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]engine.CreditLedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit entries: %w", err)
	}
	defer rows.Close()

	var entries []engine.CreditLedgerEntry
	for rows.Next() {
		var e engine.CreditLedgerEntry
		var period, awardedAt string
		var active int
		if err := rows.Scan(&e.ID, &e.RepID, &e.DMID, &period, &e.Source, &e.Amount, &active, &awardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit entry: %w", err)
		}
		e.Period, _ = engine.ParsePeriod(period)
		e.Active = active != 0
		e.AwardedAt, _ = time.Parse(time.RFC3339Nano, awardedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// POOL STORE
// =============================================================================

// SavePool inserts or replaces a pool.
func (s *Store) SavePool(ctx context.Context, p engine.CompanyCreditPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO pools
		(company_domain, allowance, used, remaining, period,
		 max_calls_per_month, max_unlocks_per_month, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_domain) DO UPDATE SET
			allowance = excluded.allowance,
			used = excluded.used,
			remaining = excluded.remaining,
			period = excluded.period,
			max_calls_per_month = excluded.max_calls_per_month,
			max_unlocks_per_month = excluded.max_unlocks_per_month,
			version = excluded.version,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	createdAt := now
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, query,
		p.CompanyDomain, p.Allowance.String(), p.Used.String(), p.Remaining.String(),
		p.Period.String(), p.Limits.MaxCallsPerMonth, p.Limits.MaxUnlocksPerMonth,
		p.Version, createdAt, now,
	)
	return err
}

// GetPool retrieves a pool by company domain. Returns (nil, nil) when the
// domain has no pool.
func (s *Store) GetPool(ctx context.Context, domain engine.CompanyDomain) (*engine.CompanyCreditPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT company_domain, allowance, used, remaining, period,
		        max_calls_per_month, max_unlocks_per_month, version, created_at, updated_at
		 FROM pools WHERE company_domain = ?`, domain)

	pool, err := scanPool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Pools returns all pools, ordered by company domain.
func (s *Store) Pools(ctx context.Context) ([]engine.CompanyCreditPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT company_domain, allowance, used, remaining, period,
		        max_calls_per_month, max_unlocks_per_month, version, created_at, updated_at
		 FROM pools ORDER BY company_domain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []engine.CompanyCreditPool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, *pool)
	}
	return pools, rows.Err()
}

// UpdatePool overwrites pool fields under a version guard.
func (s *Store) UpdatePool(ctx context.Context, p engine.CompanyCreditPool, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE pools SET
			allowance = ?, used = ?, remaining = ?, period = ?,
			max_calls_per_month = ?, max_unlocks_per_month = ?,
			version = version + 1, updated_at = ?
		WHERE company_domain = ? AND version = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		p.Allowance.String(), p.Used.String(), p.Remaining.String(), p.Period.String(),
		p.Limits.MaxCallsPerMonth, p.Limits.MaxUnlocksPerMonth,
		time.Now().UTC().Format(time.RFC3339Nano),
		p.CompanyDomain, expectedVersion,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrConcurrentModification
	}
	return nil
}

// ApplyConsumption applies the pool decrement and the per-rep usage bump in
// one transaction, guarded by the pool version.
func (s *Store) ApplyConsumption(ctx context.Context, c engine.Consumption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE pools SET used = ?, remaining = ?, version = version + 1, updated_at = ?
		 WHERE company_domain = ? AND version = ?`,
		c.NewUsed.String(), c.NewRemaining.String(),
		time.Now().UTC().Format(time.RFC3339Nano),
		c.CompanyDomain, c.ExpectedVersion,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrConcurrentModification
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pool_usage (company_domain, rep_id, period, kind, used)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(company_domain, rep_id, period, kind) DO UPDATE SET
			used = pool_usage.used + excluded.used`,
		c.CompanyDomain, c.RepID, c.Period.String(), c.Kind, c.Amount,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ResetPool rolls the pool into the target period and clears the domain's
// usage counters in one transaction.
func (s *Store) ResetPool(ctx context.Context, domain engine.CompanyDomain, target engine.Period, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE pools SET used = '0', remaining = allowance, period = ?,
			version = version + 1, updated_at = ?
		 WHERE company_domain = ? AND version = ?`,
		target.String(), time.Now().UTC().Format(time.RFC3339Nano),
		domain, expectedVersion,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrConcurrentModification
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM pool_usage WHERE company_domain = ?", domain); err != nil {
		return err
	}

	return tx.Commit()
}

// UsageFor returns a representative's consumed amount for a kind in a period.
func (s *Store) UsageFor(ctx context.Context, domain engine.CompanyDomain, rep engine.RepID, period engine.Period, kind engine.ConsumeKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT used FROM pool_usage
		 WHERE company_domain = ? AND rep_id = ? AND period = ? AND kind = ?`,
		domain, rep, period.String(), kind,
	).Scan(&used)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return used, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPool(row rowScanner) (*engine.CompanyCreditPool, error) {
	var p engine.CompanyCreditPool
	var allowance, used, remaining, period, createdAt, updatedAt string
	var maxCalls, maxUnlocks sql.NullInt64

	err := row.Scan(&p.CompanyDomain, &allowance, &used, &remaining, &period,
		&maxCalls, &maxUnlocks, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Allowance = mustDecimal(allowance)
	p.Used = mustDecimal(used)
	p.Remaining = mustDecimal(remaining)
	p.Period, _ = engine.ParsePeriod(period)
	if maxCalls.Valid {
		v := int(maxCalls.Int64)
		p.Limits.MaxCallsPerMonth = &v
	}
	if maxUnlocks.Valid {
		v := int(maxUnlocks.Int64)
		p.Limits.MaxUnlocksPerMonth = &v
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}

// =============================================================================
// FLAG STORE
// =============================================================================

// AppendFlag persists a behavioral flag.
func (s *Store) AppendFlag(ctx context.Context, f engine.FlagRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO flags
		(id, target_rep_id, reporter_id, reason, description, severity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.TargetRepID, f.ReporterID, f.Reason, f.Description,
		f.Severity, f.Status,
		f.CreatedAt.Format(time.RFC3339Nano), f.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetFlag retrieves a flag by id. Returns (nil, nil) when unknown.
func (s *Store) GetFlag(ctx context.Context, id engine.FlagID) (*engine.FlagRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flags, err := s.queryFlags(ctx,
		`SELECT id, target_rep_id, reporter_id, reason, description, severity, status, created_at, updated_at
		 FROM flags WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(flags) == 0 {
		return nil, nil
	}
	return &flags[0], nil
}

// FlagsByTarget returns flags against a representative created in [from, to],
// oldest first.
func (s *Store) FlagsByTarget(ctx context.Context, rep engine.RepID, from, to time.Time) ([]engine.FlagRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, target_rep_id, reporter_id, reason, description, severity, status, created_at, updated_at
		FROM flags
		WHERE target_rep_id = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC
	`
	return s.queryFlags(ctx, query, rep,
		from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano))
}

// UpdateFlagStatus moves a flag through its resolution lifecycle.
func (s *Store) UpdateFlagStatus(ctx context.Context, id engine.FlagID, status engine.FlagStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE flags SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrFlagNotFound
	}
	return nil
}

func (s *Store) queryFlags(ctx context.Context, query string, args ...any) ([]engine.FlagRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flags: %w", err)
	}
	defer rows.Close()

	var flags []engine.FlagRecord
	for rows.Next() {
		var f engine.FlagRecord
		var description sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&f.ID, &f.TargetRepID, &f.ReporterID, &f.Reason,
			&description, &f.Severity, &f.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		f.Description = description.String
		f.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		f.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// =============================================================================
// SUSPENSION STORE
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppendSuspension persists a suspension record.
func (s *Store) AppendSuspension(ctx context.Context, rec engine.SuspensionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertSuspension(ctx, s.db, rec)
}

func insertSuspension(ctx context.Context, db execer, rec engine.SuspensionRecord) error {
	query := `
		INSERT INTO suspensions (id, rep_id, type, reason, start_at, end_at, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		rec.ID, rec.RepID, rec.Type, rec.Reason,
		rec.StartAt.Format(time.RFC3339Nano), rec.EndAt.Format(time.RFC3339Nano),
		boolToInt(rec.Active),
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ActiveSuspension returns the rep's row with active=1, if any. Expiry is a
// domain concern; the store reports the row as persisted.
func (s *Store) ActiveSuspension(ctx context.Context, rep engine.RepID) (*engine.SuspensionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.querySuspensions(ctx,
		`SELECT id, rep_id, type, reason, start_at, end_at, active, created_at, updated_at
		 FROM suspensions WHERE rep_id = ? AND active = 1
		 ORDER BY created_at DESC LIMIT 1`, rep)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// ReplaceActiveSuspension deactivates the rep's current active row and
// inserts the replacement in one transaction.
func (s *Store) ReplaceActiveSuspension(ctx context.Context, rep engine.RepID, rec engine.SuspensionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE suspensions SET active = 0, updated_at = ? WHERE rep_id = ? AND active = 1",
		time.Now().UTC().Format(time.RFC3339Nano), rep); err != nil {
		return err
	}

	if err := insertSuspension(ctx, tx, rec); err != nil {
		return err
	}

	return tx.Commit()
}

// DeactivateSuspension flips active to 0 (expiry or lift).
func (s *Store) DeactivateSuspension(ctx context.Context, id engine.SuspensionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE suspensions SET active = 0, updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrSuspensionNotFound
	}
	return nil
}

// SuspensionsByRep returns the rep's suspension history, newest first.
func (s *Store) SuspensionsByRep(ctx context.Context, rep engine.RepID) ([]engine.SuspensionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySuspensions(ctx,
		`SELECT id, rep_id, type, reason, start_at, end_at, active, created_at, updated_at
		 FROM suspensions WHERE rep_id = ? ORDER BY created_at DESC`, rep)
}

func (s *Store) querySuspensions(ctx context.Context, query string, args ...any) ([]engine.SuspensionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suspensions: %w", err)
	}
	defer rows.Close()

	var recs []engine.SuspensionRecord
	for rows.Next() {
		var rec engine.SuspensionRecord
		var reason sql.NullString
		var startAt, endAt, createdAt, updatedAt string
		var active int
		if err := rows.Scan(&rec.ID, &rec.RepID, &rec.Type, &reason,
			&startAt, &endAt, &active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suspension: %w", err)
		}
		rec.Reason = reason.String
		rec.Active = active != 0
		rec.StartAt, _ = time.Parse(time.RFC3339Nano, startAt)
		rec.EndAt, _ = time.Parse(time.RFC3339Nano, endAt)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
