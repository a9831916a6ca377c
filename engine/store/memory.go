// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements engine.Store with a single mutex. Mutations are applied
// under the lock, which gives the same atomicity guarantees the SQLite store
// gets from transactions and unique indexes.
type Memory struct {
	mu             sync.RWMutex
	representatives map[engine.RepID]engine.Representative
	decisionMakers map[engine.DMID]engine.DecisionMaker
	entries        []engine.CreditLedgerEntry
	pools          map[engine.CompanyDomain]engine.CompanyCreditPool
	usage          map[usageKey]int
	flags          []engine.FlagRecord
	suspensions    []engine.SuspensionRecord
}

type usageKey struct {
	Domain engine.CompanyDomain
	Rep    engine.RepID
	Period engine.Period
	Kind   engine.ConsumeKind
}

var _ engine.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		representatives: make(map[engine.RepID]engine.Representative),
		decisionMakers:  make(map[engine.DMID]engine.DecisionMaker),
		pools:           make(map[engine.CompanyDomain]engine.CompanyCreditPool),
		usage:           make(map[usageKey]int),
	}
}

// =============================================================================
// ENTITY STORE
// =============================================================================

func (m *Memory) SaveRepresentative(_ context.Context, rep engine.Representative) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.representatives[rep.ID] = rep
	return nil
}

func (m *Memory) GetRepresentative(_ context.Context, id engine.RepID) (*engine.Representative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep, ok := m.representatives[id]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}

func (m *Memory) SaveDecisionMaker(_ context.Context, dm engine.DecisionMaker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisionMakers[dm.ID] = dm
	return nil
}

func (m *Memory) GetDecisionMaker(_ context.Context, id engine.DMID) (*engine.DecisionMaker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dm, ok := m.decisionMakers[id]
	if !ok {
		return nil, nil
	}
	return &dm, nil
}

// =============================================================================
// CREDIT STORE
// =============================================================================

// AppendEntry enforces the active-tuple uniqueness invariant under the
// write lock, mirroring the SQLite partial unique index.
func (m *Memory) AppendEntry(_ context.Context, e engine.CreditLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.entries {
		if existing.Active && existing.RepID == e.RepID && existing.DMID == e.DMID &&
			existing.Period == e.Period && existing.Source == e.Source {
			return &engine.DuplicateEntryError{
				RepID: e.RepID, DMID: e.DMID, Period: e.Period, Source: e.Source,
				ExistingID: existing.ID,
			}
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) ActiveEntry(_ context.Context, rep engine.RepID, dm engine.DMID, period engine.Period, source engine.SourceClass) (*engine.CreditLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.Active && e.RepID == rep && e.DMID == dm && e.Period == period && e.Source == source {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (m *Memory) EntriesByRep(_ context.Context, rep engine.RepID) ([]engine.CreditLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.CreditLedgerEntry
	for _, e := range m.entries {
		if e.RepID == rep {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AwardedAt.After(result[j].AwardedAt)
	})
	return result, nil
}

func (m *Memory) DeactivateEntry(_ context.Context, id engine.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].Active = false
			return nil
		}
	}
	return engine.ErrEntryNotFound
}

// =============================================================================
// POOL STORE
// =============================================================================

func (m *Memory) SavePool(_ context.Context, p engine.CompanyCreditPool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[p.CompanyDomain] = p
	return nil
}

func (m *Memory) GetPool(_ context.Context, domain engine.CompanyDomain) (*engine.CompanyCreditPool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[domain]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) Pools(_ context.Context) ([]engine.CompanyCreditPool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.CompanyCreditPool, 0, len(m.pools))
	for _, p := range m.pools {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CompanyDomain < result[j].CompanyDomain
	})
	return result, nil
}

func (m *Memory) UpdatePool(_ context.Context, p engine.CompanyCreditPool, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.pools[p.CompanyDomain]
	if !ok {
		return engine.ErrCompanyNotFound
	}
	if current.Version != expectedVersion {
		return engine.ErrConcurrentModification
	}
	p.Version = expectedVersion + 1
	p.UpdatedAt = time.Now().UTC()
	m.pools[p.CompanyDomain] = p
	return nil
}

func (m *Memory) ApplyConsumption(_ context.Context, c engine.Consumption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, ok := m.pools[c.CompanyDomain]
	if !ok {
		return engine.ErrCompanyNotFound
	}
	if pool.Version != c.ExpectedVersion {
		return engine.ErrConcurrentModification
	}

	pool.Used = c.NewUsed
	pool.Remaining = c.NewRemaining
	pool.Version++
	pool.UpdatedAt = time.Now().UTC()
	m.pools[c.CompanyDomain] = pool

	k := usageKey{Domain: c.CompanyDomain, Rep: c.RepID, Period: c.Period, Kind: c.Kind}
	m.usage[k] += c.Amount
	return nil
}

func (m *Memory) ResetPool(_ context.Context, domain engine.CompanyDomain, target engine.Period, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, ok := m.pools[domain]
	if !ok {
		return engine.ErrCompanyNotFound
	}
	if pool.Version != expectedVersion {
		return engine.ErrConcurrentModification
	}

	pool.Used = decimal.Zero
	pool.Remaining = pool.Allowance
	pool.Period = target
	pool.Version++
	pool.UpdatedAt = time.Now().UTC()
	m.pools[domain] = pool

	for k := range m.usage {
		if k.Domain == domain {
			delete(m.usage, k)
		}
	}
	return nil
}

func (m *Memory) UsageFor(_ context.Context, domain engine.CompanyDomain, rep engine.RepID, period engine.Period, kind engine.ConsumeKind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usage[usageKey{Domain: domain, Rep: rep, Period: period, Kind: kind}], nil
}

// =============================================================================
// FLAG STORE
// =============================================================================

func (m *Memory) AppendFlag(_ context.Context, f engine.FlagRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags = append(m.flags, f)
	return nil
}

func (m *Memory) GetFlag(_ context.Context, id engine.FlagID) (*engine.FlagRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.flags {
		if f.ID == id {
			flag := f
			return &flag, nil
		}
	}
	return nil, nil
}

func (m *Memory) FlagsByTarget(_ context.Context, rep engine.RepID, from, to time.Time) ([]engine.FlagRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.FlagRecord
	for _, f := range m.flags {
		if f.TargetRepID == rep && !f.CreatedAt.Before(from) && !f.CreatedAt.After(to) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) UpdateFlagStatus(_ context.Context, id engine.FlagID, status engine.FlagStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.flags {
		if m.flags[i].ID == id {
			m.flags[i].Status = status
			m.flags[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return engine.ErrFlagNotFound
}

// =============================================================================
// SUSPENSION STORE
// =============================================================================

func (m *Memory) AppendSuspension(_ context.Context, s engine.SuspensionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspensions = append(m.suspensions, s)
	return nil
}

func (m *Memory) ActiveSuspension(_ context.Context, rep engine.RepID) (*engine.SuspensionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.suspensions) - 1; i >= 0; i-- {
		if m.suspensions[i].RepID == rep && m.suspensions[i].Active {
			s := m.suspensions[i]
			return &s, nil
		}
	}
	return nil, nil
}

// ReplaceActiveSuspension deactivates-and-inserts under one lock hold,
// mirroring the SQLite transactional replace.
func (m *Memory) ReplaceActiveSuspension(_ context.Context, rep engine.RepID, s engine.SuspensionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for i := range m.suspensions {
		if m.suspensions[i].RepID == rep && m.suspensions[i].Active {
			m.suspensions[i].Active = false
			m.suspensions[i].UpdatedAt = now
		}
	}
	m.suspensions = append(m.suspensions, s)
	return nil
}

func (m *Memory) DeactivateSuspension(_ context.Context, id engine.SuspensionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.suspensions {
		if m.suspensions[i].ID == id {
			m.suspensions[i].Active = false
			m.suspensions[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return engine.ErrSuspensionNotFound
}

func (m *Memory) SuspensionsByRep(_ context.Context, rep engine.RepID) ([]engine.SuspensionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.SuspensionRecord
	for _, s := range m.suspensions {
		if s.RepID == rep {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
