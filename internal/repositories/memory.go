package repositories

import (
	"context"
	"sort"
	"sync"

	"nilepay/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// ExecuteInTransaction works on a copy of the state and swaps it in only
// when the callback succeeds, so a failed unit leaves no partial effect.
// The mutex serializes transactions the way row locks do in Postgres,
// which keeps the conditional status update honest under concurrency.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) Wallets() WalletRepository {
	return &memWallets{memAccess{store: s}}
}

func (s *MemoryStore) Transactions() TransactionRepository {
	return &memTransactions{memAccess{store: s}}
}

func (s *MemoryStore) Ledger() LedgerRepository {
	return &memLedger{memAccess{store: s}}
}

func (s *MemoryStore) Audit() AuditRepository {
	return &memAudit{memAccess{store: s}}
}

func (s *MemoryStore) Users() UserRepository {
	return &memUsers{memAccess{store: s}}
}

// AllTransactions returns a snapshot of every transaction, for tests that
// need to inspect rows whose ids the code under test generated.
func (s *MemoryStore) AllTransactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, 0, len(s.state.transactions))
	for _, t := range s.state.transactions {
		out = append(out, t)
	}
	return out
}

func (s *MemoryStore) ExecuteInTransaction(_ context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(&memTxStore{state: draft}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

// memTxStore operates on the draft state inside a transaction. The outer
// MemoryStore holds the lock for the whole unit, so no locking here. A
// nested ExecuteInTransaction joins the surrounding one.
type memTxStore struct {
	state *memState
}

func (s *memTxStore) Wallets() WalletRepository {
	return &memWallets{memAccess{state: s.state}}
}

func (s *memTxStore) Transactions() TransactionRepository {
	return &memTransactions{memAccess{state: s.state}}
}

func (s *memTxStore) Ledger() LedgerRepository {
	return &memLedger{memAccess{state: s.state}}
}

func (s *memTxStore) Audit() AuditRepository {
	return &memAudit{memAccess{state: s.state}}
}

func (s *memTxStore) Users() UserRepository {
	return &memUsers{memAccess{state: s.state}}
}

func (s *memTxStore) ExecuteInTransaction(_ context.Context, fn func(Store) error) error {
	return fn(s)
}

type memState struct {
	wallets      map[uint]models.Wallet
	transactions map[string]models.Transaction
	entries      []models.LedgerEntry
	audits       []models.AuditLog
	users        map[uint]models.User

	nextWalletID uint
	nextEntryID  uint
	nextAuditID  uint
	nextUserID   uint
}

func newMemState() *memState {
	return &memState{
		wallets:      make(map[uint]models.Wallet),
		transactions: make(map[string]models.Transaction),
		users:        make(map[uint]models.User),
		nextWalletID: 1,
		nextEntryID:  1,
		nextAuditID:  1,
		nextUserID:   1,
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		wallets:      make(map[uint]models.Wallet, len(st.wallets)),
		transactions: make(map[string]models.Transaction, len(st.transactions)),
		entries:      append([]models.LedgerEntry(nil), st.entries...),
		audits:       append([]models.AuditLog(nil), st.audits...),
		users:        make(map[uint]models.User, len(st.users)),
		nextWalletID: st.nextWalletID,
		nextEntryID:  st.nextEntryID,
		nextAuditID:  st.nextAuditID,
		nextUserID:   st.nextUserID,
	}
	for id, w := range st.wallets {
		c.wallets[id] = w
	}
	for id, t := range st.transactions {
		c.transactions[id] = t
	}
	for id, u := range st.users {
		c.users[id] = u
	}
	return c
}

// memAccess resolves the state to operate on: either the transaction draft
// (no locking, the store lock is already held) or the live store state
// guarded per call.
type memAccess struct {
	store *MemoryStore
	state *memState
}

func (a *memAccess) with(fn func(*memState) error) error {
	if a.state != nil {
		return fn(a.state)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

type memWallets struct {
	memAccess
}

func (r *memWallets) Create(_ context.Context, wallet *models.Wallet) error {
	return r.with(func(st *memState) error {
		wallet.ID = st.nextWalletID
		st.nextWalletID++
		st.wallets[wallet.ID] = *wallet
		return nil
	})
}

func (r *memWallets) GetByID(_ context.Context, id uint) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := r.with(func(st *memState) error {
		w, ok := st.wallets[id]
		if !ok {
			return ErrWalletNotFound
		}
		wallet = &w
		return nil
	})
	return wallet, err
}

func (r *memWallets) GetByIDForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *memWallets) GetByUserID(_ context.Context, userID uint) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := r.with(func(st *memState) error {
		for _, w := range st.wallets {
			if w.UserID == userID {
				found := w
				wallet = &found
				return nil
			}
		}
		return ErrWalletNotFound
	})
	return wallet, err
}

func (r *memWallets) GetByWalletRef(_ context.Context, ref string) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := r.with(func(st *memState) error {
		for _, w := range st.wallets {
			if w.WalletRef == ref {
				found := w
				wallet = &found
				return nil
			}
		}
		return ErrWalletNotFound
	})
	return wallet, err
}

func (r *memWallets) Save(_ context.Context, wallet *models.Wallet) error {
	return r.with(func(st *memState) error {
		if _, ok := st.wallets[wallet.ID]; !ok {
			return ErrWalletNotFound
		}
		st.wallets[wallet.ID] = *wallet
		return nil
	})
}

type memTransactions struct {
	memAccess
}

func (r *memTransactions) Create(_ context.Context, txn *models.Transaction) error {
	return r.with(func(st *memState) error {
		st.transactions[txn.ID] = *txn
		return nil
	})
}

func (r *memTransactions) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	var txn *models.Transaction
	err := r.with(func(st *memState) error {
		t, ok := st.transactions[id]
		if !ok {
			return ErrTransactionNotFound
		}
		txn = &t
		return nil
	})
	return txn, err
}

func (r *memTransactions) MarkResolved(_ context.Context, id, status, description string, meta models.JSON) (bool, error) {
	resolved := false
	err := r.with(func(st *memState) error {
		t, ok := st.transactions[id]
		if !ok || t.Status != models.TransactionStatusPending {
			return nil
		}
		t.Status = status
		if description != "" {
			t.Description = description
		}
		t.Metadata = mergeJSON(t.Metadata, meta)
		st.transactions[id] = t
		resolved = true
		return nil
	})
	return resolved, err
}

func (r *memTransactions) SetExpiryJob(_ context.Context, id, jobID string) error {
	return r.with(func(st *memState) error {
		t, ok := st.transactions[id]
		if !ok {
			return ErrTransactionNotFound
		}
		t.ExpiryJobID = jobID
		st.transactions[id] = t
		return nil
	})
}

func (r *memTransactions) MergeMetadata(_ context.Context, id string, meta models.JSON) error {
	return r.with(func(st *memState) error {
		t, ok := st.transactions[id]
		if !ok {
			return ErrTransactionNotFound
		}
		t.Metadata = mergeJSON(t.Metadata, meta)
		st.transactions[id] = t
		return nil
	})
}

type memLedger struct {
	memAccess
}

func (r *memLedger) Append(_ context.Context, entry *models.LedgerEntry) error {
	return r.with(func(st *memState) error {
		entry.ID = st.nextEntryID
		st.nextEntryID++
		st.entries = append(st.entries, *entry)
		return nil
	})
}

func (r *memLedger) ListByWallet(_ context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.with(func(st *memState) error {
		for _, e := range st.entries {
			if e.WalletID == walletID {
				entries = append(entries, e)
			}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
		if offset < 0 {
			offset = 0
		}
		if offset >= len(entries) {
			entries = nil
			return nil
		}
		entries = entries[offset:]
		if limit > 0 && limit < len(entries) {
			entries = entries[:limit]
		}
		return nil
	})
	return entries, err
}

type memAudit struct {
	memAccess
}

func (r *memAudit) Write(_ context.Context, entry *models.AuditLog) error {
	return r.with(func(st *memState) error {
		entry.ID = st.nextAuditID
		st.nextAuditID++
		st.audits = append(st.audits, *entry)
		return nil
	})
}

type memUsers struct {
	memAccess
}

func (r *memUsers) Create(_ context.Context, user *models.User) error {
	return r.with(func(st *memState) error {
		user.ID = st.nextUserID
		st.nextUserID++
		st.users[user.ID] = *user
		return nil
	})
}

func (r *memUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	var user *models.User
	err := r.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrUserNotFound
		}
		user = &u
		return nil
	})
	return user, err
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var user *models.User
	err := r.with(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				found := u
				user = &found
				return nil
			}
		}
		return ErrUserNotFound
	})
	return user, err
}

func (r *memUsers) GetByProviderAccountID(_ context.Context, accountID string) (*models.User, error) {
	var user *models.User
	err := r.with(func(st *memState) error {
		for _, u := range st.users {
			if u.ProviderAccountID == accountID {
				found := u
				user = &found
				return nil
			}
		}
		return ErrUserNotFound
	})
	return user, err
}

func (r *memUsers) Save(_ context.Context, user *models.User) error {
	return r.with(func(st *memState) error {
		if _, ok := st.users[user.ID]; !ok {
			return ErrUserNotFound
		}
		st.users[user.ID] = *user
		return nil
	})
}

func mergeJSON(base, extra models.JSON) models.JSON {
	if len(extra) == 0 {
		return base
	}
	merged := make(models.JSON, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
