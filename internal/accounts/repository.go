package accounts

import (
	"context"
	"sort"
	"sync"
)

// Repository is the storage backend behind a Store. Implementations must
// return ErrNotFound for unknown usernames and ErrConflict on duplicate inserts.
type Repository interface {
	Get(ctx context.Context, username string) (*Account, error)
	Insert(ctx context.Context, account *Account) error
	List(ctx context.Context) ([]Account, error)
}

// MemoryRepository keeps accounts in a mutex-guarded map.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*Account)}
}

func (r *MemoryRepository) Get(_ context.Context, username string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	return account.clone(), nil
}

func (r *MemoryRepository) Insert(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Username]; exists {
		return ErrConflict
	}
	r.accounts[account.Username] = account.clone()
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		out = append(out, *account.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
