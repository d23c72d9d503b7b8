package sandbox

import (
	"context"
	"strings"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	users    map[string]User
	wallets  map[string][]LinkedWallet
	banks    map[string][]LinkedBank
	defaults map[string]DefaultChoice
	orders   map[string]Order
}

// NewMemoryStore builds an in-memory store. It backs the sandbox binary when
// no DATABASE_URL is set and every test.
func NewMemoryStore() Store {
	return &memoryStore{
		users:    make(map[string]User),
		wallets:  make(map[string][]LinkedWallet),
		banks:    make(map[string][]LinkedBank),
		defaults: make(map[string]DefaultChoice),
		orders:   make(map[string]Order),
	}
}

func (s *memoryStore) CreateUser(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) || existing.WalletAddress == user.WalletAddress {
			return ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *memoryStore) UserByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *memoryStore) UserByAddress(_ context.Context, address string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.WalletAddress == address {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *memoryStore) UpdateUsername(_ context.Context, id, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != id && strings.EqualFold(other.Username, username) {
			return ErrConflict
		}
	}
	user.Username = username
	s.users[id] = user
	return nil
}

func (s *memoryStore) UpdateEmail(_ context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Email = email
	s.users[id] = user
	return nil
}

func (s *memoryStore) UpdateKycStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.KycStatus = status
	s.users[id] = user
	return nil
}

func (s *memoryStore) AddWallet(_ context.Context, w LinkedWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.wallets[w.UserID] {
		if existing.Address == w.Address {
			return ErrConflict
		}
	}
	s.wallets[w.UserID] = append(s.wallets[w.UserID], w)
	return nil
}

func (s *memoryStore) ListWallets(_ context.Context, userID string) ([]LinkedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LinkedWallet(nil), s.wallets[userID]...), nil
}

func (s *memoryStore) DeleteWallet(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.wallets[userID]
	for i, w := range list {
		if w.ID == id {
			s.wallets[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *memoryStore) AddBank(_ context.Context, b LinkedBank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.banks[b.UserID] {
		if existing.BankName == b.BankName && existing.AccountNumber == b.AccountNumber {
			return ErrConflict
		}
	}
	s.banks[b.UserID] = append(s.banks[b.UserID], b)
	return nil
}

func (s *memoryStore) ListBanks(_ context.Context, userID string) ([]LinkedBank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LinkedBank(nil), s.banks[userID]...), nil
}

func (s *memoryStore) DeleteBank(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.banks[userID]
	for i, b := range list {
		if b.ID == id {
			s.banks[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *memoryStore) SetDefault(_ context.Context, userID string, choice DefaultChoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[userID] = choice
	return nil
}

func (s *memoryStore) GetDefault(_ context.Context, userID string) (DefaultChoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults[userID], nil
}

func (s *memoryStore) CreateOrder(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return ErrConflict
	}
	s.orders[o.ID] = o
	return nil
}

func (s *memoryStore) OrderByID(_ context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (s *memoryStore) UpdateOrder(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return ErrNotFound
	}
	s.orders[o.ID] = o
	return nil
}
