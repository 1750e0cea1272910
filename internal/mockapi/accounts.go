package mockapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Account roles.
const (
	RoleCustomer = "customer"
	RoleSupplier = "supplier"
	RoleAdmin    = "admin"
)

var (
	// ErrAccountNotFound is returned when no account has the requested id.
	ErrAccountNotFound = errors.New("accounts.not_found")
	// ErrAccountExists is returned when registering a login that is taken.
	ErrAccountExists = errors.New("accounts.exists")
	// ErrInvalidCredentials is returned for an unknown login or a wrong password.
	ErrInvalidCredentials = errors.New("accounts.invalid_credentials")
	// ErrAccountDisabled is returned when a disabled account presents valid credentials.
	ErrAccountDisabled = errors.New("accounts.disabled")
)

// Account is a marketplace user of any role.
type Account struct {
	ID           string
	Login        string
	Email        string
	Name         string
	Role         string
	Disabled     bool
	passwordHash []byte
	sequence     int
}

// AccountStore keeps accounts in memory with bcrypt password hashes.
type AccountStore struct {
	mutex        sync.RWMutex
	byID         map[string]*Account
	byLogin      map[string]string
	passwordCost int
	created      int
}

// NewAccountStore constructs an empty store. A cost of zero uses bcrypt.DefaultCost.
func NewAccountStore(passwordCost int) *AccountStore {
	if passwordCost == 0 {
		passwordCost = bcrypt.DefaultCost
	}
	return &AccountStore{
		byID:         make(map[string]*Account),
		byLogin:      make(map[string]string),
		passwordCost: passwordCost,
	}
}

// Create adds an account. An empty id is replaced with a random UUID.
func (store *AccountStore) Create(accountID string, login string, email string, name string, role string, password string) (Account, error) {
	normalizedLogin := normalizeLogin(login)
	if normalizedLogin == "" || password == "" {
		return Account{}, fmt.Errorf("accounts.create: %w", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), store.passwordCost)
	if err != nil {
		return Account{}, fmt.Errorf("accounts.create.hash: %w", err)
	}
	if accountID == "" {
		accountID = uuid.NewString()
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, taken := store.byLogin[normalizedLogin]; taken {
		return Account{}, fmt.Errorf("accounts.create: %w", ErrAccountExists)
	}
	record := &Account{
		ID:           accountID,
		Login:        normalizedLogin,
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		Role:         role,
		passwordHash: hash,
		sequence:     store.created,
	}
	store.created++
	store.byID[accountID] = record
	store.byLogin[normalizedLogin] = accountID
	return *record, nil
}

// Authenticate resolves a login and verifies the password.
func (store *AccountStore) Authenticate(login string, password string) (Account, error) {
	store.mutex.RLock()
	accountID, found := store.byLogin[normalizeLogin(login)]
	var record Account
	if found {
		record = *store.byID[accountID]
	}
	store.mutex.RUnlock()

	if !found {
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(record.passwordHash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	if record.Disabled {
		return Account{}, ErrAccountDisabled
	}
	return record, nil
}

// ListByRole returns the accounts holding role, ordered by creation.
func (store *AccountStore) ListByRole(role string) []Account {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	accounts := make([]Account, 0)
	for _, record := range store.byID {
		if record.Role == role {
			accounts = append(accounts, *record)
		}
	}
	sort.Slice(accounts, func(left, right int) bool { return accounts[left].sequence < accounts[right].sequence })
	return accounts
}

// SetDisabled toggles an account of the given role.
func (store *AccountStore) SetDisabled(accountID string, role string, disabled bool) (Account, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, found := store.byID[accountID]
	if !found || record.Role != role {
		return Account{}, ErrAccountNotFound
	}
	record.Disabled = disabled
	return *record, nil
}

// OnboardSupplier creates an enabled supplier whose login is its email and
// returns the generated initial password.
func (store *AccountStore) OnboardSupplier(name string, email string) (Account, string, error) {
	initialPassword := strings.ReplaceAll(uuid.NewString(), "-", "")
	account, err := store.Create("", email, email, name, RoleSupplier, initialPassword)
	if err != nil {
		return Account{}, "", err
	}
	return account, initialPassword, nil
}

// Get returns an account by id.
func (store *AccountStore) Get(accountID string) (Account, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	record, found := store.byID[accountID]
	if !found {
		return Account{}, ErrAccountNotFound
	}
	return *record, nil
}

// UpdateProfile changes name and email, and the password when newPassword is set.
func (store *AccountStore) UpdateProfile(accountID string, name string, email string, currentPassword string, newPassword string) (Account, error) {
	var newHash []byte
	if newPassword != "" {
		current, err := store.Get(accountID)
		if err != nil {
			return Account{}, err
		}
		if bcrypt.CompareHashAndPassword(current.passwordHash, []byte(currentPassword)) != nil {
			return Account{}, ErrInvalidCredentials
		}
		newHash, err = bcrypt.GenerateFromPassword([]byte(newPassword), store.passwordCost)
		if err != nil {
			return Account{}, fmt.Errorf("accounts.update.hash: %w", err)
		}
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, found := store.byID[accountID]
	if !found {
		return Account{}, ErrAccountNotFound
	}
	record.Name = strings.TrimSpace(name)
	record.Email = strings.TrimSpace(email)
	if newHash != nil {
		record.passwordHash = newHash
	}
	return *record, nil
}

// SeedDemoAccounts adds one account per role plus the onboarded suppliers,
// all sharing the given password. Home Essentials starts disabled.
func SeedDemoAccounts(store *AccountStore, password string) error {
	demo := []struct {
		id, login, email, name, role string
		disabled                     bool
	}{
		{id: "1", login: "customer", email: "john@example.com", name: "John Doe", role: RoleCustomer},
		{id: "2", login: "supplier", email: "supplier@example.com", name: "Supplier Co", role: RoleSupplier},
		{id: "3", login: "admin", email: "admin@example.com", name: "Marketplace Admin", role: RoleAdmin},
		{id: "4", login: "contact@techsupply.com", email: "contact@techsupply.com", name: "TechSupply Co", role: RoleSupplier},
		{id: "5", login: "info@fashiongoods.com", email: "info@fashiongoods.com", name: "Fashion Goods Ltd", role: RoleSupplier},
		{id: "6", login: "sales@homeessentials.com", email: "sales@homeessentials.com", name: "Home Essentials", role: RoleSupplier, disabled: true},
	}
	for _, account := range demo {
		if _, err := store.Create(account.id, account.login, account.email, account.name, account.role, password); err != nil {
			return err
		}
		if account.disabled {
			if _, err := store.SetDisabled(account.id, account.role, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
