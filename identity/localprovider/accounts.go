package localprovider

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// Account is a locally managed identity.
type Account struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	FullName     string    `json:"full_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Verified     bool      `json:"verified,omitempty"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// AccountRepo stores accounts keyed by ID and by lower cased email.
type AccountRepo interface {
	Create(account *Account) error
	Update(account *Account) error
	GetByID(id string) (*Account, error)
	GetByEmail(email string) (*Account, error)
}

var _ AccountRepo = (*memoryAccounts)(nil)

type memoryAccounts struct {
	accounts map[string]Account
	emailIds map[string]string // email to account id
	lock     sync.RWMutex
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{
		accounts: make(map[string]Account),
		emailIds: make(map[string]string),
	}
}

func (r *memoryAccounts) Create(account *Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	email := strings.ToLower(account.Email)
	if _, exists := r.emailIds[email]; exists {
		return apperrors.ErrDuplicateIdentity
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	r.accounts[account.ID] = *account
	r.emailIds[email] = account.ID
	return nil
}

func (r *memoryAccounts) Update(account *Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.accounts[account.ID] = *account
	return nil
}

func (r *memoryAccounts) GetByID(id string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &account, nil
}

func (r *memoryAccounts) GetByEmail(email string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	account := r.accounts[id]
	return &account, nil
}
