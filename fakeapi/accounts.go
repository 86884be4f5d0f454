package fakeapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// Kind tells admins and app users apart. They log in through different endpoints.
type Kind string

const (
	KindAdmin Kind = "admin"
	KindUser  Kind = "user"
)

type Account struct {
	ID           string
	Kind         Kind
	Name         string
	Email        string
	Phone        string
	Gender       string
	Role         string
	PasswordHash string
	Verified     bool
	OTP          string
	OTPExpiry    time.Time
	DateJoined   time.Time
	LastLogin    time.Time
}

type AccountRepo interface {
	Upsert(account *Account) error
	Create(account *Account) error
	GetByEmail(kind Kind, email string) (*Account, error)
	GetByID(id string) (*Account, error)
	List(kind Kind) []*Account
}

var _ AccountRepo = (*InMemoryAccountRepo)(nil)

type InMemoryAccountRepo struct {
	accounts map[string]*Account
	emailIDs map[string]string // kind/email to account id
	lock     sync.RWMutex
}

func NewInMemoryAccountRepo() *InMemoryAccountRepo {
	return &InMemoryAccountRepo{
		accounts: make(map[string]*Account),
		emailIDs: make(map[string]string),
	}
}

func emailKey(kind Kind, email string) string {
	return string(kind) + "/" + strings.ToLower(strings.TrimSpace(email))
}

func (r *InMemoryAccountRepo) Upsert(account *Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	r.accounts[account.ID] = account
	r.emailIDs[emailKey(account.Kind, account.Email)] = account.ID
	return nil
}

// Create stores a new account. Email and phone must be unique per kind.
func (r *InMemoryAccountRepo) Create(account *Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.emailIDs[emailKey(account.Kind, account.Email)]; ok {
		return ErrAccountExists
	}
	if account.Phone != "" {
		for _, a := range r.accounts {
			if a.Kind == account.Kind && a.Phone == account.Phone {
				return ErrAccountExists
			}
		}
	}

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	r.accounts[account.ID] = account
	r.emailIDs[emailKey(account.Kind, account.Email)] = account.ID
	return nil
}

func (r *InMemoryAccountRepo) GetByEmail(kind Kind, email string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.emailIDs[emailKey(kind, email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return r.accounts[id], nil
}

func (r *InMemoryAccountRepo) GetByID(id string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

func (r *InMemoryAccountRepo) List(kind Kind) []*Account {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		if a.Kind == kind {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Email < list[j].Email
	})
	return list
}

// ValidatePasswordStrength checks if password meets security requirements:
// at least 8 characters with upper and lower case letters and a number.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password minimal 8 karakter")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("password harus mengandung huruf besar, huruf kecil dan angka")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
