package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("пароль не совпадает")

// MaxPasswordBytes: bcrypt не принимает пароли длиннее.
const MaxPasswordBytes = 72

// PasswordHasher хранит только bcrypt-хеш (соль внутри хеша).
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("недопустимая стоимость bcrypt: %d", cost)
	}

	// хеш-пустышка для сравнения, когда пользователь не найден
	dummy, err := bcrypt.GenerateFromPassword([]byte("scheduler-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("генерация хеша-пустышки: %w", err)
	}

	return &PasswordHasher{cost: cost, dummyHash: dummy}, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("хеширование пароля: %w", err)
	}
	return string(hash), nil
}

func (h *PasswordHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// CompareDummy тратит столько же времени, сколько настоящая проверка, и всегда неуспешна.
func (h *PasswordHasher) CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}
