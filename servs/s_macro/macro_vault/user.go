package macro_vault

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrBadCredentials = errors.New("vault: invalid username or password")

// User is a control panel operator
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:user"` // admin, user
	CreatedAt    time.Time
}

// CreateUser stores a user with a hashed password
func CreateUser(db *gorm.DB, username, password, role string) error {
	if username == "" || password == "" {
		return errors.New("vault: username and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}).Error
}

// FindUserByUsername retrieves a user by name
func FindUserByUsername(db *gorm.DB, username string) (*User, error) {
	var user User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckPassword compares pw with the stored hash
func (u *User) CheckPassword(pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pw)) == nil
}

// EnsureAdmin seeds the admin account once.
func (v *Vault) EnsureAdmin(password string) error {
	_, err := FindUserByUsername(v.db, "admin")
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	v.log.Info().Msg("seeding admin user")
	return CreateUser(v.db, "admin", password, "admin")
}

// Authenticate returns the user when the password matches.
func (v *Vault) Authenticate(username, password string) (*User, error) {
	u, err := FindUserByUsername(v.db, username)
	if err != nil || !u.CheckPassword(password) {
		return nil, ErrBadCredentials
	}
	return u, nil
}
