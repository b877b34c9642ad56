// Package macro_vault keeps the booking credentials encrypted in the database.
package macro_vault

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

// Credential keys, also the variable names the worker sees.
const (
	KeyMemberNumber = "MEMBER_NUMBER"
	KeyPassword     = "PASSWORD"
	KeyWebhook      = "DISCORD_WEB_HOOK"
)

// Keys lists every stored credential in display order.
var Keys = []string{KeyMemberNumber, KeyPassword, KeyWebhook}

const (
	kdfIterations = 100_000
	saltSize      = 16
)

// Errors
var (
	ErrMissingMember   = errors.New("vault: member number is required")
	ErrMissingPassword = errors.New("vault: password is required")
	ErrDecrypt         = errors.New("vault: cannot decrypt stored secret")
	ErrInitDatabase    = errors.New("vault: error initializing db")
)

// Secret is one encrypted credential row.
type Secret struct {
	Name      string `gorm:"primaryKey"`
	Salt      []byte `gorm:"not null"`
	Nonce     []byte `gorm:"not null"`
	Cipher    []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// Vault stores credentials sealed with a passphrase derived key.
// Variables set in the process environment take precedence over stored ones.
type Vault struct {
	db         *gorm.DB
	passphrase []byte
	log        zerolog.Logger
	getenv     func(string) string
}

// New migrates the secrets table. An empty passphrase is derived from the host.
func New(db *gorm.DB, passphrase string, log zerolog.Logger) (*Vault, error) {
	if err := db.AutoMigrate(&Secret{}, &User{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitDatabase, err)
	}
	if passphrase == "" {
		passphrase = machinePassphrase()
	}
	return &Vault{
		db:         db,
		passphrase: []byte(passphrase),
		log:        log,
		getenv:     os.Getenv,
	}, nil
}

// machinePassphrase ties the vault to this host and working directory.
func machinePassphrase() string {
	host, _ := os.Hostname()
	wd, _ := os.Getwd()
	return host + wd
}

//---------------------
// Crypto
//---------------------

func (v *Vault) key(salt []byte) []byte {
	return pbkdf2.Key(v.passphrase, salt, kdfIterations, chacha20poly1305.KeySize, sha256.New)
}

func (v *Vault) seal(name, plain string) (*Secret, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(v.key(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &Secret{
		Name:   name,
		Salt:   salt,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, []byte(plain), []byte(name)),
	}, nil
}

func (v *Vault) open(s Secret) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key(s.Salt))
	if err != nil {
		return "", err
	}
	plain, err := aead.Open(nil, s.Nonce, s.Cipher, []byte(s.Name))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecrypt, s.Name)
	}
	return string(plain), nil
}

//---------------------
// Operations
//---------------------

// Save validates and stores the credentials. An empty webhook removes it.
func (v *Vault) Save(values map[string]string) error {
	clean := make(map[string]string, len(Keys))
	for _, k := range Keys {
		clean[k] = strings.TrimSpace(values[k])
	}
	if clean[KeyMemberNumber] == "" {
		return ErrMissingMember
	}
	if clean[KeyPassword] == "" {
		return ErrMissingPassword
	}

	return v.db.Transaction(func(tx *gorm.DB) error {
		for _, k := range Keys {
			if clean[k] == "" {
				if err := tx.Delete(&Secret{}, "name = ?", k).Error; err != nil {
					return err
				}
				continue
			}
			s, err := v.seal(k, clean[k])
			if err != nil {
				return err
			}
			if err := tx.Save(s).Error; err != nil {
				return err
			}
		}
		v.log.Info().Msg("credentials saved")
		return nil
	})
}

// Stored returns the decrypted stored values, without environment overrides.
// Rows that fail to decrypt are skipped and logged.
func (v *Vault) Stored() (map[string]string, error) {
	var rows []Secret
	if err := v.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, s := range rows {
		plain, err := v.open(s)
		if err != nil {
			v.log.Warn().Err(err).Msg("skipping secret")
			continue
		}
		out[s.Name] = plain
	}
	return out, nil
}

// Load merges stored values with the process environment.
func (v *Vault) Load() map[string]string {
	values, err := v.Stored()
	if err != nil {
		v.log.Warn().Err(err).Msg("reading stored credentials")
		values = map[string]string{}
	}
	for _, k := range Keys {
		if env := v.getenv(k); env != "" {
			values[k] = env
		}
	}
	return values
}

// Check reports which credentials are present.
func (v *Vault) Check() map[string]bool {
	values := v.Load()
	out := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		out[k] = values[k] != ""
	}
	return out
}

// Ready reports whether the worker can log in.
func (v *Vault) Ready() bool {
	c := v.Check()
	return c[KeyMemberNumber] && c[KeyPassword]
}

// Masked returns display-safe values.
func (v *Vault) Masked() map[string]string {
	values := v.Load()
	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if values[k] != "" {
			out[k] = Mask(k, values[k])
		}
	}
	return out
}

// Environ renders the credentials as KEY=VALUE pairs for the worker.
func (v *Vault) Environ() []string {
	values := v.Load()
	env := make([]string, 0, len(Keys))
	for _, k := range Keys {
		if values[k] != "" {
			env = append(env, k+"="+values[k])
		}
	}
	return env
}

// Mask hides most of a credential.
func Mask(key, val string) string {
	r := []rune(val)
	switch key {
	case KeyPassword:
		return strings.Repeat("*", min(len(r), 8))
	case KeyMemberNumber:
		if len(r) <= 3 {
			return strings.Repeat("*", len(r))
		}
		return string(r[:3]) + strings.Repeat("*", len(r)-3)
	default:
		if len(r) <= 10 {
			return val
		}
		return string(r[:10]) + "..."
	}
}
