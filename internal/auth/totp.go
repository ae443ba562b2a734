package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPManager handles TOTP secret generation, encryption, and validation.
// Codes are genuine RFC 6238: HMAC-SHA1 over the 30-second time counter,
// six digits, with one step of skew tolerance either side.
type TOTPManager struct {
	encryptionKey []byte // 32-byte AES-256 key
	issuer        string
}

// NewTOTPManager creates a new TOTP manager.
// encryptionKey must be exactly 32 bytes for AES-256.
func NewTOTPManager(encryptionKey []byte, issuer string) (*TOTPManager, error) {
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(encryptionKey))
	}

	return &TOTPManager{
		encryptionKey: encryptionKey,
		issuer:        issuer,
	}, nil
}

// SetupMaterial is everything produced for a new enrollment: the secret in
// encrypted and plaintext forms, plus the provisioning URI and its QR code.
type SetupMaterial struct {
	SecretEncrypted []byte
	SecretNonce     []byte
	Secret          string
	OtpauthURL      string
	QRCodeDataURL   string
}

// GenerateSetup creates a fresh TOTP enrollment for an account.
// SecretSize of 10 random bytes yields a 16-character base32 secret.
func (tm *TOTPManager) GenerateSetup(accountEmail string) (*SetupMaterial, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountEmail,
		SecretSize:  10,
		Period:      30,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	encrypted, nonce, err := tm.EncryptSecret([]byte(key.Secret()))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	qr, err := qrcode.New(key.URL(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	qrImage, err := qr.PNG(200)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &SetupMaterial{
		SecretEncrypted: encrypted,
		SecretNonce:     nonce,
		Secret:          key.Secret(),
		OtpauthURL:      key.URL(),
		QRCodeDataURL:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrImage),
	}, nil
}

// EncryptSecret encrypts a TOTP secret using AES-256-GCM.
// Returns (encryptedBytes, nonce, error).
func (tm *TOTPManager) EncryptSecret(secretBytes []byte) ([]byte, []byte, error) {
	block, err := aes.NewCipher(tm.encryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, secretBytes, nil)

	return ciphertext, nonce, nil
}

// DecryptSecret decrypts an encrypted TOTP secret
func (tm *TOTPManager) DecryptSecret(encryptedBytes, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(tm.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, encryptedBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return plaintext, nil
}

// ValidateCode validates a six-digit code against a base32 secret at the
// given instant. The instant is injected so tests can pin the clock.
func (tm *TOTPManager) ValidateCode(secret string, code string, at time.Time) (bool, error) {
	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1, // ±1 time step of clock drift tolerance
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to validate TOTP: %w", err)
	}

	return valid, nil
}

// GenerateCode produces the current code for a secret. Used by tests and
// by the development flow; never exposed over HTTP.
func (tm *TOTPManager) GenerateCode(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}
