package models

import "time"

// TwoFactorSettings is the per-account TOTP credential persisted in the
// store. The secret is held AES-256-GCM encrypted at rest; the guard only
// handles the plaintext transiently during setup and verification.
type TwoFactorSettings struct {
	Email           string     `db:"email"`
	Enabled         bool       `db:"enabled"`
	SecretEncrypted []byte     `db:"secret_encrypted"`
	SecretNonce     []byte     `db:"secret_nonce"`
	EnrolledAt      *time.Time `db:"enrolled_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// TwoFactorSetup contains the material presented to the user during
// enrollment: the secret as text plus a QR-encodable provisioning URI.
type TwoFactorSetup struct {
	Secret        string `json:"secret"`
	OtpauthURL    string `json:"otpauth_url"`
	QRCodeDataURL string `json:"qr_code"`
}
