package auth

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTOTPManager(t *testing.T) *TOTPManager {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	tm, err := NewTOTPManager(key, "HostAll")
	require.NoError(t, err)
	return tm
}

func TestNewTOTPManager_RejectsBadKeyLengths(t *testing.T) {
	for _, size := range []int{0, 16, 24, 31, 33, 64} {
		_, err := NewTOTPManager(make([]byte, size), "HostAll")
		assert.Error(t, err, "key of %d bytes must be rejected", size)
	}
}

func TestGenerateSetup_ProducesShortBase32Secret(t *testing.T) {
	tm := newTestTOTPManager(t)

	material, err := tm.GenerateSetup("admin@hostall.com")
	require.NoError(t, err)

	assert.Len(t, material.Secret, 16)
	assert.Contains(t, material.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, material.OtpauthURL, "issuer=HostAll")
	assert.Contains(t, material.OtpauthURL, "admin@hostall.com")
	assert.Contains(t, material.QRCodeDataURL, "data:image/png;base64,")
	assert.NotEmpty(t, material.SecretEncrypted)
	assert.NotEmpty(t, material.SecretNonce)
}

func TestEncryptSecret_RoundTrips(t *testing.T) {
	tm := newTestTOTPManager(t)

	encrypted, nonce, err := tm.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)
	assert.NotEqual(t, []byte("JBSWY3DPEHPK3PXP"), encrypted)

	decrypted, err := tm.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", string(decrypted))
}

func TestDecryptSecret_FailsWithWrongKey(t *testing.T) {
	tm := newTestTOTPManager(t)
	other := newTestTOTPManager(t)

	encrypted, nonce, err := tm.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)

	_, err = other.DecryptSecret(encrypted, nonce)
	assert.Error(t, err)
}

func TestValidateCode_AcceptsCurrentCode(t *testing.T) {
	tm := newTestTOTPManager(t)
	material, err := tm.GenerateSetup("admin@hostall.com")
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)
	code, err := tm.GenerateCode(material.Secret, at)
	require.NoError(t, err)
	require.Len(t, code, 6)

	valid, err := tm.ValidateCode(material.Secret, code, at)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestValidateCode_ToleratesOneStepOfDrift(t *testing.T) {
	tm := newTestTOTPManager(t)
	material, err := tm.GenerateSetup("admin@hostall.com")
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)
	code, err := tm.GenerateCode(material.Secret, at)
	require.NoError(t, err)

	valid, err := tm.ValidateCode(material.Secret, code, at.Add(30*time.Second))
	require.NoError(t, err)
	assert.True(t, valid, "a code from the previous step must still validate")
}

func TestValidateCode_RejectsStaleCode(t *testing.T) {
	tm := newTestTOTPManager(t)
	material, err := tm.GenerateSetup("admin@hostall.com")
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)
	code, err := tm.GenerateCode(material.Secret, at)
	require.NoError(t, err)

	valid, err := tm.ValidateCode(material.Secret, code, at.Add(5*time.Minute))
	require.NoError(t, err)
	assert.False(t, valid)
}
