package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurKelvin/polling-app/internal/domain"
)

func TestTokenAuthenticator_Roundtrip(t *testing.T) {
	auth := NewTokenAuthenticator("test-secret")

	credential := auth.Issue("user-42")
	userID, err := auth.Authenticate(context.Background(), credential)

	require.NoError(t, err)
	assert.Equal(t, domain.UserID("user-42"), userID)
}

func TestTokenAuthenticator_RejectsTamperedSignature(t *testing.T) {
	auth := NewTokenAuthenticator("test-secret")

	credential := auth.Issue("user-42")
	tampered := credential[:len(credential)-1] + "x"

	_, err := auth.Authenticate(context.Background(), tampered)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestTokenAuthenticator_RejectsForeignSecret(t *testing.T) {
	mint := NewTokenAuthenticator("secret-a")
	verify := NewTokenAuthenticator("secret-b")

	_, err := verify.Authenticate(context.Background(), mint.Issue("user-42"))
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestTokenAuthenticator_RejectsMalformedCredentials(t *testing.T) {
	auth := NewTokenAuthenticator("test-secret")

	for _, credential := range []string{"", "no-separator", ".signature-only"} {
		_, err := auth.Authenticate(context.Background(), credential)
		assert.ErrorIs(t, err, ErrInvalidCredential, "credential %q", credential)
	}
}

func TestTokenAuthenticator_RejectsSpoofedUserID(t *testing.T) {
	auth := NewTokenAuthenticator("test-secret")

	// Keep the valid signature but swap in another user id.
	credential := auth.Issue("user-42")
	_, signature, _ := strings.Cut(credential, ".")

	_, err := auth.Authenticate(context.Background(), "user-43."+signature)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestCSRFGuard_VerifiesOwnTokens(t *testing.T) {
	guard := NewCSRFGuard("csrf-secret")

	token := guard.TokenFor("user-42")
	assert.True(t, guard.Verify("user-42", token))
}

func TestCSRFGuard_RejectsOtherUsersToken(t *testing.T) {
	guard := NewCSRFGuard("csrf-secret")

	token := guard.TokenFor("user-42")
	assert.False(t, guard.Verify("user-43", token))
}

func TestCSRFGuard_RejectsEmptyToken(t *testing.T) {
	guard := NewCSRFGuard("csrf-secret")
	assert.False(t, guard.Verify("user-42", ""))
}
