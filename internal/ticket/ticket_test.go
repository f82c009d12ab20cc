package ticket

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"busline/internal/domain"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")

	token := s.Mint(42, 7, 99)
	claims, err := s.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.BookingID)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, int64(99), claims.TripID)
}

func TestVerifyRejectsTamperedIDs(t *testing.T) {
	s := NewSigner("test-secret")
	token := s.Mint(42, 7, 99)

	parts := strings.Split(token, "|")
	require.Len(t, parts, 4)

	for i := 0; i < 3; i++ {
		mutated := make([]string, 4)
		copy(mutated, parts)
		mutated[i] = "1000"
		_, err := s.Verify(strings.Join(mutated, "|"))
		require.Error(t, err)
		require.True(t, domain.IsIntegrity(err), "field %d: expected integrity error, got %v", i, err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	minter := NewSigner("secret-a")
	verifier := NewSigner("secret-b")

	_, err := verifier.Verify(minter.Mint(1, 2, 3))
	require.True(t, domain.IsIntegrity(err))
}

func TestVerifyRejectsMalformedTokens(t *testing.T) {
	s := NewSigner("test-secret")

	for _, token := range []string{
		"",
		"1|2|3",
		"1|2|3|sig|extra",
		"a|2|3|sig",
		"0|2|3|sig",
		"-1|2|3|sig",
	} {
		_, err := s.Verify(token)
		require.Truef(t, domain.IsIntegrity(err), "token %q: got %v", token, err)
	}
}

func TestReference(t *testing.T) {
	require.Equal(t, "TCK-42-7", Reference(42, 7))
}
