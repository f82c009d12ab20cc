// Package ticket implements the signed ticket token minted for every
// confirmed booking and verified by conductor devices. A token is the
// delimited tuple bookingID|userID|tripID followed by a base64 HMAC-SHA256
// signature over that tuple.
package ticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"busline/internal/domain"
)

const delimiter = "|"

// Claims are the identifiers a token asserts. A valid signature makes them
// authentic but not current: callers must still cross-check them against the
// stored booking.
type Claims struct {
	BookingID int64
	UserID    int64
	TripID    int64
}

// Signer holds the server-side secret. It is constructed once at startup
// from configuration; the secret is never logged and never read elsewhere.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Mint produces the distributable token for a booking.
func (s *Signer) Mint(bookingID, userID, tripID int64) string {
	payload := fmt.Sprintf("%d%s%d%s%d", bookingID, delimiter, userID, delimiter, tripID)
	return payload + delimiter + s.sign(payload)
}

// Verify parses and authenticates a presented token. Any field-count or
// numeric defect is malformed, and a bad signature is tampering; both come
// back as IntegrityError so nothing downstream acts on a partial parse.
func (s *Signer) Verify(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), delimiter)
	if len(parts) != 4 {
		return Claims{}, domain.IntegrityError{Msg: "malformed ticket token"}
	}

	var c Claims
	ids := []*int64{&c.BookingID, &c.UserID, &c.TripID}
	for i, dst := range ids {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil || v <= 0 {
			return Claims{}, domain.IntegrityError{Msg: "malformed ticket token"}
		}
		*dst = v
	}

	payload := strings.Join(parts[:3], delimiter)
	expected := s.sign(payload)
	if !hmac.Equal([]byte(expected), []byte(parts[3])) {
		return Claims{}, domain.IntegrityError{Msg: "ticket signature is tampered or invalid"}
	}
	return c, nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// Reference is the short human-readable ticket code printed on documents.
func Reference(bookingID int64, seatNumber int) string {
	return "TCK-" + strconv.FormatInt(bookingID, 10) + "-" + strconv.Itoa(seatNumber)
}
