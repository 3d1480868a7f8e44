package domain

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// TicketCodeLength is the short human-enterable code printed on tickets.
	TicketCodeLength = 6

	qrPrefix = "SLT"
)

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeCharset[int(buf[i])%len(codeCharset)]
	}
	return string(buf), nil
}

func NewTicketCode() (string, error) {
	return randomCode(TicketCodeLength)
}

// CanonicalizeCode folds manual entry onto the same identifier space as QR
// scans: trimmed, uppercased, fixed length.
func CanonicalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != TicketCodeLength {
		return "", fmt.Errorf("%w: code must be %d characters", ErrInvalidInput, TicketCodeLength)
	}
	return code, nil
}

// QRPayload encodes the ticket code for the printed QR. Format:
// SLT|<event id>|<code>.
func QRPayload(eventID, code string) string {
	return qrPrefix + "|" + eventID + "|" + code
}

// CodeFromIdentifier extracts the ticket code from either a full QR payload
// or a bare manually entered code.
func CodeFromIdentifier(identifier string) (string, error) {
	if strings.HasPrefix(identifier, qrPrefix+"|") {
		parts := strings.Split(identifier, "|")
		if len(parts) != 3 {
			return "", fmt.Errorf("%w: malformed qr payload", ErrInvalidInput)
		}
		identifier = parts[2]
	}
	return CanonicalizeCode(identifier)
}

// NewZelleReference builds the reference a buyer quotes on a manual Zelle
// transfer: SL-<unix timestamp>-<9 alphanumeric characters>, uppercased.
func NewZelleReference(now time.Time) (string, error) {
	suffix, err := randomCode(9)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SL-%d-%s", now.Unix(), suffix), nil
}

var zelleReferencePattern = regexp.MustCompile(`^SL-\d+-[A-Z0-9]{9}$`)

// ValidateZelleReference checks a buyer-quoted confirmation reference
// before it is looked up against stored sessions.
func ValidateZelleReference(ref string) error {
	if !zelleReferencePattern.MatchString(ref) {
		return ErrInvalidConfirmationToken
	}
	return nil
}

// NewShareToken mints the link token granting access to a hidden table.
func NewShareToken() (string, error) {
	return randomCode(10)
}
