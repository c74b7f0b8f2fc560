package ids

import (
	"crypto/rand"
)

// URL-safe alphabet, same shape the original share links use.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// New returns a random ID of the given length drawn from a 64-character
// URL-safe alphabet. 64 divides 256 evenly, so a simple modulo keeps the
// distribution uniform.
func New(length int) string {
	if length <= 0 {
		length = 21
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// nothing sensible to degrade to.
		panic(err)
	}
	id := make([]byte, length)
	for i, b := range buf {
		id[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(id)
}

// Report and verification records carry a typed prefix so raw keys in the
// store are self-describing.
func NewReportID() string       { return "report_" + New(12) }
func NewVerificationID() string { return "verif_" + New(12) }
func NewAgentID() string        { return New(12) }
func NewSubmissionID() string   { return New(12) }
func NewShareID() string        { return New(10) }
func NewSessionToken() string   { return New(32) }
