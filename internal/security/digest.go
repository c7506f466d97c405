package security

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/pem"
	"strings"
)

// CertificateDigest returns the lowercase hex SHA-1 of a DER signing certificate, the form the
// register endpoint expects in its cert field. PEM input is unwrapped first.
func CertificateDigest(cert []byte) string {
	if block, _ := pem.Decode(cert); block != nil {
		cert = block.Bytes
	}
	h := sha1.Sum(cert)
	return hex.EncodeToString(h[:])
}

// DigestEqual compares two hex digests in constant time, ignoring case.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(a)), []byte(strings.ToLower(b))) == 1
}
