package visitors

import "encoding/base64"

// sessionIDLength caps the encoded signature. Truncation trades
// reversibility for a stable, short identifier.
const sessionIDLength = 16

// SessionID derives a coarse session identifier from IP and user agent.
// It is a plain base64 transform, deterministic by construction: two
// requests with identical IP and user agent always collide into the same
// session (NATed users sharing a browser are counted as one visitor).
// This is an identification heuristic, not a security credential.
func SessionID(ip, userAgent string) string {
	encoded := base64.RawStdEncoding.EncodeToString([]byte(ip + "-" + userAgent))
	if len(encoded) > sessionIDLength {
		encoded = encoded[:sessionIDLength]
	}
	return encoded
}
