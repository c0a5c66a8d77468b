package storage

import "math/rand/v2"

// linkCodeAlphabet deliberately leaves out characters that are easy to
// misread when a link is dictated or retyped (0/o, 1/l/i).
const linkCodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// LinkCodeLength is the fixed length of every issued link code.
const LinkCodeLength = 8

// NewLinkCode samples a fresh candidate link code. Uniqueness is not
// guaranteed here; the users table enforces it and EnsureLink retries.
func NewLinkCode() string {
	buf := make([]byte, LinkCodeLength)
	for i := range buf {
		buf[i] = linkCodeAlphabet[rand.IntN(len(linkCodeAlphabet))]
	}
	return string(buf)
}
