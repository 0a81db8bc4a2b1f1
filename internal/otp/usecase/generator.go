package usecase

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
)

var errUnknownCharset = errors.New("otp: unknown charset")

// generateCode draws length characters uniformly from the charset alphabet.
// Bytes at or above the largest multiple of the alphabet size are rejected so
// the modulo mapping stays unbiased.
func (s *Usecase) generateCode(charset entity.Charset, length int) (string, error) {
	alphabet := charset.Alphabet()
	if alphabet == "" {
		return "", errUnknownCharset
	}

	src := s.random
	if src == nil {
		src = rand.Reader
	}

	n := len(alphabet)
	limit := 256 - 256%n
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for len(out) < length {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("otp: read random source: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
