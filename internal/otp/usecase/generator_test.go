package usecase

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_RejectsBiasedBytes(t *testing.T) {
	// 250..255 sit above the last full multiple of 10 and are skipped.
	s := &Usecase{random: bytes.NewReader([]byte{255, 250, 13, 249})}

	code, err := s.generateCode(entity.CharsetDigits, 2)

	require.NoError(t, err)
	assert.Equal(t, "39", code)
}

func TestGenerateCode_RandomSourceFailure(t *testing.T) {
	s := &Usecase{random: bytes.NewReader(nil)}

	_, err := s.generateCode(entity.CharsetDigits, 6)

	assert.Error(t, err)
}

func TestGenerateCode_UnknownCharset(t *testing.T) {
	s := &Usecase{}

	_, err := s.generateCode(entity.CharsetUnknown, 6)

	assert.ErrorIs(t, err, errUnknownCharset)
}

func TestGenerateCode_LengthAndAlphabet(t *testing.T) {
	s := &Usecase{}

	for _, cs := range []entity.Charset{entity.CharsetDigits, entity.CharsetAlphanumeric} {
		for _, n := range []int{entity.MinCodeLength, 6, entity.MaxCodeLength} {
			code, err := s.generateCode(cs, n)
			require.NoError(t, err)
			assert.Len(t, code, n)
			for _, r := range code {
				assert.True(t, strings.ContainsRune(cs.Alphabet(), r), "unexpected %q in %s code", r, cs)
			}
		}
	}
}

func TestGenerateCode_Uniform(t *testing.T) {
	s := &Usecase{}
	counts := make(map[rune]int)

	const codes, length = 2000, 6
	for range codes {
		code, err := s.generateCode(entity.CharsetDigits, length)
		require.NoError(t, err)
		for _, r := range code {
			counts[r]++
		}
	}

	expected := codes * length / 10
	require.Len(t, counts, 10)
	for r, c := range counts {
		assert.InDelta(t, expected, c, float64(expected)/4, "digit %q drawn %d times", r, c)
	}
}
