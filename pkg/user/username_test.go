package user

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"recipebook-backend/domain"
)

func TestValidateUsername(t *testing.T) {
	t.Run("accepts word characters and allowed punctuation", func(t *testing.T) {
		for _, name := range []string{"alice", "bob_42", "chef.anna", "user@host", "a+b-c"} {
			assert.NoError(t, ValidateUsername(name), name)
		}
	})

	t.Run("rejects the reserved profile segment", func(t *testing.T) {
		err := ValidateUsername("me")
		assert.True(t, errors.Is(err, domain.ErrInvalidUsername))
	})

	t.Run("reports every forbidden character at once", func(t *testing.T) {
		err := ValidateUsername("bad name!$")
		assert.True(t, errors.Is(err, domain.ErrInvalidUsername))
		assert.Contains(t, err.Error(), "!")
		assert.Contains(t, err.Error(), "$")
		assert.Contains(t, err.Error(), " ")
	})

	t.Run("deduplicates repeated offenders", func(t *testing.T) {
		err := ValidateUsername("a!!b!!c")
		assert.True(t, errors.Is(err, domain.ErrInvalidUsername))
		assert.Contains(t, err.Error(), `"!"`)
	})
}
