package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEduEmail(t *testing.T) {
	assert.True(t, IsValidEduEmail("jane.doe@state.edu"))
	assert.True(t, IsValidEduEmail("j+tag@cs.state.edu"))
	assert.False(t, IsValidEduEmail("jane@gmail.com"))
	assert.False(t, IsValidEduEmail("jane@state.education"))
	assert.False(t, IsValidEduEmail("not-an-email"))
	assert.False(t, IsValidEduEmail(""))
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("passw0rd"))
	assert.True(t, IsValidPassword("A1bcdefg"))
	assert.False(t, IsValidPassword("short1"))
	assert.False(t, IsValidPassword("allletters"))
	assert.False(t, IsValidPassword("12345678"))
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("Jane"))
	assert.True(t, IsValidName("Mary-Ann O'Neil"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("   "))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone(""))
	assert.True(t, IsValidPhone("5551234567"))
	assert.False(t, IsValidPhone("123"))
	assert.False(t, IsValidPhone("555-123-4567x"))
}
