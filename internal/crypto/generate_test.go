package crypto

import (
	"testing"

	"github.com/and161185/bagtrack/internal/model"
)

func TestGenerateUsername_Pattern(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		u, err := GenerateUsername()
		if err != nil {
			t.Fatalf("GenerateUsername: %v", err)
		}
		if err := model.ValidateUsername(u); err != nil {
			t.Fatalf("username %q: %v", u, err)
		}
		if u[2] == '0' {
			t.Fatalf("username %q: digits must be 10..99", u)
		}
	}
}

func TestGeneratePassword_MeetsPolicy(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		pw, err := GeneratePassword()
		if err != nil {
			t.Fatalf("GeneratePassword: %v", err)
		}
		if len(pw) != 6 {
			t.Fatalf("len(%q)=%d", pw, len(pw))
		}
		if err := model.ValidatePassword(pw); err != nil {
			t.Fatalf("password %q: %v", pw, err)
		}
	}
}

func TestGenerateBagCode_SixDigits(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		c, err := GenerateBagCode()
		if err != nil {
			t.Fatalf("GenerateBagCode: %v", err)
		}
		if err := model.ValidateBagCode(c); err != nil {
			t.Fatalf("code %q: %v", c, err)
		}
		if c[0] == '0' {
			t.Fatalf("code %q must not start with 0", c)
		}
	}
}
