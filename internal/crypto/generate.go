package crypto

import (
	"crypto/rand"
	"math/big"
)

const (
	upperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars = "0123456789"
)

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func pick(alphabet string) (byte, error) {
	i, err := randIndex(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

// GenerateUsername returns 2 uppercase letters followed by 2 digits (10..99).
func GenerateUsername() (string, error) {
	out := make([]byte, 0, 4)
	for i := 0; i < 2; i++ {
		c, err := pick(upperChars)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	n, err := randIndex(90)
	if err != nil {
		return "", err
	}
	n += 10
	out = append(out, byte('0'+n/10), byte('0'+n%10))
	return string(out), nil
}

// GeneratePassword returns a 6-character password with at least one
// uppercase letter, one lowercase letter and one digit.
func GeneratePassword() (string, error) {
	out := make([]byte, 0, 6)
	for _, set := range []string{upperChars, lowerChars, digitChars} {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	all := upperChars + lowerChars + digitChars
	for i := 0; i < 3; i++ {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	// Fisher-Yates
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

// GenerateBagCode returns a 6-digit code in [100000, 999999].
func GenerateBagCode() (string, error) {
	n, err := randIndex(900000)
	if err != nil {
		return "", err
	}
	n += 100000
	out := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		out[i] = byte('0' + n%10)
		n /= 10
	}
	return string(out), nil
}
