package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength  = 10

	// cardCharset drops 0/O and 1/I so printed codes are unambiguous.
	cardCharset    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	cardGroupSize  = 4
	cardGroupCount = 4
)

func randomString(charset string, length int) string {
	result := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range result {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand failed: %v", err))
		}
		result[i] = charset[num.Int64()]
	}
	return string(result)
}

// GenerateID generates a unique ID with the given prefix, e.g. "usr-a1B2c3D4e5".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, randomString(idCharset, idLength))
}

// GenerateCardCode returns a code like "ABCD-EFGH-JKLM-NPQR".
func GenerateCardCode() string {
	raw := randomString(cardCharset, cardGroupSize*cardGroupCount)
	groups := make([]string, 0, cardGroupCount)
	for i := 0; i < len(raw); i += cardGroupSize {
		groups = append(groups, raw[i:i+cardGroupSize])
	}
	return strings.Join(groups, "-")
}

// NormalizeCardCode upper-cases user input and trims surrounding whitespace.
func NormalizeCardCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidateUserID validates the user ID format
func ValidateUserID(userID string) bool {
	return strings.HasPrefix(userID, "usr-") && len(userID) == len("usr-")+idLength
}
