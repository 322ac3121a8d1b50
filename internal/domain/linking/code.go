package linking

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	codeMin = 100000
	codeMax = 999999
)

var codeSpan = big.NewInt(codeMax - codeMin + 1)

// GenerateCode draws a six-digit code uniformly from [100000, 999999].
func GenerateCode() (string, error) {
	return generateCode(rand.Reader)
}

func generateCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
