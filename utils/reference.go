package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var referenceSpan = big.NewInt(900000)

// NewReferenceNumber returns a random six digit number in [100000, 999999].
func NewReferenceNumber() (string, error) {
	n, err := rand.Int(rand.Reader, referenceSpan)
	if err != nil {
		return "", fmt.Errorf("generating reference number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
