package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const roomIDDigits = 8

var roomIDSpace = big.NewInt(100_000_000)

// GenerateRoomID - generates an 8-digit room code that players can read out to each other.
func GenerateRoomID() (string, error) {
	n, err := rand.Int(rand.Reader, roomIDSpace)
	if err != nil {
		return "", fmt.Errorf("failed to read random number: %w", err)
	}

	return fmt.Sprintf("%0*d", roomIDDigits, n.Int64()), nil
}

// GenerateConnectionID - generates a unique identity for an upgraded socket.
func GenerateConnectionID() string {
	return uuid.NewString()
}
