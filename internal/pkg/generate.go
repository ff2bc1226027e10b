package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

const roomIDUpperBound = 100000000

// GenerateRoomID - generates an 8-digit room code.
func GenerateRoomID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(roomIDUpperBound))
	if err != nil {
		return "", fmt.Errorf("failed to generate room id: %w", err)
	}

	return fmt.Sprintf("%08d", n.Int64()), nil
}

// NewConnID - returns a process-unique connection handle.
func NewConnID() entity.ConnID {
	return entity.ConnID(uuid.NewString())
}
