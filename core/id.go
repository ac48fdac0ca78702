package core

import (
	"fmt"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

func windowID(seq uint64) string {
	return fmt.Sprintf("win-%d", seq)
}
