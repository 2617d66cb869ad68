package booking

import (
	"strings"

	"github.com/google/uuid"
)

const receiptPrefix = "RCP-"

// NewReceiptID returns a receipt code such as RCP-3F9A0C12BE. Uniqueness is
// checked by the caller.
func NewReceiptID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return receiptPrefix + strings.ToUpper(hex[:10])
}
