package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "2024-0001", FormatInvoiceNumber(2024, 1))
	assert.Equal(t, "2024-0042", FormatInvoiceNumber(2024, 42))
	assert.Equal(t, "2025-9999", FormatInvoiceNumber(2025, 9999))
	// Sequence keeps counting past four digits instead of wrapping.
	assert.Equal(t, "2025-10001", FormatInvoiceNumber(2025, 10001))
}
