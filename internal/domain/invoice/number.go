package invoice

import "fmt"

// FormatInvoiceNumber renders the human readable number, e.g. INV-2025-007
func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%03d", year, seq)
}
