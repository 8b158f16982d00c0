package helpers

import "fmt"

// FormatTWDYi formats a TWD amount in 億 (hundred million) units, the way
// Taiwanese market reports quote turnover value.
func FormatTWDYi(amount float64) string {
	yi := amount / 1e8
	return fmt.Sprintf("%.2f億", yi)
}

// FormatLots formats a lot count (1 lot = 1000 shares) with thousand
// separators, the way Taiwanese volume figures are quoted.
func FormatLots(lots int64) string {
	negative := lots < 0
	if negative {
		lots = -lots
	}

	str := fmt.Sprintf("%d", lots)
	length := len(str)

	var result string
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}

	if negative {
		return fmt.Sprintf("-%s張", result)
	}
	return fmt.Sprintf("%s張", result)
}
