package converter

// Banks whose statement layouts the extraction service understands.
var SupportedBanks = []string{"BPI", "Millennium", "Caixa Geral"}

// SupportedBank reports whether the bank selector is one of the supported
// banks. Matching is exact; the selector is an enum, not free text.
func SupportedBank(name string) bool {
	for _, b := range SupportedBanks {
		if b == name {
			return true
		}
	}
	return false
}
