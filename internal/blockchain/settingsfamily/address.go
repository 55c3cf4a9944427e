package settingsfamily

import (
	"doc-registry/internal/hashing"
	"strings"
)

// TransactionFamiliesSetting lists the families the validator accepts
// transactions for.
const TransactionFamiliesSetting = "sawtooth.validator.transaction_families"

// GetAddress returns the state address of an on-chain setting.
// The name is split on dots into at most four parts, missing parts
// hash as the empty string.
func GetAddress(settingName string) string {
	addr := "000000"
	parts := strings.SplitN(settingName, ".", 4)
	for i := 0; i < 4; i++ {
		if i < len(parts) {
			addr += hashing.CalculateSHA256(parts[i])[:16]
		} else {
			addr += hashing.CalculateSHA256("")[:16]
		}
	}
	return addr
}
