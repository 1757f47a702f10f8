package inmemorywallet

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBalances parses a comma separated list of account:amount pairs.
func ParseBalances(str string) (map[string]uint64, error) {
	balances := make(map[string]uint64)
	str = strings.TrimSpace(str)
	if len(str) <= 0 {
		return balances, nil
	}

	for _, pair := range strings.Split(str, ",") {
		account, amountStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || len(account) <= 0 {
			return nil, fmt.Errorf("invalid balance %q, must be account:amount", pair)
		}
		amount, err := strconv.ParseUint(amountStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount for account %s: %s", account, err)
		}
		balances[account] += amount
	}
	return balances, nil
}
