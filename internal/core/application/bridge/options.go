package bridge

import (
	"fmt"
	"math/big"
)

// Option describes one named draft option a family understands on outer
// surfaces such as the command line. Families expose their option list and
// a pure inference function turning raw option values into a draft patch.
type Option struct {
	Name  string
	Usage string
}

// ParseAmountOption parses a base 10 integer option value into smallest
// currency units.
func ParseAmountOption(name, raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q, expected a base 10 integer", name, raw)
	}
	return value, nil
}
