package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomIcon draws a profile icon uniformly from [min, max], never
// returning exclude. The randomness keeps a user from pre-staging the
// icon before the account is resolved; it is a soft mitigation only,
// since a user that already owns the drawn icon can still set it
func RandomIcon(exclude int, min int, max int) (int, error) {

	if min > max {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, min, max)
	}

	count := max - min + 1
	excluded := exclude >= min && exclude <= max
	if excluded {
		count--
	}
	if count <= 0 {
		return 0, fmt.Errorf("%w: [%d, %d] without %d", ErrInvalidRange, min, max, exclude)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(count)))
	if err != nil {
		return 0, err
	}

	icon := min + int(n.Int64())
	// Skip over the excluded icon to keep the draw uniform
	if excluded && icon >= exclude {
		icon++
	}
	return icon, nil
}
