package trust

import "errors"

// ErrInvalidThresholds indicates a threshold configuration where the
// trusted cutoff does not sit strictly above the suspicious cutoff
// inside [0,100].
var ErrInvalidThresholds = errors.New("trust: trust threshold must exceed suspicious threshold within [0,100]")
