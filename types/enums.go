package types

import (
	"fmt"
	"strings"
)

// EncodePolicy selects how the encoder picks its parameters.
type EncodePolicy string

const (
	// PolicyAuto tries every candidate strategy and keeps the smallest output.
	PolicyAuto EncodePolicy = "auto"
	// PolicyLossless forces lossless encoding where the format supports it.
	PolicyLossless EncodePolicy = "lossless"
	// PolicyLossy forces quality-based lossy encoding.
	PolicyLossy EncodePolicy = "lossy"
)

// ParsePolicy normalizes a user-supplied policy string. The empty string
// maps to PolicyAuto.
func ParsePolicy(s string) (EncodePolicy, error) {
	switch EncodePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAuto:
		return PolicyAuto, nil
	case PolicyLossless:
		return PolicyLossless, nil
	case PolicyLossy:
		return PolicyLossy, nil
	default:
		return "", fmt.Errorf("unknown encode policy %q", s)
	}
}
