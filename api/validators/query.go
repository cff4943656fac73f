package validators

import (
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ParseIntParam parses a path or query value bounded to [min, max].
func ParseIntParam(raw, field string, min, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+" must be numeric").WithDetails(map[string]any{"field": field})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+" out of range").WithDetails(map[string]any{"field": field, "min": min, "max": max})
	}
	return value, nil
}
