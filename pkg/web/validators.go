package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator reports whether a parsed query parameter is acceptable.
type ParamValidator func(value int64) bool

// Gte accepts values greater than or equal to bound.
func Gte(bound int64) ParamValidator {
	return func(value int64) bool { return value >= bound }
}

// Between accepts values in the closed range [lo, hi].
func Between(lo, hi int64) ParamValidator {
	return func(value int64) bool { return value >= lo && value <= hi }
}

// QueryInt32 parses an optional integer query parameter, falling back to def when absent.
// On a malformed or rejected value it writes a 400 response and returns false.
func QueryInt32(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string, def int32, valid ParamValidator) (int32, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || !valid(value) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, raw))
		return 0, false
	}
	return int32(value), true
}
