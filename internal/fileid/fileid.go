// Package fileid implements the composite file identifier that bridges the
// two-phase search/download protocol. A search stamps every result with
// "{sessionKey};{nativeID}" so a later download can re-identify both the
// cached session and the provider-assigned subtitle id without re-running
// the search.
package fileid

import (
	"strings"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
)

// Separator joins the session key and the provider-native id.
const Separator = ";"

// Compose builds a composite file identifier from a session key and a
// provider-native subtitle id.
func Compose(sessionKey, nativeID string) string {
	return sessionKey + Separator + nativeID
}

// Parse splits a composite file identifier into its session key and
// provider-native id. It fails with a validation error when the separator
// is missing.
func Parse(fileID string) (sessionKey, nativeID string, err error) {
	sessionKey, nativeID, found := strings.Cut(fileID, Separator)
	if !found {
		return "", "", apperrors.NewValidationError("malformed file identifier: missing session separator")
	}
	return sessionKey, nativeID, nil
}
