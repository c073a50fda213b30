package cloak

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

var (
	userIDCacheMu sync.Mutex
	userIDCache   = make(map[string]string)
)

// GenerateUserID returns a synthetic Claude Code user_id in the format
// "user_<64 hex>_account__session_<uuid>". When cache is true the id is
// memoized per apiKey so repeated requests from the same credential present
// a stable identity.
func GenerateUserID(apiKey string, cache bool) string {
	if cache {
		userIDCacheMu.Lock()
		defer userIDCacheMu.Unlock()
		if id, ok := userIDCache[apiKey]; ok {
			return id
		}
		id := makeUserID()
		userIDCache[apiKey] = id
		return id
	}
	return makeUserID()
}

func makeUserID() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return "user_" + hex.EncodeToString(buf) + "_account__session_" + uuid.NewString()
}
