package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Arguments that identify the caller or steer cache behavior, not the
// query. They never participate in the key, so the same question from
// different users shares one entry.
var keyExcludedArgs = map[string]bool{
	"user_id":       true,
	"force_refresh": true,
}

// Key builds the cache key for a tool invocation:
// "<tool>:<scope>:<16 hex chars of SHA-256 over canonical JSON args>".
// Canonical means keys sorted, excluded args removed, so argument order
// can never split the cache.
func Key(tool, scope string, args map[string]any) string {
	if scope == "" {
		scope = "global"
	}
	return fmt.Sprintf("%s:%s:%s", tool, scope, argsHash(args))
}

func argsHash(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		if keyExcludedArgs[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kj, _ := json.Marshal(k)
		vj, err := json.Marshal(args[k])
		if err != nil {
			vj = []byte(fmt.Sprintf("%q", fmt.Sprint(args[k])))
		}
		b.Write(kj)
		b.WriteByte(':')
		b.Write(vj)
	}
	b.WriteByte('}')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}
