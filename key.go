package cache

// ResolveKey returns userKey + key, or key alone when userKey is empty.
//
// The result is a plain concatenation, not a structured composite:
// ResolveKey("ab", "c") == ResolveKey("a", "bc"). Callers that need
// separation must choose prefixes that cannot run into their keys.
func ResolveKey(userKey, key string) string {
	if userKey == "" {
		return key
	}
	return userKey + key
}
