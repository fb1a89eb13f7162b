package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// createdAtKey is the reserved entry inside the serialized cookie map.
const createdAtKey = "created_at"

// CookieSet is an authenticated session snapshot: cookie name -> value pairs
// captured from a cookie jar, tagged with the capture time.
type CookieSet struct {
	Cookies   map[string]string
	CreatedAt int64 // unix seconds
}

// NewCookieSet stamps the given pairs with the current time.
func NewCookieSet(cookies map[string]string, now time.Time) CookieSet {
	cp := make(map[string]string, len(cookies))
	for k, v := range cookies {
		cp[k] = v
	}
	return CookieSet{Cookies: cp, CreatedAt: now.Unix()}
}

// Age returns how long ago the set was captured.
func (cs CookieSet) Age(now time.Time) time.Duration {
	return time.Duration(now.Unix()-cs.CreatedAt) * time.Second
}

// Fresh reports whether the set is still usable under the given policy window.
func (cs CookieSet) Fresh(now time.Time, ttl time.Duration) bool {
	if cs.CreatedAt <= 0 {
		return false
	}
	return cs.Age(now) < ttl
}

func (cs CookieSet) Empty() bool { return len(cs.Cookies) == 0 }

// MarshalJSON serializes as a flat map with a reserved created_at entry,
// matching the on-disk format the rest of the tooling expects.
func (cs CookieSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(cs.Cookies)+1)
	for k, v := range cs.Cookies {
		out[k] = v
	}
	out[createdAtKey] = cs.CreatedAt
	return json.Marshal(out)
}

func (cs *CookieSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cs.Cookies = make(map[string]string, len(raw))
	cs.CreatedAt = 0
	for k, v := range raw {
		if k == createdAtKey {
			var ts int64
			if err := json.Unmarshal(v, &ts); err != nil {
				// tolerate a quoted timestamp
				var s string
				if err2 := json.Unmarshal(v, &s); err2 != nil {
					return fmt.Errorf("cookie set: bad created_at: %w", err)
				}
				if _, err2 := fmt.Sscanf(s, "%d", &ts); err2 != nil {
					return fmt.Errorf("cookie set: bad created_at: %w", err2)
				}
			}
			cs.CreatedAt = ts
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("cookie set: cookie %q is not a string: %w", k, err)
		}
		cs.Cookies[k] = s
	}
	return nil
}

// CookiePolicy carries the two freshness windows observed for the same
// semantic check: a live in-memory session is revalidated on a shorter
// window than a set hydrated from storage. Both are deliberate knobs,
// not constants.
type CookiePolicy struct {
	SessionTTL time.Duration // in-memory check on a live account
	StoreTTL   time.Duration // check on rows read back from storage
}

func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		SessionTTL: 30 * time.Minute,
		StoreTTL:   time.Hour,
	}
}
