// Package cache provides the in-process TTL cache that sits in front of the
// database read paths.
//
// Entries expire lazily: Get removes an entry it finds past its expiry and
// reports a miss, so a stale value is never returned. CleanupExpired sweeps
// the whole map and is driven by a Janitor on a cron schedule.
//
//	store := cache.NewStore(30 * time.Second)
//	store.SetSeconds("news_50_0", payload, 30)
//	if data, ok := store.Get("news_50_0"); ok {
//		w.Write(data)
//	}
//
// Every operation takes the same mutex for its full duration. Values cross
// the API boundary through the configured clone function, so callers never
// share memory with the cache.
package cache
