// Package storage provides the key-value store backing all persistence.
// Values are opaque byte slices; callers serialize to JSON. The contract
// mirrors a browser local-storage profile: flat keys, whole-value reads and
// writes, no transactions.
package storage

// KV is the store contract. Get reports presence explicitly so callers never
// have to compare against a sentinel error from a particular backend.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}
