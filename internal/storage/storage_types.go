package storage

// Storage keeps one encrypted session blob and the key that seals it in a
// private directory.
type Storage struct {
	basePath string
	key      []byte
}
