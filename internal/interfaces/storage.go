package interfaces

// StorageManager owns the database connection and the storages built on it
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	RunStorage() RunStorage
	Close() error
}
