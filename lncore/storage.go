package lncore

// BlobStore is durable key -> bytes storage.  Everything the node persists
// goes through one of these.  Write must not return before the value is
// durable.
type BlobStore interface {
	// Read returns the stored value.  ok is false if the key was never
	// written.
	Read(key string) (value []byte, ok bool, err error)
	Write(key string, value []byte) error
}
