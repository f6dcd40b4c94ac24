package ports

// TreeHasher defines the interface for computing filesystem tree digests.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type TreeHasher interface {
	// DigestTree computes a deterministic digest over all files under root.
	DigestTree(root string) (string, error)
}
