package cache

// ScopedKeyer wraps a Keyer with a prefix so that several projects can share
// one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "lab-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RootKey generates a prefixed key for rooting results.
func (k *ScopedKeyer) RootKey(treeHash string, opts RootKeyOpts) string {
	return k.prefix + k.inner.RootKey(treeHash, opts)
}

// ArtifactKey generates a prefixed key for rendered trees.
func (k *ScopedKeyer) ArtifactKey(treeHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(treeHash, opts)
}
