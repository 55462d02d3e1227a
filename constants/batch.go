package constants

// NameResolver resolves a single constant name.
type NameResolver interface {
	Resolve(name string) Result
}

// ResolveBatch resolves names in order. The result always has len(names)
// entries and is never nil, so an empty batch encodes as [].
func ResolveBatch(r NameResolver, names []string) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		results = append(results, r.Resolve(name))
	}
	return results
}
