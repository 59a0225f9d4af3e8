package memutils

// Validatable is anything that can check its own internal consistency, such as a heap
// allocator walking its blocks. DebugValidate accepts any Validatable.
type Validatable interface {
	Validate() error
}
