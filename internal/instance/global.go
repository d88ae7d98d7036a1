package instance

import "github.com/wasminspect-go/wasminspect/internal/value"

// Global is a single mutable or immutable cell, typed at creation.
type Global struct {
	Value   value.Value
	Mutable bool
}

func NewGlobal(v value.Value, mutable bool) *Global {
	return &Global{Value: v, Mutable: mutable}
}
