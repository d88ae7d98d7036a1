//go:build vm_testing

package buildoptions

// IsTest is true when built with the vm_testing tag, enabling extra
// invariant assertions in hot paths that unit tests build with.
const IsTest = true
