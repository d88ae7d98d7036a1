//go:build !vm_testing

package buildoptions

// IsTest is true when built for the test-time assertion path. Gate extra
// invariant checks behind it as `if buildoptions.IsTest { ... }`; a normal
// build compiles them out entirely.
const IsTest = false
