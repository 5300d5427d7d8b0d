//go:build debug

package contract

// Enabled reports whether contract checks panic.
const Enabled = true
