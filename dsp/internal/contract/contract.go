// Package contract reports programmer errors in the real-time DSP path.
//
// Callers guard checks with the Enabled constant so release builds compile
// the check away and fall back to defensive clamping:
//
//	if contract.Enabled && d >= n {
//		contract.Failf("delay: read %d past capacity %d", d, n)
//	}
//
// Build with -tags debug to turn violations into panics.
package contract

import "fmt"

// Failf panics with a formatted contract-violation message.
func Failf(format string, args ...any) {
	panic("contract violation: " + fmt.Sprintf(format, args...))
}
