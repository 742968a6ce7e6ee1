package hashtable

import (
	"golang.org/x/sys/cpu"

	"github.com/duskbound/xylu/internal/xylog"
)

// init logs, once, which control-group matching strategy
// is active. Every platform uses the same portable SWAR implementation
// (group.go) — Go has no portable intrinsic for the original C++ source's
// SSE2 PCMPEQB — but xylu still asks golang.org/x/sys/cpu what the
// hardware could do, so a debug session can tell a scalar-only target
// from one that is merely leaving SIMD on the table.
func init() {
	switch {
	case cpu.X86.HasSSE2:
		xylog.Log("xycontain/hashtable: control groups matched via SWAR (hardware reports SSE2; no portable Go intrinsic to use it directly)")
	case cpu.ARM64.HasASIMD:
		xylog.Log("xycontain/hashtable: control groups matched via SWAR (hardware reports ASIMD; no portable Go intrinsic to use it directly)")
	default:
		xylog.Log("xycontain/hashtable: control groups matched via SWAR (no relevant hardware SIMD reported)")
	}
}
