// Package optigatrust drives an Infineon OPTIGA Trust secure element over a
// two-wire register bus through a layered request/response stack: physical
// (internal/phy), data-link (internal/dl), network/transport (internal/nt),
// and a command dispatcher (this package) that serialises callers through a
// single worker goroutine and recovers from transport faults by resetting
// the stack and re-running the element's initialisation handshake.
package optigatrust

// MaxAPDULen is the largest APDU, and the largest response buffer,
// Device.Submit accepts, matching the 16-bit LEN field the wire format
// permits. The network/transport layer itself imposes no cap.
const MaxAPDULen = 0xFFFF
