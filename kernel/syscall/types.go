package syscall

import (
	"ringzero/kernel"
	"ringzero/kernel/external/net"
	"ringzero/kernel/mem"
)

// SocketId is the kernel-domain newtype a raw syscall argument is converted
// into before it reaches the network stack collaborator. Negative raw
// values are invalid, per §3.
type SocketId int64

// toSocketId converts a raw register value into a validated SocketId.
func toSocketId(raw uint64) (SocketId, *kernel.Error) {
	v := int64(raw)
	if v < 0 {
		return 0, kernel.ErrInvalidSocketId
	}
	return SocketId(v), nil
}

func (id SocketId) netID() net.SocketId { return net.SocketId(id) }

// toFd converts a raw register value into a validated file descriptor
// number. Negative raw integers are rejected, per §4.4 step 2.
func toFd(raw uint64) (int64, *kernel.Error) {
	v := int64(raw)
	if v < 0 {
		return 0, kernel.ErrInvalidFd
	}
	return v, nil
}

// userBuf constructs a []byte view over a user-supplied buffer without
// validating that the range is actually mapped into the current task's
// address space; the page-fault handler is the backstop for a malicious or
// buggy pointer, consistent with this kernel's single-address-space,
// non-isolated-pointer design (§9).
func userBuf(ptr, length uint64) []byte {
	return mem.ByteSliceAt(mem.VirtualAddress(ptr), mem.Size(length))
}

// userCStr reads a NUL-terminated string starting at ptr, bounded by
// maxCStrLen as a defensive limit against a runaway read past unmapped
// memory.
const maxCStrLen = 4096

func userCStr(ptr uint64) string {
	raw := mem.ByteSliceAt(mem.VirtualAddress(ptr), mem.Size(maxCStrLen))
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func writeUserBytes(ptr uint64, data []byte) {
	copy(userBuf(ptr, uint64(len(data))), data)
}
