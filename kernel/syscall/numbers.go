// Package syscall implements the system-call plane's dispatcher described
// in §4.4: the single function that converts the raw register values the
// SYSCALL trampoline hands it into kernel-domain operations, and the iomsg
// framing used by syscall 18. The trampoline itself is a hand-assembled
// island; see trampoline_amd64.go for its documented contract.
package syscall

// Number identifies one of the recognized syscalls from §6's table.
type Number uint64

const (
	Read     Number = 0
	Write    Number = 1
	Open     Number = 2
	Close    Number = 3
	Exit     Number = 4
	Sbrk     Number = 5
	Uname    Number = 6
	Break    Number = 7
	Stat     Number = 8
	Uptime   Number = 9
	Exec     Number = 10
	Getcwd   Number = 11
	Chdir    Number = 12
	Free     Number = 13
	SbrkSize Number = 15
	GetENames Number = 17
	Iomsg    Number = 18
	Socket   Number = 19
	Bind     Number = 20
	Sendto   Number = 21
	Recvfrom Number = 22
	Send     Number = 23
	Recv     Number = 24
	Connect  Number = 25
	Listen   Number = 26
	Accept   Number = 27
)

// errInvalid is the dispatcher's uniform failure return: −1 in RAX.
const errInvalid int64 = -1
