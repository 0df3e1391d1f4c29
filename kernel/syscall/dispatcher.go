package syscall

import (
	"ringzero/kernel/cpu"
	"ringzero/kernel/external/net"
	"ringzero/kernel/external/timer"
	"ringzero/kernel/external/vfs"
	"ringzero/kernel/kfmt/early"
	"ringzero/kernel/mem"
	"ringzero/kernel/task"
)

// osName is written back by the `uname` syscall.
const osName = "ringzero"

// sysnameFieldLen bounds how many bytes of osName are copied into the
// fixed uname struct the caller supplies, matching §8 scenario 3's
// "no trailing NUL overwrite beyond the field size" requirement.
const sysnameFieldLen = 65

// maxIomsgLen bounds how far the dispatcher reads a user-posted iomsg
// buffer before the header's own payload_size narrows it, guarding
// against treating an unbounded user pointer as an unbounded read.
const maxIomsgLen = 4096

// Dispatch is the single function described in §4.4 that the SYSCALL
// trampoline calls with the System V-ordered argument registers. It
// validates num against the table, converts raw integers into
// kernel-domain types, performs the operation, and collapses every kernel
// error into -1 -- the one place in the kernel where the rich error
// taxonomy of §7 collapses to the syscall ABI's single failure value.
func Dispatch(num, arg0, arg1, arg2, arg3, arg4, arg5 uint64) int64 {
	switch Number(num) {
	case Read:
		return doRead(arg0, arg1, arg2)
	case Write:
		return doWrite(arg0, arg1, arg2)
	case Open:
		return doOpen(arg0, arg1)
	case Close:
		return doClose(arg0)
	case Exit:
		task.ReturnTask(int(int64(arg0)))
		panic("unreachable: return_task does not return")
	case Sbrk:
		return doSbrk(arg0)
	case Uname:
		return doUname(arg0)
	case Break:
		return doBreak()
	case Stat:
		return doStat(arg0, arg1)
	case Uptime:
		return int64(timer.Uptime().Milliseconds())
	case Exec:
		return doExec(arg0, arg1)
	case Getcwd:
		return doGetcwd(arg0, arg1)
	case Chdir:
		return doChdir(arg0)
	case Free:
		return doFree(arg0)
	case SbrkSize:
		return doSbrkSize(arg0)
	case GetENames:
		return doGetENames(arg0, arg1, arg2)
	case Iomsg:
		return dispatchIomsg(userBuf(arg0, maxIomsgLen), userBuf(arg1, arg2), arg2)
	case Socket:
		return doSocket(arg0, arg1, arg2)
	case Bind:
		return doBind(arg0, arg1, arg2)
	case Sendto:
		return doSendto(arg0, arg1, arg2, arg3, arg4, arg5)
	case Recvfrom:
		return doRecvfrom(arg0, arg1, arg2, arg3, arg4, arg5)
	case Send:
		return doSend(arg0, arg1, arg2, arg3)
	case Recv:
		return doRecv(arg0, arg1, arg2, arg3)
	case Connect:
		return doConnect(arg0, arg1, arg2)
	case Listen:
		return doListen(arg0, arg1)
	case Accept:
		return doAccept(arg0, arg1, arg2)
	default:
		early.Printf("[syscall] unknown syscall number %d\n", num)
		return errInvalid
	}
}

func doRead(rawFd, bufPtr, length uint64) int64 {
	fd, ferr := toFd(rawFd)
	if ferr != nil {
		return errInvalid
	}
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	n, rerr := svc.Read(int(fd), userBuf(bufPtr, length))
	if rerr != nil {
		early.Printf("[syscall] read(fd=%d): %s\n", fd, rerr.Error())
		return errInvalid
	}
	return int64(n)
}

func doWrite(rawFd, bufPtr, length uint64) int64 {
	fd, ferr := toFd(rawFd)
	if ferr != nil {
		return errInvalid
	}
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	n, werr := svc.Write(int(fd), userBuf(bufPtr, length))
	if werr != nil {
		early.Printf("[syscall] write(fd=%d): %s\n", fd, werr.Error())
		return errInvalid
	}
	return int64(n)
}

func doOpen(pathPtr, flags uint64) int64 {
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	fd, operr := svc.Open(userCStr(pathPtr), flags != 0)
	if operr != nil {
		early.Printf("[syscall] open: %s\n", operr.Error())
		return errInvalid
	}

	onTask(func(t *task.Task) {
		t.FDNums = append(t.FDNums, task.FileDescriptorNumber(fd))
	})
	return int64(fd)
}

func doClose(rawFd uint64) int64 {
	fd, ferr := toFd(rawFd)
	if ferr != nil {
		return errInvalid
	}
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	if cerr := svc.Close(int(fd)); cerr != nil {
		return errInvalid
	}

	onTask(func(t *task.Task) {
		for i, held := range t.FDNums {
			if int64(held) == fd {
				t.FDNums = append(t.FDNums[:i], t.FDNums[i+1:]...)
				break
			}
		}
	})
	return 0
}

func doSbrk(length uint64) int64 {
	va, err := task.Sbrk(length)
	if err != nil {
		return errInvalid
	}
	return int64(va)
}

func doUname(outPtr uint64) int64 {
	buf := make([]byte, sysnameFieldLen)
	n := copy(buf, osName)
	_ = n
	writeUserBytes(outPtr, buf)
	return 0
}

func doBreak() int64 {
	raiseBreakpointFn()
	return 0
}

func doStat(rawFd, outPtr uint64) int64 {
	fd, ferr := toFd(rawFd)
	if ferr != nil {
		return errInvalid
	}
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	size, serr := svc.FileSize(int(fd))
	if serr != nil {
		return errInvalid
	}
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(size >> (8 * uint(i)))
	}
	writeUserBytes(outPtr, buf)
	return 0
}

func doExec(argPtr, flags uint64) int64 {
	cmdline := userCStr(argPtr)
	prog, argv := splitCmdline(cmdline)

	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	fd, operr := svc.Open(prog, false)
	if operr != nil {
		return errInvalid
	}
	defer svc.Close(fd)

	size, serr := svc.FileSize(fd)
	if serr != nil {
		return errInvalid
	}
	image := make([]byte, size)
	if _, rerr := svc.Read(fd, image); rerr != nil {
		return errInvalid
	}

	status, eerr := task.Exec(image, argv)
	if eerr != nil {
		return errInvalid
	}
	return int64(status)
}

func splitCmdline(cmdline string) (prog string, argv []string) {
	fields := []string{}
	start := -1
	for i := 0; i <= len(cmdline); i++ {
		if i < len(cmdline) && cmdline[i] != ' ' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fields = append(fields, cmdline[start:i])
			start = -1
		}
	}
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields
}

func doGetcwd(bufPtr, length uint64) int64 {
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	cwd := svc.CwdPath()
	if uint64(len(cwd)+1) > length {
		return errInvalid
	}
	b := append([]byte(cwd), 0)
	writeUserBytes(bufPtr, b)
	return 0
}

func doChdir(pathPtr uint64) int64 {
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	if cerr := svc.Chdir(userCStr(pathPtr)); cerr != nil {
		return errInvalid
	}
	return 0
}

func doFree(ptr uint64) int64 {
	if err := task.FreeHeap(mem.VirtualAddress(ptr)); err != nil {
		return errInvalid
	}
	return 0
}

func doSbrkSize(ptr uint64) int64 {
	size, err := task.SbrkSize(mem.VirtualAddress(ptr))
	if err != nil {
		return errInvalid
	}
	return int64(size)
}

func doGetENames(dirPtr, bufPtr, length uint64) int64 {
	svc, err := vfs.Get()
	if err != nil {
		return errInvalid
	}
	names, nerr := svc.EntryNames(userCStr(dirPtr))
	if nerr != nil {
		return errInvalid
	}

	var out []byte
	for _, n := range names {
		out = append(out, n...)
		out = append(out, 0)
	}
	if uint64(len(out)) > length {
		return errInvalid
	}
	writeUserBytes(bufPtr, out)
	return int64(len(out))
}

func doSocket(domain, typ, proto uint64) int64 {
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	id, serr := svc.CreateSocket(int(domain), int(typ), int(proto))
	if serr != nil {
		return errInvalid
	}
	return int64(id)
}

func doBind(rawSock, addrPtr, addrLen uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	addr, port := decodeSockaddrV4(userBuf(addrPtr, addrLen))
	if berr := svc.BindV4(id.netID(), addr, port); berr != nil {
		return errInvalid
	}
	return 0
}

func doSendto(rawSock, bufPtr, length, flags, addrPtr, addrLen uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	addr, port := decodeSockaddrV4(userBuf(addrPtr, addrLen))
	n, werr := svc.SendtoUDPV4(id.netID(), userBuf(bufPtr, length), addr, port)
	if werr != nil {
		return errInvalid
	}
	return int64(n)
}

func doRecvfrom(rawSock, bufPtr, length, flags, addrPtr, addrLen uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	n, addr, port, rerr := svc.RecvfromUDPV4(id.netID(), userBuf(bufPtr, length))
	if rerr != nil {
		return errInvalid
	}
	if addrLen >= 6 {
		encodeSockaddrV4(userBuf(addrPtr, addrLen), addr, port)
	}
	return int64(n)
}

func doSend(rawSock, bufPtr, length, flags uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	n, werr := svc.SendTCP(id.netID(), userBuf(bufPtr, length))
	if werr != nil {
		return errInvalid
	}
	return int64(n)
}

func doRecv(rawSock, bufPtr, length, flags uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	n, rerr := svc.RecvTCP(id.netID(), userBuf(bufPtr, length))
	if rerr != nil {
		return errInvalid
	}
	return int64(n)
}

func doConnect(rawSock, addrPtr, addrLen uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	addr, port := decodeSockaddrV4(userBuf(addrPtr, addrLen))
	if cerr := svc.ConnectTCPV4(id.netID(), addr, port); cerr != nil {
		return errInvalid
	}
	return 0
}

func doListen(rawSock, backlog uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	if lerr := svc.ListenTCPV4(id.netID(), int(backlog)); lerr != nil {
		return errInvalid
	}
	return 0
}

func doAccept(rawSock, addrPtr, addrLenPtr uint64) int64 {
	id, serr := toSocketId(rawSock)
	if serr != nil {
		return errInvalid
	}
	svc, err := net.Get()
	if err != nil {
		return errInvalid
	}
	client, aerr := svc.AcceptTCPV4(id.netID())
	if aerr != nil {
		return errInvalid
	}
	return int64(client)
}

func decodeSockaddrV4(b []byte) (addr [4]byte, port uint16) {
	if len(b) < 6 {
		return addr, 0
	}
	port = uint16(b[0]) | uint16(b[1])<<8
	copy(addr[:], b[2:6])
	return addr, port
}

func encodeSockaddrV4(b []byte, addr [4]byte, port uint16) {
	if len(b) < 6 {
		return
	}
	b[0] = byte(port)
	b[1] = byte(port >> 8)
	copy(b[2:6], addr[:])
}

// raiseBreakpointFn issues the int3 instruction on behalf of the `break`
// syscall; it is a package-level variable purely so tests can override it
// with a no-op and observe the call without trapping the test process.
var raiseBreakpointFn = cpu.Breakpoint
