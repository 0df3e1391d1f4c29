// Package vfs declares the virtual-file-system collaborator interface the
// syscall dispatcher calls into, per §1 and §6. The VFS itself (and the FAT
// driver and initramfs unpacker behind it) is out of scope for this kernel
// core; this package only pins down the contract the dispatcher is written
// against so that a real VFS can be linked in without touching
// kernel/syscall.
package vfs

import "ringzero/kernel"

// Service is implemented by whatever mounts the initramfs during step 6 of
// the boot sequence. Every method takes and returns plain values -- the
// syscall dispatcher is the only place that translates these into/from raw
// register integers.
type Service interface {
	Open(path string, create bool) (fd int, err *kernel.Error)
	Close(fd int) *kernel.Error
	Read(fd int, buf []byte) (n int, err *kernel.Error)
	Write(fd int, buf []byte) (n int, err *kernel.Error)
	FileSize(fd int) (size uint64, err *kernel.Error)
	CwdPath() string
	Chdir(path string) *kernel.Error
	EntryNames(path string) ([]string, *kernel.Error)
	AddDevFile(descriptor interface{}, name string) *kernel.Error
}

// active is the VFS implementation wired in at boot; nil until step 6 of
// the boot sequence completes.
var active Service

// Register installs the mounted VFS. Called once, after the initramfs is
// mounted.
func Register(svc Service) { active = svc }

// Get returns the active VFS, or nil with ErrNotInitialized if the VFS has
// not been mounted yet.
func Get() (Service, *kernel.Error) {
	if active == nil {
		return nil, kernel.ErrNotInitialized
	}
	return active, nil
}
