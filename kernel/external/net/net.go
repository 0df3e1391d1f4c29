// Package net declares the network stack collaborator interface backing
// the socket family of syscalls (§6): UDP send/recv, TCP connect/listen/
// accept/send/recv. The network stack (virtio-net and RTL8139 drivers, the
// TCP/IP stack itself) lives outside this kernel core; this package only
// pins down the contract the dispatcher is written against.
package net

import "ringzero/kernel"

// SocketId identifies a socket handed back by the network stack.
type SocketId int64

// Service is implemented by the network stack linked in alongside the
// kernel.
type Service interface {
	CreateSocket(domain, typ, protocol int) (SocketId, *kernel.Error)
	BindV4(id SocketId, addr [4]byte, port uint16) *kernel.Error
	SendtoUDPV4(id SocketId, buf []byte, addr [4]byte, port uint16) (n int, err *kernel.Error)
	RecvfromUDPV4(id SocketId, buf []byte) (n int, addr [4]byte, port uint16, err *kernel.Error)
	ConnectTCPV4(id SocketId, addr [4]byte, port uint16) *kernel.Error
	ListenTCPV4(id SocketId, backlog int) *kernel.Error
	AcceptTCPV4(id SocketId) (SocketId, *kernel.Error)
	SendTCP(id SocketId, buf []byte) (n int, err *kernel.Error)
	RecvTCP(id SocketId, buf []byte) (n int, err *kernel.Error)
	IsTCPEstablished(id SocketId) bool
	CloseSocket(id SocketId) *kernel.Error
}

var active Service

// Register installs the network stack implementation.
func Register(svc Service) { active = svc }

// Get returns the active network stack, or nil with ErrNotInitialized.
func Get() (Service, *kernel.Error) {
	if active == nil {
		return nil, kernel.ErrNotInitialized
	}
	return active, nil
}
