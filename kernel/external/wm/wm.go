// Package wm declares the window manager collaborator interface consumed by
// the iomsg syscall (§6). The WM itself, and the DOM/HTML/CSS renderer app
// built atop it, are opaque graphical services out of scope for this
// kernel core. The task model stores only the opaque LayerId values this
// interface hands back in a task's window ledger; it never follows a
// window's parent/child references itself (§9).
package wm

import "ringzero/kernel"

// LayerId identifies a window or a component layered onto one, as handed
// back by the window manager. It is opaque to the kernel core.
type LayerId int64

// Service is implemented by the window manager linked in alongside the
// kernel.
type Service interface {
	CreateWindow(title string, x, y, w, h uint64) (LayerId, *kernel.Error)
	AddComponentToWindow(parent LayerId, component interface{}) (LayerId, *kernel.Error)
	RemoveComponent(id LayerId) *kernel.Error
}

var active Service

// Register installs the window manager implementation.
func Register(svc Service) { active = svc }

// Get returns the active window manager, or nil with ErrNotInitialized.
func Get() (Service, *kernel.Error) {
	if active == nil {
		return nil, kernel.ErrNotInitialized
	}
	return active, nil
}
