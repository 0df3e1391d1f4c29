package syscall

import (
	"encoding/binary"

	"ringzero/kernel/external/wm"
	"ringzero/kernel/task"
)

// iomsg command identifiers, carried in the low bits of the header's cmd_id
// once the required top bit is masked off.
const (
	cmdRemoveComponent       uint32 = 1
	cmdCreateComponentWindow uint32 = 2
	cmdCreateComponentImage  uint32 = 3

	cmdTopBit uint32 = 1 << 31
)

const headerSize = 8 // {cmd_id: u32, payload_size: u32}

// dispatchIomsg implements syscall 18 (§6 "iomsg framing"). The user posts
// [header][payload] in msgBuf; the kernel writes [header][reply payload]
// into replyBuf, bounded by replyLen. It returns errInvalid for a header
// with a zero top bit, a payload_size larger than the bytes that follow the
// header in msgBuf, an unknown command, or a payload shorter than the
// command reads (RemoveComponent takes exactly 4 bytes,
// CreateComponentWindow at least 32, CreateComponentImage at least 21).
// payload_size is not checked against the bytes actually parsed: for the
// two create commands, payload bytes beyond those the command reads are
// accepted and ignored.
func dispatchIomsg(msgBuf, replyBuf []byte, replyLen uint64) int64 {
	if len(msgBuf) < headerSize {
		return errInvalid
	}

	cmdID := binary.LittleEndian.Uint32(msgBuf[0:4])
	payloadSize := binary.LittleEndian.Uint32(msgBuf[4:8])
	if cmdID&cmdTopBit == 0 {
		return errInvalid
	}
	cmd := cmdID &^ cmdTopBit

	payload := msgBuf[headerSize:]
	if uint32(len(payload)) < payloadSize {
		return errInvalid
	}
	payload = payload[:payloadSize]

	svc, err := wm.Get()
	if err != nil {
		return errInvalid
	}

	switch cmd {
	case cmdRemoveComponent:
		if payloadSize != 4 {
			return errInvalid
		}
		layerID := int32(binary.LittleEndian.Uint32(payload))
		if werr := svc.RemoveComponent(wm.LayerId(layerID)); werr != nil {
			return errInvalid
		}
		return writeIomsgReply(replyBuf, replyLen, cmdID, nil)

	case cmdCreateComponentWindow:
		if payloadSize < 16 {
			return errInvalid
		}
		x := binary.LittleEndian.Uint64(payload[0:8])
		y := binary.LittleEndian.Uint64(payload[8:16])
		rest := payload[16:]
		if len(rest) < 16 {
			return errInvalid
		}
		w := binary.LittleEndian.Uint64(rest[0:8])
		h := binary.LittleEndian.Uint64(rest[8:16])
		title := nulTerminated(rest[16:])

		layerID, werr := svc.CreateWindow(title, x, y, w, h)
		if werr != nil {
			return errInvalid
		}

		onTask(func(t *task.Task) {
			t.WindowIDs = append(t.WindowIDs, task.WindowID(layerID))
		})

		reply := make([]byte, 8)
		binary.LittleEndian.PutUint64(reply, uint64(layerID))
		return writeIomsgReply(replyBuf, replyLen, cmdID, reply)

	case cmdCreateComponentImage:
		if payloadSize < 21 {
			return errInvalid
		}
		layerID := int32(binary.LittleEndian.Uint32(payload[0:4]))
		w := binary.LittleEndian.Uint64(payload[4:12])
		h := binary.LittleEndian.Uint64(payload[12:20])
		// pixel_format (1 byte) and framebuf_ptr (8 bytes, optional)
		// follow but are opaque to this dispatcher: the window
		// manager interprets the raw component payload itself.
		newLayerID, werr := svc.AddComponentToWindow(wm.LayerId(layerID), struct {
			W, H uint64
		}{w, h})
		if werr != nil {
			return errInvalid
		}

		onTask(func(t *task.Task) {
			t.WindowIDs = append(t.WindowIDs, task.WindowID(newLayerID))
		})

		reply := make([]byte, 4)
		binary.LittleEndian.PutUint32(reply, uint32(int32(newLayerID)))
		return writeIomsgReply(replyBuf, replyLen, cmdID, reply)

	default:
		return errInvalid
	}
}

func writeIomsgReply(replyBuf []byte, replyLen uint64, cmdID uint32, payload []byte) int64 {
	need := headerSize + len(payload)
	if replyLen < uint64(need) || len(replyBuf) < need {
		return errInvalid
	}
	binary.LittleEndian.PutUint32(replyBuf[0:4], cmdID)
	binary.LittleEndian.PutUint32(replyBuf[4:8], uint32(len(payload)))
	copy(replyBuf[headerSize:], payload)
	return 0
}

func nulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// onTask runs fn against the current task if one is active. iomsg's window
// ledger bookkeeping only applies when a user task issued the call.
func onTask(fn func(*task.Task)) {
	if t := task.Current(); t != nil && t.IsUser() {
		fn(t)
	}
}
