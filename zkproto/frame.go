package zkproto

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Command codes understood by the punch clocks we support.
const (
	cmdConnect     = 1000
	cmdExit        = 1001
	cmdAckOK       = 2000
	cmdAckError    = 2001
	cmdAckData     = 2002
	cmdPrepareData = 1500
	cmdData        = 1501
	cmdUserList    = 109
	cmdAttLogList  = 13
	cmdClearAttLog = 15
	cmdGetTime     = 201
	cmdSetTime     = 202
)

// TCP frames are prefixed with this magic followed by the payload length.
const tcpMagic uint32 = 0x7D825050

const maxFrameSize = 4 << 20

// frame is one protocol unit: command, session/reply ids, and raw data.
type frame struct {
	command uint16
	session uint16
	reply   uint16
	data    []byte
}

func (f frame) marshal() []byte {
	payload := make([]byte, 8+len(f.data))
	binary.LittleEndian.PutUint16(payload[0:2], f.command)
	// checksum slot stays zero while summing
	binary.LittleEndian.PutUint16(payload[4:6], f.session)
	binary.LittleEndian.PutUint16(payload[6:8], f.reply)
	copy(payload[8:], f.data)
	binary.LittleEndian.PutUint16(payload[2:4], checksum(payload))

	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], tcpMagic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[8:], payload)
	return out
}

func parseFrame(payload []byte) (frame, error) {
	if len(payload) < 8 {
		return frame{}, fmt.Errorf("short frame: %d bytes", len(payload))
	}
	f := frame{
		command: binary.LittleEndian.Uint16(payload[0:2]),
		session: binary.LittleEndian.Uint16(payload[4:6]),
		reply:   binary.LittleEndian.Uint16(payload[6:8]),
		data:    payload[8:],
	}
	want := binary.LittleEndian.Uint16(payload[2:4])
	scratch := make([]byte, len(payload))
	copy(scratch, payload)
	scratch[2], scratch[3] = 0, 0
	if got := checksum(scratch); got != want {
		return frame{}, fmt.Errorf("frame checksum mismatch: got %04x want %04x", got, want)
	}
	return f, nil
}

// checksum is the protocol's 16-bit ones' complement sum over the payload
// with the checksum field zeroed.
func checksum(p []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(p); i += 2 {
		sum += uint32(binary.LittleEndian.Uint16(p[i : i+2]))
	}
	if len(p)%2 == 1 {
		sum += uint32(p[len(p)-1])
	}
	for sum > 0xFFFF {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return uint16(^sum)
}

func readFrame(r io.Reader) (frame, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, err
	}
	if magic := binary.LittleEndian.Uint32(hdr[0:4]); magic != tcpMagic {
		return frame{}, fmt.Errorf("bad frame magic %08x", magic)
	}
	size := binary.LittleEndian.Uint32(hdr[4:8])
	if size < 8 || size > maxFrameSize {
		return frame{}, fmt.Errorf("bad frame size %d", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return frame{}, err
	}
	return parseFrame(payload)
}

// Device clocks encode instants as a packed u32 counted from 2000-01-01 on a
// 31-day-month calendar.
func encodeTime(t time.Time) uint32 {
	return uint32(((t.Year()-2000)*12*31+(int(t.Month())-1)*31+t.Day()-1)*24*60*60 +
		t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func decodeTime(v uint32) time.Time {
	sec := int(v % 60)
	v /= 60
	min := int(v % 60)
	v /= 60
	hour := int(v % 24)
	v /= 24
	day := int(v%31) + 1
	v /= 31
	month := time.Month(v%12 + 1)
	year := int(v/12) + 2000
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}
