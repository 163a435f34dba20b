package zkproto

import (
	"encoding/binary"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice runs a scripted clock on a loopback listener. The handler is
// invoked for every frame after the connect handshake.
func fakeDevice(t *testing.T, handle func(conn net.Conn, req frame) bool) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			req, err := readFrame(conn)
			if err != nil {
				return
			}
			if req.command == cmdConnect {
				reply(conn, req, frame{command: cmdAckOK, session: 0x1111})
				continue
			}
			if req.command == cmdExit {
				reply(conn, req, frame{command: cmdAckOK, session: req.session})
				return
			}
			if !handle(conn, req) {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func reply(conn net.Conn, req frame, resp frame) {
	resp.reply = req.reply
	if resp.session == 0 {
		resp.session = req.session
	}
	conn.Write(resp.marshal())
}

func testOptions() Options {
	return Options{DialTimeout: 2 * time.Second, ReadTimeout: 2 * time.Second}
}

func TestDialHandshake(t *testing.T) {
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool { return false })

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, uint16(0x1111), c.session)
}

func TestDialRefused(t *testing.T) {
	// listener that never existed
	_, err := Dial("127.0.0.1:1", testOptions())
	require.Error(t, err)
	var cerr *ConnectionError
	assert.ErrorAs(t, err, &cerr)
}

func TestFetchLogsInlineData(t *testing.T) {
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool {
		if req.command == cmdAttLogList {
			reply(conn, req, frame{command: cmdAckData, data: []byte(`[{"deviceUserId":"9","recordTime":"2026-08-27 08:00:00"}]`)})
		}
		return true
	})

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	defer c.Close()

	recs, err := c.FetchLogs(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	id, _ := recs[0].String("deviceUserId")
	assert.Equal(t, "9", id)
}

func TestFetchLogsChunkedTransfer(t *testing.T) {
	payload := []byte(`{"data":[{"uid":"1"},{"uid":"2"},{"uid":"3"}]}`)
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool {
		if req.command != cmdAttLogList {
			return true
		}
		size := make([]byte, 4)
		binary.LittleEndian.PutUint32(size, uint32(len(payload)))
		reply(conn, req, frame{command: cmdPrepareData, data: size})

		half := len(payload) / 2
		reply(conn, req, frame{command: cmdData, data: payload[:half]})
		reply(conn, req, frame{command: cmdData, data: payload[half:]})
		return true
	})

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	defer c.Close()

	recs, err := c.FetchLogs(1)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestFetchLogsRetriesGarbage(t *testing.T) {
	var attempts atomic.Int32
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool {
		if req.command != cmdAttLogList {
			return true
		}
		if attempts.Add(1) == 1 {
			reply(conn, req, frame{command: cmdAckData, data: []byte("%%garbage%%")})
			return true
		}
		reply(conn, req, frame{command: cmdAckData, data: []byte(`[{"uid":"1"}]`)})
		return true
	})

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	defer c.Close()

	recs, err := c.FetchLogs(3)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.EqualValues(t, 2, attempts.Load())
}

func TestFetchLogsExhaustsRetries(t *testing.T) {
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool {
		reply(conn, req, frame{command: cmdAckData, data: []byte("%%garbage%%")})
		return true
	})

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.FetchLogs(2)
	require.Error(t, err)
	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 2, terr.Attempts)
	assert.Contains(t, err.Error(), "clear logs first")
}

func TestClockCommands(t *testing.T) {
	deviceTime := time.Date(2026, 8, 28, 9, 15, 0, 0, time.UTC)
	setTo := make(chan time.Time, 1)
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool {
		switch req.command {
		case cmdGetTime:
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, encodeTime(deviceTime))
			reply(conn, req, frame{command: cmdAckOK, data: buf})
		case cmdSetTime:
			setTo <- decodeTime(binary.LittleEndian.Uint32(req.data[:4]))
			reply(conn, req, frame{command: cmdAckOK})
		}
		return true
	})

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	defer c.Close()

	got, err := c.GetTime()
	require.NoError(t, err)
	assert.True(t, got.Equal(deviceTime))

	want := time.Date(2026, 8, 28, 9, 16, 30, 0, time.UTC)
	require.NoError(t, c.SetTime(want))
	assert.True(t, (<-setTo).Equal(want))
}

func TestClearLogs(t *testing.T) {
	var cleared atomic.Bool
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool {
		if req.command == cmdClearAttLog {
			cleared.Store(true)
			reply(conn, req, frame{command: cmdAckOK})
		}
		return true
	})

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.ClearLogs())
	assert.True(t, cleared.Load())
}

func TestCloseIdempotent(t *testing.T) {
	addr := fakeDevice(t, func(conn net.Conn, req frame) bool { return true })

	c, err := Dial(addr, testOptions())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
