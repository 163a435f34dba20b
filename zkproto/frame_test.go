package zkproto

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := frame{command: cmdAttLogList, session: 0x4242, reply: 7, data: []byte(`[{"id":"9"}]`)}
	raw := f.marshal()

	got, err := readFrame(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, uint16(cmdAttLogList), got.command)
	assert.Equal(t, uint16(0x4242), got.session)
	assert.Equal(t, uint16(7), got.reply)
	assert.Equal(t, f.data, got.data)
}

func TestFrameChecksumMismatch(t *testing.T) {
	raw := frame{command: cmdConnect, session: 1, reply: 1}.marshal()
	// flip a bit in the session field
	raw[12] ^= 0xFF
	_, err := readFrame(bytes.NewReader(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}

func TestFrameBadMagic(t *testing.T) {
	raw := frame{command: cmdConnect}.marshal()
	binary.LittleEndian.PutUint32(raw[0:4], 0xDEADBEEF)
	_, err := readFrame(bytes.NewReader(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestFrameShortPayload(t *testing.T) {
	_, err := parseFrame([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestTimeCodecRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 30, 45, 0, time.UTC),
		time.Date(2026, 8, 28, 23, 59, 59, 0, time.UTC),
		time.Date(2031, 12, 31, 6, 0, 1, 0, time.UTC),
	}
	for _, want := range cases {
		got := decodeTime(encodeTime(want))
		assert.True(t, got.Equal(want), "round trip of %v yielded %v", want, got)
	}
}

func TestTimeCodecEpoch(t *testing.T) {
	// the device epoch itself packs to zero
	assert.Equal(t, uint32(0), encodeTime(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC), decodeTime(1))
}
