package zkproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecordsPlainArray(t *testing.T) {
	recs, err := DecodeRecords([]byte(`[{"deviceUserId":"101","recordTime":"2026-08-27 08:00:00","type":0}]`))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	id, ok := recs[0].String("deviceUserId")
	assert.True(t, ok)
	assert.Equal(t, "101", id)
}

func TestDecodeRecordsDataEnvelope(t *testing.T) {
	recs, err := DecodeRecords([]byte(`{"data":[{"id":5},{"id":6}]}`))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// numeric ids render as strings for mapping lookups
	id, ok := recs[1].String("id")
	assert.True(t, ok)
	assert.Equal(t, "6", id)
}

func TestDecodeRecordsUsersEnvelope(t *testing.T) {
	recs, err := DecodeRecords([]byte(`{"users":[{"uid":"7","name":"a"}]}`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestDecodeRecordsEmptyEnvelopes(t *testing.T) {
	recs, err := DecodeRecords([]byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = DecodeRecords([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDecodeRecordsTrimsPadding(t *testing.T) {
	payload := append([]byte(`[{"uid":1}]`), 0, 0, 0, 0)
	recs, err := DecodeRecords(payload)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestDecodeRecordsUnexpectedShape(t *testing.T) {
	for _, payload := range []string{`{"rows":[{"id":1}]}`, `"just a string"`, `not json at all`, ""} {
		_, err := DecodeRecords([]byte(payload))
		require.Error(t, err, "payload %q", payload)
		var uerr *UnexpectedResponseError
		assert.ErrorAs(t, err, &uerr, "payload %q", payload)
	}
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{"uid": float64(42), "name": "Ada", "empty": "", "state": "3"}

	s, ok := rec.String("uid")
	assert.True(t, ok)
	assert.Equal(t, "42", s)

	_, ok = rec.String("empty")
	assert.False(t, ok)

	_, ok = rec.String("missing")
	assert.False(t, ok)

	n, ok := rec.Int("state")
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	_, ok = rec.Int("name")
	assert.False(t, ok)
}
