package serializer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/cacheme/serializer"
)

// The tag store depends on time.Time surviving a MsgPack round trip.
func TestMsgPack_TimeRoundTrip(t *testing.T) {
	var s serializer.MsgPack
	now := time.Now().UTC()

	b, err := s.Dumps(now)
	require.NoError(t, err)

	var got time.Time
	require.NoError(t, s.Loads(b, &got))
	assert.True(t, got.Equal(now))
}

func TestMsgPack_CorruptPayload(t *testing.T) {
	var s serializer.MsgPack
	var out map[string]string
	assert.Error(t, s.Loads([]byte{0xc1}, &out)) // 0xc1 is never valid msgpack
}

func TestJSON_StructRoundTrip(t *testing.T) {
	type profile struct {
		Name  string `json:"name"`
		Level int    `json:"level"`
	}
	var s serializer.JSON

	b, err := s.Dumps(profile{Name: "a", Level: 3})
	require.NoError(t, err)

	var got profile
	require.NoError(t, s.Loads(b, &got))
	assert.Equal(t, profile{Name: "a", Level: 3}, got)
}

func TestRaw_PassThrough(t *testing.T) {
	var s serializer.Raw

	b, err := s.Dumps([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	var out []byte
	require.NoError(t, s.Loads(b, &out))
	assert.Equal(t, []byte{1, 2, 3}, out)

	var str string
	require.NoError(t, s.Loads([]byte("abc"), &str))
	assert.Equal(t, "abc", str)
}

func TestRaw_RejectsOtherTypes(t *testing.T) {
	var s serializer.Raw

	_, err := s.Dumps(42)
	assert.Error(t, err)

	var out int
	assert.Error(t, s.Loads([]byte("1"), &out))
}
