package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basekick-labs/tsdump/internal/uid"
)

func TestDecodeRowKeyRoundTrip(t *testing.T) {
	reg := uid.NewRegistry()
	metricID := reg.GetOrCreate(uid.Metric, "sys.cpu.user")
	pairs := [][2][]byte{
		{reg.GetOrCreate(uid.TagKey, "host"), reg.GetOrCreate(uid.TagValue, "web01")},
		{reg.GetOrCreate(uid.TagKey, "dc"), reg.GetOrCreate(uid.TagValue, "lga")},
	}

	key := EncodeRowKey(metricID, 1356998400, pairs)
	rk, err := DecodeRowKey(key, reg)
	require.NoError(t, err)

	assert.Equal(t, key, rk.Raw)
	assert.Equal(t, "sys.cpu.user", rk.Metric)
	assert.Equal(t, int64(1356998400), rk.BaseTime)
	assert.Equal(t, []Tag{{"host", "web01"}, {"dc", "lga"}}, rk.Tags)
}

func TestDecodeRowKeyUnknownUID(t *testing.T) {
	reg := uid.NewRegistry()
	key := EncodeRowKey([]byte{9, 9, 9}, 1356998400, [][2][]byte{
		{[]byte{0, 0, 1}, []byte{0, 0, 1}},
	})

	_, err := DecodeRowKey(key, reg)
	var re *uid.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, uid.Metric, re.Kind)
	assert.Equal(t, []byte{9, 9, 9}, re.ID)
}

func TestDecodeRowKeyUnknownTagUID(t *testing.T) {
	reg := uid.NewRegistry()
	metricID := reg.GetOrCreate(uid.Metric, "sys.cpu.user")
	key := EncodeRowKey(metricID, 1356998400, [][2][]byte{
		{[]byte{9, 9, 9}, []byte{9, 9, 9}},
	})

	_, err := DecodeRowKey(key, reg)
	var re *uid.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, uid.TagKey, re.Kind)
}

func TestDecodeRowKeyBadShape(t *testing.T) {
	reg := uid.NewRegistry()
	metricID := reg.GetOrCreate(uid.Metric, "m")
	good := EncodeRowKey(metricID, 0, [][2][]byte{
		{reg.GetOrCreate(uid.TagKey, "k"), reg.GetOrCreate(uid.TagValue, "v")},
	})

	_, err := DecodeRowKey(good[:5], reg)
	assert.Error(t, err, "too short")

	_, err = DecodeRowKey(append(append([]byte(nil), good...), 0xFF), reg)
	assert.Error(t, err, "trailing bytes")
}

func TestBaseTimeOf(t *testing.T) {
	assert.Equal(t, int64(1356998400), BaseTimeOf(1356998400))
	assert.Equal(t, int64(1356998400), BaseTimeOf(1357001999))
	assert.Equal(t, int64(1357002000), BaseTimeOf(1357002000))
	assert.Equal(t, int64(1356998400), BaseTimeOf(1356999200123), "millisecond input")
}
