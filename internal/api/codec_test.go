package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestJSONCodec_Registered(t *testing.T) {
	t.Parallel()
	require.NotNil(t, encoding.GetCodecV2(CodecName))
	require.Equal(t, "/bagtrack.v1.Bagtrack/CheckIn", FullMethod(MethodCheckIn))
}

func TestJSONCodec_PreservesHistoryOrder(t *testing.T) {
	t.Parallel()
	c := jsonCodec{}
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 123456789, time.UTC)
	in := Bag{ID: "b1", BagID: "123456", Location: "gate", LocationHistory: []LocationEntry{
		{Location: "check_in", Timestamp: t0, UpdatedBy: "Ann Lee"},
		{Location: "security", Timestamp: t0.Add(time.Minute)},
		{Location: "gate", Timestamp: t0.Add(2 * time.Minute)},
	}}
	data, err := c.Marshal(&in)
	require.NoError(t, err)

	var out Bag
	require.NoError(t, c.Unmarshal(data, &out))
	require.Equal(t, in.LocationHistory, out.LocationHistory)
	for i := 1; i < len(out.LocationHistory); i++ {
		require.True(t, out.LocationHistory[i-1].Timestamp.Before(out.LocationHistory[i].Timestamp))
	}

	var empty Empty
	require.NoError(t, c.Unmarshal(nil, &empty))
	require.Error(t, c.Unmarshal([]byte("{"), &out))
}
