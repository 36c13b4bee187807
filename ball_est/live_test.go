package ball_est

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"ball-estimation/estimate"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestUDPSourceAndSinkLoopback(t *testing.T) {
	src, err := NewUDPSource(LiveConfig{UDPAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	defer src.Close()

	conn, err := net.Dial("udp", src.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.Write([]byte("1.25,0.1,0.2,0.75"))
	require.NoError(t, err)
	obs, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, estimate.Observation{T: 1.25, Z: 0.75}, obs)

	_, err = conn.Write([]byte("garbage"))
	require.NoError(t, err)
	_, err = src.Next(ctx)
	require.True(t, errors.Is(err, ErrBadPayload))

	// Results sent by a UDPSink arrive as three datagrams.
	out, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer out.Close()
	sink, err := NewUDPSink(out.LocalAddr().String())
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Publish(sampleResult))
	require.NoError(t, out.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 256)
	var got []string
	for i := 0; i < 3; i++ {
		n, err := out.Read(buf)
		require.NoError(t, err)
		got = append(got, string(buf[:n]))
	}
	require.Equal(t, formatResult(sampleResult), got)
}

func TestUDPSourceStopsOnCancel(t *testing.T) {
	src, err := NewUDPSource(LiveConfig{UDPAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = src.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewUDPSinkEmptyAddrDiscards(t *testing.T) {
	sink, err := NewUDPSink("")
	require.NoError(t, err)
	require.NoError(t, sink.Publish(sampleResult))
	require.NoError(t, sink.Close())
}

func TestRunLiveRequiresAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Live.UDPAddr = ""
	err := RunLive(context.Background(), cfg)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "udp_addr"))
}
