package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce accepts a single connection, hands the decoded request to
// reply and writes whatever reply returns.
func serveOnce(t *testing.T, reply func(e models.ClockEvent, err error) string) (string, <-chan struct{}) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

		e, err := protocol.DecodeRequest(conn)
		if out := reply(e, err); out != "" {
			_, _ = io.WriteString(conn, out)
		}
	}()

	return ln.Addr().String(), done
}

func sampleEvent() models.ClockEvent {
	return models.ClockEvent{
		Username:   "alice",
		Timestamp:  time.Date(2024, 5, 1, 8, 0, 0, 123456000, time.Local),
		SourceInfo: "windows-amd64-KIOSK01",
	}
}

func TestSend_Success(t *testing.T) {
	got := make(chan models.ClockEvent, 1)
	addr, done := serveOnce(t, func(e models.ClockEvent, err error) string {
		if err != nil {
			return ""
		}
		got <- e
		return `{"status":"success","message":"Ponto registrado com sucesso."}`
	})

	resp, err := NewTCPClient(addr, 2*time.Second).Send(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, protocol.MessageSuccess, resp.Message)

	e := <-got
	assert.Equal(t, "alice", e.Username)
	assert.Equal(t, "windows-amd64-KIOSK01", e.SourceInfo)
	assert.Equal(t, "2024-05-01T08:00:00.123456", e.Timestamp.Format(protocol.TimestampLayout))
	<-done
}

func TestSend_ErrorReplyIsNotAGoError(t *testing.T) {
	addr, _ := serveOnce(t, func(models.ClockEvent, error) string {
		return `{"status":"error","message":"Já foi registrado o ponto para hoje."}`
	})

	resp, err := NewTCPClient(addr, 2*time.Second).Send(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, protocol.MessageDuplicate, resp.Message)
}

func TestSend_Unavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewTCPClient(addr, time.Second).Send(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSend_NoReplyTimesOut(t *testing.T) {
	release := make(chan struct{})
	addr, _ := serveOnce(t, func(models.ClockEvent, error) string {
		<-release
		return ""
	})
	defer close(release)

	start := time.Now()
	_, err := NewTCPClient(addr, 200*time.Millisecond).Send(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestSend_BadResponse(t *testing.T) {
	for _, out := range []string{"garbage", `{"status":"maybe","message":"?"}`} {
		addr, _ := serveOnce(t, func(models.ClockEvent, error) string { return out })

		_, err := NewTCPClient(addr, 2*time.Second).Send(context.Background(), sampleEvent())
		assert.ErrorIs(t, err, ErrBadResponse, out)
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
}

func TestSend_ClosedWithoutReply(t *testing.T) {
	addr, _ := serveOnce(t, func(models.ClockEvent, error) string { return "" })

	_, err := NewTCPClient(addr, 2*time.Second).Send(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "EOF"), err.Error())
}
