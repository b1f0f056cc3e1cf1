// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly
// +build linux darwin netbsd freebsd openbsd dragonfly

package rtsp_test

import (
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/rtsp"
	"github.com/q191201771/naza/pkg/assert"
	"golang.org/x/sys/unix"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func useFakeClock(t *testing.T) *fakeClock {
	c := &fakeClock{now: time.Unix(1700000000, 0)}
	prev := rtsp.Clock
	rtsp.Clock = c
	t.Cleanup(func() {
		rtsp.Clock = prev
	})
	return c
}

// fakeWriter 前 failCount 次返回 err
type fakeWriter struct {
	failCount int
	err       error

	calls   int
	written [][]byte
}

func (w *fakeWriter) Write(b []byte) error {
	w.calls++
	if w.calls <= w.failCount {
		return w.err
	}
	w.written = append(w.written, append([]byte(nil), b...))
	return nil
}

func noBufferSpaceErr() error {
	return &net.OpError{Op: "write", Net: "udp", Err: os.NewSyscallError("sendto", unix.ENOBUFS)}
}

func TestUdpSender_Success(t *testing.T) {
	clock := useFakeClock(t)
	w := &fakeWriter{}
	s := rtsp.NewUdpSender(w)

	dropped, err := s.Send([]byte{1, 2, 3})
	assert.Equal(t, nil, err)
	assert.Equal(t, false, dropped)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, 0, len(clock.sleeps))
}

func TestUdpSender_RetryThenSuccess(t *testing.T) {
	clock := useFakeClock(t)
	w := &fakeWriter{failCount: 3, err: noBufferSpaceErr()}
	s := rtsp.NewUdpSender(w)

	dropped, err := s.Send([]byte{1})
	assert.Equal(t, nil, err)
	assert.Equal(t, false, dropped)
	assert.Equal(t, 4, w.calls)
	assert.Equal(t, 1, len(w.written))
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}, clock.sleeps)
	assert.Equal(t, uint64(3), s.RetryCount())
}

func TestUdpSender_Exhausted(t *testing.T) {
	clock := useFakeClock(t)
	w := &fakeWriter{failCount: 100, err: unix.ENOMEM}
	s := rtsp.NewUdpSender(w)

	dropped, err := s.Send([]byte{1})
	assert.Equal(t, nil, err)
	assert.Equal(t, true, dropped)
	assert.Equal(t, 5, w.calls)
	assert.Equal(t, 4, len(clock.sleeps))
	assert.Equal(t, 40*time.Millisecond, clock.sleeps[3])
	assert.Equal(t, uint64(1), s.DroppedCount())
}

func TestUdpSender_FatalError(t *testing.T) {
	clock := useFakeClock(t)
	fatal := errors.New("use of closed network connection")
	w := &fakeWriter{failCount: 1, err: fatal}
	s := rtsp.NewUdpSender(w, func(option *rtsp.UdpSenderOption) {
		option.MaxRetries = 3
	})

	dropped, err := s.Send([]byte{1})
	assert.Equal(t, fatal, err)
	assert.Equal(t, false, dropped)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, 0, len(clock.sleeps))
}
