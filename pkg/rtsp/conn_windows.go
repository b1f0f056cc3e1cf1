// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

//go:build windows
// +build windows

package rtsp

import (
	"errors"
	"net"
	"syscall"
	"time"
)

// wsaENOBUFS WSAENOBUFS
const wsaENOBUFS = syscall.Errno(10055)

func isNoBufferSpace(err error) bool {
	return errors.Is(err, syscall.ENOBUFS) || errors.Is(err, wsaENOBUFS)
}

// peekConn 没有非阻塞的MSG_PEEK，使用很短的读超时读一个字节，读到的字节回退到 cr 中
//
func peekConn(conn net.Conn, cr *controlReader) (pending bool, alive bool) {
	if err := conn.SetReadDeadline(time.Now().Add(peekReadTimeout)); err != nil {
		return false, false
	}
	defer conn.SetReadDeadline(time.Time{})

	var b [1]byte
	n, err := conn.Read(b[:])
	if n > 0 {
		cr.Unread(b[:n])
		return true, true
	}
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return false, true
		}
		return false, false
	}
	return false, true
}
