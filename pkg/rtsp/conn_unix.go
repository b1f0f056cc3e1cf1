// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly
// +build linux darwin netbsd freebsd openbsd dragonfly

package rtsp

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// isNoBufferSpace 内核发送缓冲暂时不可用，可以重试
func isNoBufferSpace(err error) bool {
	return errors.Is(err, unix.ENOBUFS) || errors.Is(err, unix.ENOMEM)
}

// peekConn 非阻塞、不消费数据地探测控制连接
//
// @return pending: 对端有数据待读，即发送了新的请求
// @return alive:   false表示对端已关闭或者连接出错
//
func peekConn(conn net.Conn, cr *controlReader) (pending bool, alive bool) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return false, true
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return false, false
	}

	var (
		b    [1]byte
		n    int
		rerr error
	)
	err = rc.Read(func(fd uintptr) bool {
		n, _, rerr = unix.Recvfrom(int(fd), b[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		// 不等待可读
		return true
	})
	if err != nil {
		return false, false
	}
	if rerr != nil {
		if errors.Is(rerr, unix.EAGAIN) || errors.Is(rerr, unix.EWOULDBLOCK) || errors.Is(rerr, unix.EINTR) {
			return false, true
		}
		return false, false
	}
	if n > 0 {
		return true, true
	}
	// 对端正常关闭
	return false, false
}
