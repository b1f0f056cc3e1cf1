// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"net"
	"sync"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/naza/pkg/nazanet"
)

type ServerOption struct {
	Addr string

	Fps           int // 发送帧率，也是SDP中的framerate
	MaxPacketSize int // 单个rtp包的最大长度，包含rtp头

	HandshakeTimeoutMs int
	RequestMaxSize     int
	Ssrc               uint32 // 0表示每个会话随机生成

	UdpPortMin     uint16 // 都为0时使用内核分配的临时端口
	UdpPortMax     uint16
	UdpSendBufSize int

	SendMaxRetries       int
	SendRetryBaseDelayMs int
	FrameRetryIntervalMs int
	StatIntervalFrames   int

	ListenRetryIntervalMs int

	DefaultWidth  int // 帧源无法提供宽高时SDP中使用的值
	DefaultHeight int
}

var defaultServerOption = ServerOption{
	Addr:                  ":554",
	Fps:                   10,
	MaxPacketSize:         1400,
	HandshakeTimeoutMs:    30000,
	RequestMaxSize:        4096,
	Ssrc:                  0,
	UdpPortMin:            0,
	UdpPortMax:            0,
	UdpSendBufSize:        65536,
	SendMaxRetries:        5,
	SendRetryBaseDelayMs:  5,
	FrameRetryIntervalMs:  100,
	StatIntervalFrames:    100,
	ListenRetryIntervalMs: 1000,
	DefaultWidth:          320,
	DefaultHeight:         240,
}

type ModServerOption func(option *ServerOption)

func (o *ServerOption) sendRetryBaseDelay() time.Duration {
	return time.Duration(o.SendRetryBaseDelayMs) * time.Millisecond
}

func (o *ServerOption) frameRetryInterval() time.Duration {
	return time.Duration(o.FrameRetryIntervalMs) * time.Millisecond
}

// Server 串行处理会话，同一时间最多只有一个会话
//
// 会话结束后才会accept下一个连接，在此期间连接的客户端在listen backlog中等待
//
type Server struct {
	option      ServerOption
	source      base.IFrameSource
	udpConnPool *nazanet.AvailUdpConnPool

	mu       sync.Mutex
	ln       net.Listener
	session  *ServerCommandSession
	disposed bool

	doneCh chan struct{}
}

func NewServer(source base.IFrameSource, modOptions ...ModServerOption) *Server {
	option := defaultServerOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.Fps <= 0 {
		option.Fps = defaultServerOption.Fps
	}
	if option.MaxPacketSize <= rtprtcp.RtpFixedHeaderLength+rtprtcp.RtpJpegHeaderLength {
		option.MaxPacketSize = defaultServerOption.MaxPacketSize
	}
	if option.RequestMaxSize <= 0 {
		option.RequestMaxSize = defaultServerOption.RequestMaxSize
	}

	s := &Server{
		option: option,
		source: source,
		doneCh: make(chan struct{}),
	}
	if option.UdpPortMin != 0 && option.UdpPortMax >= option.UdpPortMin {
		s.udpConnPool = nazanet.NewAvailUdpConnPool(option.UdpPortMin, option.UdpPortMax)
	}
	return s
}

// Listen 失败时直接返回错误，由调用方决定是否重试，RunLoop 内部会自己重试
//
func (s *Server) Listen() (err error) {
	ln, err := net.Listen("tcp", s.option.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		_ = ln.Close()
		return base.ErrRtspClosed
	}
	s.ln = ln
	Log.Infof("start rtsp server listen. addr=%s", ln.Addr().String())
	return nil
}

// RunLoop 阻塞直到 Dispose
//
// listen失败时间隔一段时间重试，accept失败时关闭并重新创建监听
//
func (s *Server) RunLoop() error {
	for {
		ln := s.listener()
		if ln == nil {
			if err := s.Listen(); err != nil {
				if s.isDisposed() {
					return base.ErrRtspClosed
				}
				Log.Errorf("rtsp server listen failed, retry later. addr=%s, err=%+v", s.option.Addr, err)
				if !s.sleep(time.Duration(s.option.ListenRetryIntervalMs) * time.Millisecond) {
					return base.ErrRtspClosed
				}
				continue
			}
			ln = s.listener()
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.isDisposed() {
				return base.ErrRtspClosed
			}
			Log.Errorf("rtsp server accept failed, recreate listener. err=%+v", err)
			s.closeListener()
			continue
		}

		s.handleTcpConnect(conn)
	}
}

// Addr 监听成功之前返回nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	close(s.doneCh)
	ln := s.ln
	s.ln = nil
	session := s.session
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			Log.Error(err)
		}
	}
	if session != nil {
		_ = session.Dispose()
	}
}

// GetSessionStat 当前没有会话时 ok 为false
//
func (s *Server) GetSessionStat() (stat base.StatRtspSession, ok bool) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return stat, false
	}
	return session.GetStat(), true
}

// UpdateSessionStat 定时调用，用于计算控制连接的带宽
func (s *Server) UpdateSessionStat(intervalSec uint32) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session != nil {
		session.UpdateStat(intervalSec)
	}
}

// ---------------------------------------------------------------------------------------------------------------------

func (s *Server) handleTcpConnect(conn net.Conn) {
	session := NewServerCommandSession(conn, s.source, s.udpConnPool, s.option)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		_ = session.Dispose()
		return
	}
	s.session = session
	s.mu.Unlock()

	err := session.RunLoop()
	Log.Infof("[%s] session finished. err=%+v", session.UniqueKey(), err)

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

func (s *Server) listener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln
}

func (s *Server) closeListener() {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}

func (s *Server) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Server) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.doneCh:
		return false
	}
}
