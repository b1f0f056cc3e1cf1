// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/lalmjpeg/pkg/sdp"
	"github.com/q191201771/naza/pkg/bitrate"
	"github.com/q191201771/naza/pkg/connection"
	"github.com/q191201771/naza/pkg/nazaatomic"
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazanet"
)

type SessionState int32

const (
	SessionStateAwaitingRequest SessionState = iota
	SessionStateReady
	SessionStateStreaming
	SessionStateTerminated
)

func (s SessionState) String() string {
	switch s {
	case SessionStateAwaitingRequest:
		return "AwaitingRequest"
	case SessionStateReady:
		return "Ready"
	case SessionStateStreaming:
		return "Streaming"
	case SessionStateTerminated:
		return "Terminated"
	}
	return "Unknown"
}

// ServerCommandSession 一个rtsp控制连接，以及该连接协商出的udp媒体发送
//
// 握手和推流都在 RunLoop 所在的协程中串行执行，计数器和发送缓存只被该协程访问
// 统计相关的字段可以被其他协程读取
//
type ServerCommandSession struct {
	uniqueKey   string       // const after ctor
	option      ServerOption // const after ctor
	source      base.IFrameSource
	udpConnPool *nazanet.AvailUdpConnPool

	rawConn     net.Conn
	conn        connection.Connection
	cr          *controlReader
	r           *bufio.Reader
	sessionStat base.BasicSessionStat

	localIp   string
	localPort int
	remoteIp  string

	ssrc      uint32 // const after ctor
	sessionId string // const after ctor
	state     nazaatomic.Int32

	mu            sync.Mutex // 保护以下会被统计接口读取的字段
	clientRtpPort int
	serverRtpPort int
	width         int
	height        int
	rtpConn       *nazanet.UdpConnection

	sender    *UdpSender
	packer    *rtprtcp.RtpPackerJpeg
	timestamp uint32
	q         uint8
	qDetected bool
	sendErr   error

	frameCount         nazaatomic.Uint64
	invalidFrameCount  nazaatomic.Uint64
	packetCount        nazaatomic.Uint64
	droppedPacketCount nazaatomic.Uint64
	rtpBytesSum        nazaatomic.Uint64
	rtpBitrate         bitrate.Bitrate

	debugLogCount int

	doneCh      chan struct{}
	disposeOnce sync.Once
}

func NewServerCommandSession(conn net.Conn, source base.IFrameSource, udpConnPool *nazanet.AvailUdpConnPool, option ServerOption) *ServerCommandSession {
	uk := base.GenUkRtspServerCommandSession()

	ssrc := option.Ssrc
	for ssrc == 0 {
		ssrc = rand.Uint32()
	}

	s := &ServerCommandSession{
		uniqueKey:   uk,
		option:      option,
		source:      source,
		udpConnPool: udpConnPool,
		rawConn:     conn,
		conn: connection.New(conn, func(opt *connection.Option) {
			// 不使用内部读缓冲，保证未读的字节要么在 r 中，要么在内核中，探测连接时可见
			// 读超时只在读取请求期间设置，见 readRequest
			opt.ReadBufSize = 0
		}),
		sessionStat: base.NewBasicSessionStat(base.SessionBaseTypeSubStr, uk, conn.RemoteAddr().String()),
		ssrc:        ssrc,
		sessionId:   fmt.Sprintf("%08X", ssrc),
		rtpBitrate: bitrate.New(func(opt *bitrate.Option) {
			opt.WindowMs = 5000
		}),
		doneCh: make(chan struct{}),
	}
	s.cr = &controlReader{r: s.conn}
	s.r = bufio.NewReaderSize(s.cr, option.RequestMaxSize)
	s.packer = rtprtcp.NewRtpPackerJpeg(ssrc, func(opt *rtprtcp.RtpPackerJpegOption) {
		opt.MaxPacketSize = option.MaxPacketSize
	})

	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		s.localIp = addr.IP.String()
		s.localPort = addr.Port
	}
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		s.remoteIp = addr.IP.String()
	}
	s.width, s.height = s.frameSize()

	Log.Infof("[%s] lifecycle new rtsp ServerCommandSession. session=%p, laddr=%s, raddr=%s, ssrc=%s",
		uk, s, conn.LocalAddr().String(), conn.RemoteAddr().String(), s.sessionId)
	return s
}

// RunLoop 阻塞直到会话结束，结束时会话已经被释放
//
func (session *ServerCommandSession) RunLoop() error {
	err := session.runCmdLoop()
	if disposeErr := session.Dispose(); err == nil {
		err = disposeErr
	}
	return err
}

// Dispose 可以在其他协程中调用，用于强制结束会话
//
func (session *ServerCommandSession) Dispose() error {
	var err error
	session.disposeOnce.Do(func() {
		Log.Infof("[%s] lifecycle dispose rtsp ServerCommandSession. session=%p", session.uniqueKey, session)
		session.setState(SessionStateTerminated)
		close(session.doneCh)

		e1 := session.conn.Close()
		var e2 error
		session.mu.Lock()
		if session.rtpConn != nil {
			e2 = session.rtpConn.Dispose()
		}
		session.mu.Unlock()
		err = nazaerrors.CombineErrors(e1, e2)
	})
	return err
}

func (session *ServerCommandSession) UniqueKey() string {
	return session.uniqueKey
}

func (session *ServerCommandSession) SessionId() string {
	return session.sessionId
}

func (session *ServerCommandSession) State() SessionState {
	return SessionState(session.state.Load())
}

func (session *ServerCommandSession) UpdateStat(intervalSec uint32) {
	session.sessionStat.UpdateStatWitchConn(session.conn, intervalSec)
}

func (session *ServerCommandSession) GetStat() base.StatRtspSession {
	session.mu.Lock()
	media := base.StatMedia{
		State:         session.State().String(),
		Ssrc:          session.sessionId,
		ClientRtpPort: session.clientRtpPort,
		ServerRtpPort: session.serverRtpPort,
		Fps:           session.option.Fps,
		Width:         session.width,
		Height:        session.height,
	}
	session.mu.Unlock()

	media.FrameCount = session.frameCount.Load()
	media.InvalidFrameCount = session.invalidFrameCount.Load()
	media.PacketCount = session.packetCount.Load()
	media.DroppedPacketCount = session.droppedPacketCount.Load()
	media.RtpBytesSum = session.rtpBytesSum.Load()
	media.RtpBitrate = int(session.rtpBitrate.Rate())

	return base.StatRtspSession{
		StatSession: session.sessionStat.GetStatWithConn(session.conn),
		Media:       media,
	}
}

// ---------------------------------------------------------------------------------------------------------------------

func (session *ServerCommandSession) runCmdLoop() error {
	for {
		switch session.State() {
		case SessionStateTerminated:
			return nil
		case SessionStateStreaming:
			return session.runStreamLoop()
		}

		req, err := session.readRequest()
		if err != nil {
			Log.Infof("[%s] read rtsp request failed. err=%+v", session.uniqueKey, err)
			return err
		}
		if err = session.handleRequest(req); err != nil {
			Log.Errorf("[%s] handle rtsp request failed. method=%s, err=%+v", session.uniqueKey, req.Method, err)
			return err
		}
	}
}

// handleRequest 握手阶段和推流阶段收到的请求都在这里处理
//
// 返回错误表示控制连接不可用，会话需要结束
//
func (session *ServerCommandSession) handleRequest(req *Request) error {
	Log.Debugf("[%s] read rtsp request. state=%s, method=%s, uri=%s, body=%d, raw=%q",
		session.uniqueKey, session.State(), req.Method, req.Uri, len(req.Body), req.Raw)

	switch req.Method {
	case MethodOptions:
		return session.handleOptions(req)
	case MethodDescribe:
		return session.handleDescribe(req)
	case MethodSetup:
		return session.handleSetup(req)
	case MethodPlay:
		return session.handlePlay(req)
	case MethodTeardown:
		return session.handleTeardown(req)
	}

	Log.Warnf("[%s] unknown rtsp method. method=%s", session.uniqueKey, req.Method)
	return session.write(PackResponseNotImplemented(req.CSeq()))
}

func (session *ServerCommandSession) handleOptions(req *Request) error {
	Log.Infof("[%s] < R OPTIONS", session.uniqueKey)
	return session.write(PackResponseOptions(req.CSeq()))
}

func (session *ServerCommandSession) handleDescribe(req *Request) error {
	Log.Infof("[%s] < R DESCRIBE", session.uniqueKey)

	width, height := session.frameSize()
	session.mu.Lock()
	session.width, session.height = width, height
	session.mu.Unlock()

	sdpBody := sdp.PackMjpeg(session.localIp, rtprtcp.RtpPacketTypeJpeg, width, height, session.option.Fps)
	return session.write(PackResponseDescribe(req.CSeq(), MakeContentBase(session.localIp, session.localPort), string(sdpBody)))
}

func (session *ServerCommandSession) handleSetup(req *Request) error {
	Log.Infof("[%s] < R SETUP", session.uniqueKey)

	if session.State() == SessionStateStreaming {
		Log.Warnf("[%s] SETUP not valid in this state. state=%s", session.uniqueKey, session.State())
		return session.write(PackResponseMethodNotValidInThisState(req.CSeq()))
	}

	transport := req.Header(HeaderTransport)
	clientPort, err := ParseClientPort(transport)
	if err != nil {
		Log.Warnf("[%s] invalid transport, terminate session. err=%+v", session.uniqueKey, err)
		session.setState(SessionStateTerminated)
		return session.write(PackResponseBadRequest(req.CSeq()))
	}

	if err = session.setupRtpConn(clientPort); err != nil {
		Log.Errorf("[%s] setup rtp conn failed, terminate session. err=%+v", session.uniqueKey, err)
		session.setState(SessionStateTerminated)
		return session.write(PackResponseInternalServerError(req.CSeq()))
	}

	session.setState(SessionStateReady)
	return session.write(PackResponseSetup(req.CSeq(), clientPort, session.serverRtpPort, session.sessionId))
}

func (session *ServerCommandSession) handlePlay(req *Request) error {
	Log.Infof("[%s] < R PLAY", session.uniqueKey)

	if session.State() != SessionStateReady {
		Log.Warnf("[%s] PLAY not valid in this state. state=%s", session.uniqueKey, session.State())
		return session.write(PackResponseMethodNotValidInThisState(req.CSeq()))
	}

	session.packer.ResetSeq(0)
	session.timestamp = 0
	session.qDetected = false

	rtpInfoUrl := MakeTrackUrl(session.localIp, session.localPort, sdp.DefaultControl)
	if err := session.write(PackResponsePlay(req.CSeq(), session.sessionId, rtpInfoUrl)); err != nil {
		return err
	}
	session.setState(SessionStateStreaming)
	return nil
}

func (session *ServerCommandSession) handleTeardown(req *Request) error {
	Log.Infof("[%s] < R TEARDOWN", session.uniqueKey)
	session.setState(SessionStateTerminated)
	return session.write(PackResponseTeardown(req.CSeq(), session.sessionId))
}

// setupRtpConn 分配服务端rtp端口，再次SETUP时如果客户端端口变化则重新分配
//
func (session *ServerCommandSession) setupRtpConn(clientPort int) error {
	session.mu.Lock()
	if session.rtpConn != nil {
		if session.clientRtpPort == clientPort {
			session.mu.Unlock()
			return nil
		}
		_ = session.rtpConn.Dispose()
		session.rtpConn = nil
	}
	session.mu.Unlock()

	var (
		conn *net.UDPConn
		port uint16
		err  error
	)
	if session.udpConnPool != nil {
		conn, port, err = session.udpConnPool.Acquire()
		if err != nil {
			return err
		}
	} else {
		conn, err = net.ListenUDP("udp", &net.UDPAddr{Port: 0})
		if err != nil {
			return err
		}
		port = uint16(conn.LocalAddr().(*net.UDPAddr).Port)
	}

	if session.option.UdpSendBufSize > 0 {
		if err = conn.SetWriteBuffer(session.option.UdpSendBufSize); err != nil {
			Log.Warnf("[%s] set udp write buffer failed. size=%d, err=%+v", session.uniqueKey, session.option.UdpSendBufSize, err)
		}
	}

	rtpConn, err := nazanet.NewUdpConnection(func(option *nazanet.UdpConnectionOption) {
		option.Conn = conn
		option.RAddr = net.JoinHostPort(session.remoteIp, strconv.Itoa(clientPort))
		option.MaxReadPacketSize = serverRtpReadPacketSize
	})
	if err != nil {
		_ = conn.Close()
		return err
	}

	session.sender = NewUdpSender(rtpConn, func(option *UdpSenderOption) {
		option.MaxRetries = session.option.SendMaxRetries
		option.BaseDelay = session.option.sendRetryBaseDelay()
	})

	session.mu.Lock()
	select {
	case <-session.doneCh:
		// 握手过程中被 Dispose
		session.mu.Unlock()
		_ = rtpConn.Dispose()
		return base.ErrRtspClosed
	default:
	}
	session.rtpConn = rtpConn
	session.clientRtpPort = clientPort
	session.serverRtpPort = int(port)
	session.mu.Unlock()

	Log.Infof("[%s] setup rtp. client=%s:%d, server port=%d", session.uniqueKey, session.remoteIp, clientPort, port)
	return nil
}

// frameSize SDP中的宽高，优先使用帧源当前的配置
func (session *ServerCommandSession) frameSize() (width, height int) {
	if p, ok := session.source.(base.IFrameSizeProvider); ok {
		if w, h, ok := p.FrameSize(); ok && w > 0 && h > 0 {
			return w, h
		}
	}
	return session.option.DefaultWidth, session.option.DefaultHeight
}

// readRequest 读取一个请求，读取期间使用握手超时，读完后清除读超时
//
// 推流期间没有读操作，残留的读超时到期后会让探测连接误判为断开
//
func (session *ServerCommandSession) readRequest() (*Request, error) {
	if session.option.HandshakeTimeoutMs > 0 {
		deadline := time.Now().Add(time.Duration(session.option.HandshakeTimeoutMs) * time.Millisecond)
		if err := session.rawConn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	req, err := ReadRequest(session.r, session.option.RequestMaxSize)
	if err != nil {
		return nil, err
	}
	if err = session.rawConn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	return req, nil
}

func (session *ServerCommandSession) write(resp string) error {
	_, err := session.conn.Write([]byte(resp))
	return err
}

func (session *ServerCommandSession) setState(state SessionState) {
	session.state.Store(int32(state))
}
