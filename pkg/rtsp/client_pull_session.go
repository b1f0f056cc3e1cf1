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
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/lalmjpeg/pkg/sdp"
	"github.com/q191201771/naza/pkg/bitrate"
	"github.com/q191201771/naza/pkg/connection"
	"github.com/q191201771/naza/pkg/nazaatomic"
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazanet"
)

const (
	pullResponseMaxSize = 65536
	defaultRtspPort     = 554
)

type PullSessionOption struct {
	PullTimeoutMs int // 从建连到收到PLAY响应的超时时间，0表示不超时

	UdpPortMin uint16 // 都为0时使用内核分配的临时端口
	UdpPortMax uint16
}

var defaultPullSessionOption = PullSessionOption{
	PullTimeoutMs: 10000,
}

type ModPullSessionOption func(option *PullSessionOption)

// PullSession 通过udp拉取MJPEG流，收到完整的JPEG后回调给上层
//
type PullSession struct {
	uniqueKey string
	option    PullSessionOption
	onFrame   rtprtcp.OnJpegFrame

	host        string
	rawUrl      string
	conn        connection.Connection
	r           *bufio.Reader
	cseq        int
	sessionId   string
	sdpCtx      sdp.MjpegContext
	sessionStat base.BasicSessionStat

	udpConnPool *nazanet.AvailUdpConnPool
	rtpConn     *nazanet.UdpConnection
	rtcpConn    *nazanet.UdpConnection
	unpacker    *rtprtcp.RtpUnpackerJpeg

	mu              sync.Mutex
	ssrc            uint32
	lastSeq         uint16
	hasLastSeq      bool
	packetCount     nazaatomic.Uint64
	lossCount       nazaatomic.Uint64
	frameCount      nazaatomic.Uint64
	rtpBytesSum     nazaatomic.Uint64
	rtpBitrate      bitrate.Bitrate
	lastFrameWidth  int
	lastFrameHeight int

	waitChan    chan error
	disposeOnce sync.Once
}

func NewPullSession(onFrame rtprtcp.OnJpegFrame, modOptions ...ModPullSessionOption) *PullSession {
	option := defaultPullSessionOption
	for _, fn := range modOptions {
		fn(&option)
	}

	uk := base.GenUkRtspPullSession()
	s := &PullSession{
		uniqueKey:   uk,
		option:      option,
		onFrame:     onFrame,
		sessionStat: base.NewBasicSessionStat(base.SessionBaseTypePullStr, uk, ""),
		rtpBitrate: bitrate.New(func(opt *bitrate.Option) {
			opt.WindowMs = 5000
		}),
		waitChan: make(chan error, 1),
	}
	if option.UdpPortMin != 0 && option.UdpPortMax > option.UdpPortMin {
		s.udpConnPool = nazanet.NewAvailUdpConnPool(option.UdpPortMin, option.UdpPortMax)
	}
	s.unpacker = rtprtcp.NewRtpUnpackerJpeg(s.onJpegFrame)

	Log.Infof("[%s] lifecycle new rtsp PullSession. session=%p", uk, s)
	return s
}

// Pull 阻塞直到收到PLAY的响应，或者超时、出错
//
// 成功返回后，媒体数据在内部协程中接收，使用 WaitChan 获取会话结束的通知
//
// @param rawUrl: e.g. rtsp://127.0.0.1:554/
//
func (session *PullSession) Pull(rawUrl string) error {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if session.option.PullTimeoutMs == 0 {
		ctx, cancel = context.WithCancel(context.Background())
	} else {
		ctx, cancel = context.WithTimeout(context.Background(), time.Duration(session.option.PullTimeoutMs)*time.Millisecond)
	}
	defer cancel()
	return session.pullContext(ctx, rawUrl)
}

// WaitChan 会话结束时收到结束的原因
//
func (session *PullSession) WaitChan() <-chan error {
	return session.waitChan
}

// Dispose 尽力发送TEARDOWN，然后关闭所有连接
//
func (session *PullSession) Dispose() error {
	return session.dispose(nil, true)
}

func (session *PullSession) UniqueKey() string {
	return session.uniqueKey
}

func (session *PullSession) Sdp() sdp.MjpegContext {
	return session.sdpCtx
}

func (session *PullSession) SessionId() string {
	return session.sessionId
}

func (session *PullSession) FrameCount() uint64 {
	return session.frameCount.Load()
}

func (session *PullSession) LossCount() uint64 {
	return session.lossCount.Load()
}

func (session *PullSession) UpdateStat(intervalSec uint32) {
	session.sessionStat.UpdateStat(intervalSec)
}

// IsAlive 距离上次调用，是否收到过RTP数据
//
// 第一次调用总是返回true
//
func (session *PullSession) IsAlive() (readAlive bool) {
	readAlive, _ = session.sessionStat.IsAlive()
	return
}

func (session *PullSession) GetStat() base.StatRtspSession {
	session.mu.Lock()
	width, height := session.lastFrameWidth, session.lastFrameHeight
	ssrc := session.ssrc
	dropped := uint64(session.unpacker.DroppedCount())
	session.mu.Unlock()

	return base.StatRtspSession{
		StatSession: session.sessionStat.GetStat(),
		Media: base.StatMedia{
			State:              "Receiving",
			Ssrc:               fmt.Sprintf("%08X", ssrc),
			Fps:                session.sdpCtx.Fps,
			Width:              width,
			Height:             height,
			FrameCount:         session.frameCount.Load(),
			InvalidFrameCount:  dropped,
			PacketCount:        session.packetCount.Load(),
			DroppedPacketCount: session.lossCount.Load(),
			RtpBytesSum:        session.rtpBytesSum.Load(),
			RtpBitrate:         int(session.rtpBitrate.Rate()),
		},
	}
}

// ---------------------------------------------------------------------------------------------------------------------

func (session *PullSession) pullContext(ctx context.Context, rawUrl string) error {
	errChan := make(chan error, 1)

	go func() {
		if err := session.connect(rawUrl); err != nil {
			errChan <- err
			return
		}
		if err := session.writeOptions(); err != nil {
			errChan <- err
			return
		}
		if err := session.writeDescribe(); err != nil {
			errChan <- err
			return
		}
		if err := session.writeSetup(); err != nil {
			errChan <- err
			return
		}
		if err := session.writePlay(); err != nil {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		_ = session.dispose(ctx.Err(), false)
		return ctx.Err()
	case err := <-errChan:
		if err != nil {
			_ = session.dispose(err, false)
			return err
		}
	}

	go session.runRtpLoop()
	go session.runCmdReadLoop()
	return nil
}

func (session *PullSession) connect(rawUrl string) error {
	u, err := url.Parse(rawUrl)
	if err != nil || u.Scheme != "rtsp" || u.Hostname() == "" {
		return fmt.Errorf("%w. invalid url=%s", base.ErrRtsp, rawUrl)
	}
	port := u.Port()
	if port == "" {
		port = strconv.Itoa(defaultRtspPort)
	}
	session.rawUrl = rawUrl
	session.host = u.Hostname()

	Log.Debugf("[%s] > tcp connect.", session.uniqueKey)
	conn, err := net.Dial("tcp", net.JoinHostPort(session.host, port))
	if err != nil {
		return err
	}
	session.mu.Lock()
	session.conn = connection.New(conn)
	session.mu.Unlock()
	session.r = bufio.NewReader(session.conn)
	session.sessionStat.SetRemoteAddr(conn.RemoteAddr().String())
	Log.Debugf("[%s] < tcp connect. laddr=%s, raddr=%s", session.uniqueKey, conn.LocalAddr().String(), conn.RemoteAddr().String())
	return nil
}

func (session *PullSession) writeOptions() error {
	_, err := session.writeCmdReadResp(MethodOptions, session.rawUrl, nil, "")
	return err
}

func (session *PullSession) writeDescribe() error {
	headers := map[string]string{
		HeaderAccept: HeaderAcceptApplicationSdp,
	}
	resp, err := session.writeCmdReadResp(MethodDescribe, session.rawUrl, headers, "")
	if err != nil {
		return err
	}

	session.sdpCtx, err = sdp.ParseSdp2MjpegContext(resp.Body)
	if err != nil {
		return err
	}
	if cb := resp.Header(HeaderContentBase); cb != "" {
		session.rawUrl = cb
	}
	Log.Infof("[%s] sdp. pt=%d, control=%s, width=%d, height=%d, fps=%d", session.uniqueKey,
		session.sdpCtx.PayloadType, session.sdpCtx.Control, session.sdpCtx.Width, session.sdpCtx.Height, session.sdpCtx.Fps)
	return nil
}

func (session *PullSession) writeSetup() error {
	rtpC, lRtpPort, rtcpC, lRtcpPort, err := session.acquireUdpConn()
	if err != nil {
		return err
	}

	headers := map[string]string{
		HeaderTransport: fmt.Sprintf(HeaderTransportClientPlayTmpl, lRtpPort, lRtcpPort),
	}
	resp, err := session.writeCmdReadResp(MethodSetup, session.setupUri(), headers, "")
	if err != nil {
		_ = rtpC.Close()
		_ = rtcpC.Close()
		return err
	}

	session.sessionId = strings.Split(resp.Header(HeaderSession), ";")[0]
	rRtpPort, err := ParseServerPort(resp.Header(HeaderTransport))
	if err != nil {
		_ = rtpC.Close()
		_ = rtcpC.Close()
		return err
	}
	Log.Debugf("[%s] init conn. lRtpPort=%d, lRtcpPort=%d, rRtpPort=%d", session.uniqueKey, lRtpPort, lRtcpPort, rRtpPort)

	rtpConn, err := nazanet.NewUdpConnection(func(option *nazanet.UdpConnectionOption) {
		option.Conn = rtpC
		option.RAddr = net.JoinHostPort(session.host, strconv.Itoa(rRtpPort))
		option.MaxReadPacketSize = clientRtpReadPacketSize
	})
	if err != nil {
		_ = rtpC.Close()
		_ = rtcpC.Close()
		return err
	}
	// 只占用端口，不收发rtcp
	rtcpConn, err := nazanet.NewUdpConnection(func(option *nazanet.UdpConnectionOption) {
		option.Conn = rtcpC
		option.MaxReadPacketSize = serverRtpReadPacketSize
	})
	if err != nil {
		_ = rtpConn.Dispose()
		_ = rtcpC.Close()
		return err
	}

	session.mu.Lock()
	session.rtpConn = rtpConn
	session.rtcpConn = rtcpConn
	session.mu.Unlock()
	return nil
}

func (session *PullSession) writePlay() error {
	_, err := session.writeCmdReadResp(MethodPlay, session.rawUrl, nil, "")
	return err
}

func (session *PullSession) writeCmd(method, uri string, headers map[string]string, body string) error {
	session.cseq++
	if headers == nil {
		headers = make(map[string]string)
	}
	headers[HeaderUserAgent] = base.LalMjpegRtspPullSessionUa
	if session.sessionId != "" {
		headers[HeaderSession] = session.sessionId
	}

	req := PackRequest(method, uri, session.cseq, headers, body)
	Log.Debugf("[%s] > write %s.", session.uniqueKey, method)
	_, err := session.conn.Write([]byte(req))
	return err
}

// @param headers 可以为nil
// @param body 可以为空
func (session *PullSession) writeCmdReadResp(method, uri string, headers map[string]string, body string) (*Response, error) {
	if err := session.writeCmd(method, uri, headers, body); err != nil {
		return nil, err
	}
	resp, err := ReadResponse(session.r, pullResponseMaxSize)
	if err != nil {
		return nil, err
	}
	Log.Debugf("[%s] < read response. version=%s, code=%d, reason=%s, body=%d",
		session.uniqueKey, resp.Version, resp.StatusCode, resp.Reason, len(resp.Body))

	if resp.StatusCode != StatusCodeOk {
		return resp, base.NewErrRtspUnexpectedStatus(method, resp.StatusCode)
	}
	return resp, nil
}

func (session *PullSession) setupUri() string {
	control := session.sdpCtx.Control
	if control == "" {
		return session.rawUrl
	}
	if strings.HasPrefix(control, "rtsp://") {
		return control
	}
	return strings.TrimSuffix(session.rawUrl, "/") + "/" + control
}

func (session *PullSession) acquireUdpConn() (rtpConn *net.UDPConn, rtpPort uint16, rtcpConn *net.UDPConn, rtcpPort uint16, err error) {
	if session.udpConnPool != nil {
		return session.udpConnPool.Acquire2()
	}

	if rtpConn, err = net.ListenUDP("udp", &net.UDPAddr{Port: 0}); err != nil {
		return
	}
	if rtcpConn, err = net.ListenUDP("udp", &net.UDPAddr{Port: 0}); err != nil {
		_ = rtpConn.Close()
		return
	}
	rtpPort = uint16(rtpConn.LocalAddr().(*net.UDPAddr).Port)
	rtcpPort = uint16(rtcpConn.LocalAddr().(*net.UDPAddr).Port)
	return
}

func (session *PullSession) runRtpLoop() {
	err := session.rtpConn.RunLoop(func(b []byte, raddr *net.UDPAddr, err error) bool {
		if err != nil {
			return false
		}
		session.handleRtpPacket(b)
		return true
	})
	_ = session.dispose(err, false)
}

// runCmdReadLoop 服务端不会主动发送数据，读到错误说明控制连接已经断开
func (session *PullSession) runCmdReadLoop() {
	for {
		resp, err := ReadResponse(session.r, pullResponseMaxSize)
		if err != nil {
			_ = session.dispose(err, false)
			return
		}
		Log.Debugf("[%s] < read response. code=%d", session.uniqueKey, resp.StatusCode)
	}
}

func (session *PullSession) handleRtpPacket(b []byte) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(b); err != nil {
		Log.Warnf("[%s] invalid rtp packet. len=%d, err=%+v", session.uniqueKey, len(b), err)
		return
	}
	if int(pkt.PayloadType) != session.sdpCtx.PayloadType {
		return
	}

	session.packetCount.Add(1)
	session.rtpBytesSum.Add(uint64(len(b)))
	session.rtpBitrate.Add(len(b))
	session.sessionStat.AddReadBytes(len(b))

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.hasLastSeq {
		if diff := rtprtcp.SubSeq(pkt.SequenceNumber, session.lastSeq); diff > 1 {
			session.lossCount.Add(uint64(diff - 1))
		}
	}
	session.ssrc = pkt.SSRC
	session.lastSeq = pkt.SequenceNumber
	session.hasLastSeq = true

	if err := session.unpacker.Feed(pkt.Payload, pkt.Marker, pkt.SequenceNumber, pkt.Timestamp); err != nil {
		Log.Debugf("[%s] feed rtp jpeg failed. seq=%d, err=%+v", session.uniqueKey, pkt.SequenceNumber, err)
	}
}

// onJpegFrame 调用时持有 mu
func (session *PullSession) onJpegFrame(frame []byte, timestamp uint32, jh rtprtcp.JpegHeader) {
	session.frameCount.Add(1)
	session.lastFrameWidth = int(jh.Width) * 8
	session.lastFrameHeight = int(jh.Height) * 8
	if session.onFrame != nil {
		session.onFrame(frame, timestamp, jh)
	}
}

func (session *PullSession) dispose(err error, teardown bool) error {
	var retErr error
	session.disposeOnce.Do(func() {
		Log.Infof("[%s] lifecycle dispose rtsp PullSession. session=%p, err=%+v", session.uniqueKey, session, err)

		session.mu.Lock()
		conn, rtpConn, rtcpConn := session.conn, session.rtpConn, session.rtcpConn
		session.mu.Unlock()

		var e1, e2, e3 error
		if conn != nil {
			if teardown && session.sessionId != "" {
				_ = session.writeCmd(MethodTeardown, session.rawUrl, nil, "")
			}
			e1 = conn.Close()
		}
		if rtpConn != nil {
			e2 = rtpConn.Dispose()
		}
		if rtcpConn != nil {
			e3 = rtcpConn.Dispose()
		}
		retErr = nazaerrors.CombineErrors(e1, e2, e3)

		session.waitChan <- err
	})
	return retErr
}
