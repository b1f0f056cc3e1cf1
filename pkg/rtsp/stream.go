// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/mjpeg"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/naza/pkg/nazabytes"
)

// runStreamLoop 按固定帧率发送，直到客户端断开、TEARDOWN、发送出错或者会话被关闭
//
func (session *ServerCommandSession) runStreamLoop() error {
	fps := session.option.Fps
	period := time.Second / time.Duration(fps)
	quantum := uint32(base.RtpClockRate / fps)

	Log.Infof("[%s] start streaming. fps=%d, period=%s, quantum=%d, max packet=%d",
		session.uniqueKey, fps, period, quantum, session.option.MaxPacketSize)

	next := Clock.Now()
	for {
		alive, err := session.checkControlConn()
		if err != nil {
			return err
		}
		if session.State() != SessionStateStreaming {
			return nil
		}
		if !alive {
			Log.Infof("[%s] client disconnected.", session.uniqueKey)
			return nil
		}

		frame, err := session.source.AcquireFrame()
		if err != nil {
			if errors.Is(err, base.ErrFrameSourceClosed) {
				Log.Warnf("[%s] frame source closed, stop streaming.", session.uniqueKey)
				return err
			}
			// 没有新的帧，不推进计数器，稍后重试
			if !session.sleep(session.option.frameRetryInterval()) {
				return nil
			}
			continue
		}

		err = session.sendFrame(frame)
		session.source.ReleaseFrame(frame)
		if err != nil {
			Log.Errorf("[%s] send frame failed, stop streaming. err=%+v", session.uniqueKey, err)
			return err
		}

		if n := session.frameCount.Load(); session.option.StatIntervalFrames > 0 && n > 0 && n%uint64(session.option.StatIntervalFrames) == 0 {
			session.logStat()
		}

		now := Clock.Now()
		next = nextDeadline(next, now, period)
		if !session.sleep(next.Sub(now)) {
			return nil
		}

		session.timestamp += quantum
	}
}

// checkControlConn 检查控制连接，对端有新的请求时读取并处理一个请求
//
// @return alive: false表示对端已经断开或者发送了TEARDOWN
//
func (session *ServerCommandSession) checkControlConn() (alive bool, err error) {
	pending := session.r.Buffered() > 0 || session.cr.Buffered() > 0
	if !pending {
		pending, alive = peekConn(session.rawConn, session.cr)
		if !alive {
			return false, nil
		}
	}
	if !pending {
		return true, nil
	}

	req, err := session.readRequest()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	if err = session.handleRequest(req); err != nil {
		return false, err
	}
	return session.State() != SessionStateTerminated, nil
}

// sendFrame 无效的帧被丢弃，只有发送错误才返回错误
//
func (session *ServerCommandSession) sendFrame(frame *base.JpegFrame) error {
	info, err := mjpeg.Analyze(frame.Buf, frame.Width, frame.Height)
	if err != nil {
		session.dropFrame(frame, err)
		return nil
	}

	if !session.qDetected {
		session.q = mjpeg.CalcQ(frame.Buf[:info.HeaderLen])
		session.qDetected = true
		session.mu.Lock()
		session.width, session.height = info.Width, info.Height
		session.mu.Unlock()
		Log.Infof("[%s] jpeg header. q=%d, header len=%d, width=%d, height=%d",
			session.uniqueKey, session.q, info.HeaderLen, info.Width, info.Height)
	}

	session.sendErr = nil
	err = session.packer.Pack(frame.Buf, info, session.q, session.timestamp, session.onRtpPacket)
	if session.sendErr != nil {
		return session.sendErr
	}
	if err != nil {
		// 头部过长或者分片计算失败，放弃该帧剩余的分片
		session.dropFrame(frame, err)
		return nil
	}
	session.frameCount.Add(1)
	return nil
}

func (session *ServerCommandSession) onRtpPacket(packet []byte, h rtprtcp.RtpHeader) error {
	dropped, err := session.sender.Send(packet)
	if err != nil {
		session.sendErr = err
		return err
	}
	if dropped {
		// 序号依然被消耗，接收端可以感知到丢包
		session.droppedPacketCount.Add(1)
		Log.Warnf("[%s] drop rtp packet after retries. seq=%d, len=%d", session.uniqueKey, h.Seq, len(packet))
		return nil
	}

	session.packetCount.Add(1)
	session.rtpBytesSum.Add(uint64(len(packet)))
	session.rtpBitrate.Add(len(packet))
	session.sessionStat.AddWriteBytes(len(packet))

	if session.debugLogCount < debugLogMaxCount {
		session.debugLogCount++
		Log.Debugf("[%s] send rtp packet. seq=%d, ts=%d, mark=%d, len=%d\n%s",
			session.uniqueKey, h.Seq, h.Timestamp, h.Mark, len(packet), hex.Dump(nazabytes.Prefix(packet, 32)))
	}
	return nil
}

func (session *ServerCommandSession) dropFrame(frame *base.JpegFrame, err error) {
	n := session.invalidFrameCount.Add(1)
	if n <= uint64(debugLogMaxCount) || n%100 == 0 {
		Log.Warnf("[%s] drop invalid frame. len=%d, count=%d, err=%+v", session.uniqueKey, len(frame.Buf), n, err)
	}
}

func (session *ServerCommandSession) logStat() {
	Log.Infof("[%s] stat. frame=%d, invalid=%d, packet=%d, dropped=%d, retry=%d, bytes=%d, bitrate=%dkbit/s",
		session.uniqueKey, session.frameCount.Load(), session.invalidFrameCount.Load(), session.packetCount.Load(),
		session.droppedPacketCount.Load(), session.sender.RetryCount(), session.rtpBytesSum.Load(), int(session.rtpBitrate.Rate()))
}

// sleep 返回false表示会话已经被关闭
func (session *ServerCommandSession) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-session.doneCh:
			return false
		default:
			return true
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-session.doneCh:
		return false
	}
}

// nextDeadline 固定节拍，下一次唤醒时间从上一次的唤醒时间推算，而不是从本次处理结束的时间
//
// 落后超过一个周期时，以当前时间重新对齐，不追赶
//
func nextDeadline(prev time.Time, now time.Time, period time.Duration) time.Time {
	next := prev.Add(period)
	if now.Sub(next) > period {
		return now
	}
	return next
}
