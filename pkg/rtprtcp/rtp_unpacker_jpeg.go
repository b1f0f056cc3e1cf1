// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/mjpeg"
)

// OnJpegFrame
//
// @param frame: 完整的一帧JPEG，内存在回调结束后会被复用
//
type OnJpegFrame func(frame []byte, timestamp uint32, jh JpegHeader)

// RtpUnpackerJpeg 将RFC 2435的分片重新组成完整的JPEG
//
// 只支持第一个分片内携带完整JPEG头部前缀的流（与 RtpPackerJpeg 对应）
// 任意一个分片丢失或乱序，整帧丢弃
//
type RtpUnpackerJpeg struct {
	onFrame OnJpegFrame

	buf       []byte
	headerLen int
	inFrame   bool
	timestamp uint32
	lastSeq   uint16
	jh        JpegHeader

	frameCount   int
	droppedCount int
}

func NewRtpUnpackerJpeg(onFrame OnJpegFrame) *RtpUnpackerJpeg {
	return &RtpUnpackerJpeg{
		onFrame: onFrame,
	}
}

// Feed
//
// @param payload: rtp负载，从jpeg头开始
//
func (u *RtpUnpackerJpeg) Feed(payload []byte, mark bool, seq uint16, timestamp uint32) error {
	jh, err := ParseJpegHeader(payload)
	if err != nil {
		u.drop()
		return err
	}
	fragment := payload[RtpJpegHeaderLength:]

	if jh.FragmentOffset == 0 {
		if u.inFrame {
			u.drop()
		}
		u.buf = append(u.buf[:0], fragment...)
		u.headerLen, err = mjpeg.FindScanDataOffset(u.buf)
		if err != nil {
			u.droppedCount++
			return err
		}
		u.inFrame = true
		u.timestamp = timestamp
		u.jh = jh
	} else {
		if !u.inFrame ||
			timestamp != u.timestamp ||
			seq != u.lastSeq+1 ||
			int(jh.FragmentOffset) != len(u.buf)-u.headerLen {
			u.drop()
			return base.ErrRtpJpegReassemble
		}
		u.buf = append(u.buf, fragment...)
	}
	u.lastSeq = seq

	if mark {
		u.inFrame = false
		u.frameCount++
		u.onFrame(u.buf, u.timestamp, u.jh)
	}
	return nil
}

func (u *RtpUnpackerJpeg) FrameCount() int {
	return u.frameCount
}

func (u *RtpUnpackerJpeg) DroppedCount() int {
	return u.droppedCount
}

func (u *RtpUnpackerJpeg) drop() {
	if u.inFrame {
		u.droppedCount++
	}
	u.inFrame = false
}
