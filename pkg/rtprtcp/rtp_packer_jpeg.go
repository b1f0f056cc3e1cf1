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
	"github.com/q191201771/naza/pkg/bele"
)

// -----------------------------------
// rfc2435 3.1 JPEG header
// -----------------------------------
//
// 0                   1                   2                   3
// 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// | Type-specific |              Fragment Offset                  |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |      Type     |       Q       |     Width     |     Height    |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

const RtpJpegHeaderLength = 8

// JpegTypeBaseline rfc2435 4.1 type 0, 4:2:2
const JpegTypeBaseline uint8 = 0

type JpegHeader struct {
	TypeSpecific   uint8
	FragmentOffset uint32 // 24b
	Type           uint8
	Q              uint8
	Width          uint8 // 单位8像素
	Height         uint8 // 单位8像素
}

func (h *JpegHeader) PackTo(out []byte) {
	out[0] = h.TypeSpecific
	bele.BePutUint24(out[1:], h.FragmentOffset)
	out[4] = h.Type
	out[5] = h.Q
	out[6] = h.Width
	out[7] = h.Height
}

func ParseJpegHeader(b []byte) (h JpegHeader, err error) {
	if len(b) < RtpJpegHeaderLength {
		err = base.NewErrRtpRtcpShortBuffer(RtpJpegHeaderLength, len(b))
		return
	}
	h.TypeSpecific = b[0]
	h.FragmentOffset = bele.BeUint24(b[1:])
	h.Type = b[4]
	h.Q = b[5]
	h.Width = b[6]
	h.Height = b[7]
	return
}

// JpegFragment 一个RTP包的负载
//
// 第一个分片携带完整的JPEG头部前缀，Offset只计算扫描数据
//
type JpegFragment struct {
	Offset uint32
	Prefix []byte
	Data   []byte
	Last   bool
}

// MaxJpegPayloadSize 一个RTP包中，JPEG头之后最多可以放多少字节
//
func MaxJpegPayloadSize(maxPacketSize int) int {
	return maxPacketSize - RtpFixedHeaderLength - RtpJpegHeaderLength
}

// FragmentJpeg 将一帧切分为多个分片，每个分片回调一次
//
// 回调中的切片引用 jpeg 的内存，回调返回错误时停止切分并返回该错误
//
func FragmentJpeg(jpeg []byte, headerLen int, maxPayloadSize int, onFragment func(fragment JpegFragment) error) error {
	// 相等时第一个分片装不下任何扫描数据，和超出一样无法发送
	if headerLen >= maxPayloadSize {
		return base.NewErrJpegHeaderTooLong(headerLen, maxPayloadSize)
	}

	prefix := jpeg[:headerLen]
	scan := jpeg[headerLen:]
	offset := 0
	for offset < len(scan) {
		budget := maxPayloadSize - len(prefix)
		if budget <= 0 {
			return base.ErrRtpFragmentSize
		}

		remaining := len(scan) - offset
		fragment := JpegFragment{
			Offset: uint32(offset),
			Prefix: prefix,
			Last:   remaining <= budget,
		}
		chunk := budget
		if fragment.Last {
			chunk = remaining
		}
		fragment.Data = scan[offset : offset+chunk]

		if err := onFragment(fragment); err != nil {
			return err
		}

		offset += chunk
		prefix = nil
	}
	return nil
}

// ---------------------------------------------------------------------------------------------------------------------

type RtpPackerJpegOption struct {
	MaxPacketSize int // 包含rtp头
	FirstSeq      uint16
}

var defaultRtpPackerJpegOption = RtpPackerJpegOption{
	MaxPacketSize: 1400,
	FirstSeq:      0,
}

type ModRtpPackerJpegOption func(option *RtpPackerJpegOption)

// OnRtpPacket
//
// @param packet: 完整的rtp包，内存在回调结束后会被复用
//
type OnRtpPacket func(packet []byte, h RtpHeader) error

// RtpPackerJpeg 按RFC 2435打包，每个会话一个实例，内部复用一块发送缓存
//
type RtpPackerJpeg struct {
	option RtpPackerJpegOption
	ssrc   uint32

	seq     uint16
	scratch []byte
}

func NewRtpPackerJpeg(ssrc uint32, modOptions ...ModRtpPackerJpegOption) *RtpPackerJpeg {
	option := defaultRtpPackerJpegOption
	for _, fn := range modOptions {
		fn(&option)
	}

	return &RtpPackerJpeg{
		option:  option,
		ssrc:    ssrc,
		seq:     option.FirstSeq,
		scratch: make([]byte, option.MaxPacketSize),
	}
}

// Pack 打包一帧，每个rtp包回调一次，最后一个包的marker置1
//
// 每个回调成功返回的包消耗一个序号。回调返回错误时，该帧剩余的包不再发送
//
func (p *RtpPackerJpeg) Pack(jpeg []byte, info mjpeg.FrameInfo, q uint8, timestamp uint32, onPacket OnRtpPacket) error {
	maxPayloadSize := MaxJpegPayloadSize(p.option.MaxPacketSize)
	jh := JpegHeader{
		Type:   JpegTypeBaseline,
		Q:      q,
		Width:  uint8(info.Width / 8),
		Height: uint8(info.Height / 8),
	}

	return FragmentJpeg(jpeg, info.HeaderLen, maxPayloadSize, func(fragment JpegFragment) error {
		h := MakeDefaultRtpHeader()
		h.PacketType = RtpPacketTypeJpeg
		h.Seq = p.seq
		h.Timestamp = timestamp
		h.Ssrc = p.ssrc
		if fragment.Last {
			h.Mark = 1
		}
		jh.FragmentOffset = fragment.Offset

		n := PackJpegRtpPacketTo(p.scratch, &h, &jh, fragment)
		if err := onPacket(p.scratch[:n], h); err != nil {
			return err
		}
		p.seq++
		return nil
	})
}

func (p *RtpPackerJpeg) Seq() uint16 {
	return p.seq
}

// ResetSeq PLAY时序号从头开始
//
func (p *RtpPackerJpeg) ResetSeq(seq uint16) {
	p.seq = seq
}

func (p *RtpPackerJpeg) Ssrc() uint32 {
	return p.ssrc
}

// PackJpegRtpPacketTo 将rtp头、jpeg头和分片写入 out，返回写入的长度
//
// 调用方保证 out 足够长
//
func PackJpegRtpPacketTo(out []byte, h *RtpHeader, jh *JpegHeader, fragment JpegFragment) int {
	h.PackTo(out)
	jh.PackTo(out[RtpFixedHeaderLength:])
	n := RtpFixedHeaderLength + RtpJpegHeaderLength
	n += copy(out[n:], fragment.Prefix)
	n += copy(out[n:], fragment.Data)
	return n
}
