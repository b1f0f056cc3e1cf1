// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp_test

import (
	"bytes"
	"errors"
	"testing"

	pionrtp "github.com/pion/rtp"
	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/mjpeg"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/naza/pkg/assert"
)

// makeFrame 构造一个头部前缀长度为headerLen、扫描数据长度为scanLen的帧
func makeFrame(headerLen, scanLen int) []byte {
	b := make([]byte, headerLen+scanLen)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xDB
	b[headerLen-4] = 0xFF
	b[headerLen-3] = 0xDA
	for i := headerLen; i < len(b); i++ {
		b[i] = byte(i % 251)
	}
	return b
}

func TestJpegHeader(t *testing.T) {
	golden := []byte{0x00, 0x01, 0x02, 0x03, 0x00, 0xFF, 0x28, 0x1E}
	jh := rtprtcp.JpegHeader{
		FragmentOffset: 0x010203,
		Type:           rtprtcp.JpegTypeBaseline,
		Q:              255,
		Width:          320 / 8,
		Height:         240 / 8,
	}
	out := make([]byte, rtprtcp.RtpJpegHeaderLength)
	jh.PackTo(out)
	assert.Equal(t, golden, out)

	jh2, err := rtprtcp.ParseJpegHeader(golden)
	assert.Equal(t, nil, err)
	assert.Equal(t, jh, jh2)

	_, err = rtprtcp.ParseJpegHeader(golden[:7])
	assert.Equal(t, true, errors.Is(err, base.ErrRtpRtcpShortBuffer))
}

func TestFragmentJpeg(t *testing.T) {
	frame := makeFrame(600, 5000)
	maxPayload := rtprtcp.MaxJpegPayloadSize(1400)
	assert.Equal(t, 1380, maxPayload)

	var offsets []uint32
	var lasts []bool
	var scan []byte
	err := rtprtcp.FragmentJpeg(frame, 600, maxPayload, func(fragment rtprtcp.JpegFragment) error {
		offsets = append(offsets, fragment.Offset)
		lasts = append(lasts, fragment.Last)
		assert.Equal(t, true, len(fragment.Prefix)+len(fragment.Data) <= maxPayload)
		scan = append(scan, fragment.Data...)
		return nil
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, []uint32{0, 780, 2160, 3540, 4920}, offsets)
	assert.Equal(t, []bool{false, false, false, false, true}, lasts)
	assert.Equal(t, frame[600:], scan)
}

func TestFragmentJpeg_ExactFit(t *testing.T) {
	// 剩余字节恰好等于一个包的容量时，该包就是最后一个包
	maxPayload := 100
	frame := makeFrame(20, 80+100)

	var lasts []bool
	err := rtprtcp.FragmentJpeg(frame, 20, maxPayload, func(fragment rtprtcp.JpegFragment) error {
		lasts = append(lasts, fragment.Last)
		return nil
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, []bool{false, true}, lasts)

	// 整帧放得下一个包
	lasts = lasts[:0]
	frame = makeFrame(20, 80)
	err = rtprtcp.FragmentJpeg(frame, 20, maxPayload, func(fragment rtprtcp.JpegFragment) error {
		lasts = append(lasts, fragment.Last)
		assert.Equal(t, 20, len(fragment.Prefix))
		return nil
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, []bool{true}, lasts)
}

func TestFragmentJpeg_HeaderTooLong(t *testing.T) {
	frame := makeFrame(100, 10)
	called := false
	err := rtprtcp.FragmentJpeg(frame, 100, 100, func(fragment rtprtcp.JpegFragment) error {
		called = true
		return nil
	})
	assert.Equal(t, true, errors.Is(err, base.ErrJpegHeaderTooLong))
	assert.Equal(t, false, called)

	// 超出
	err = rtprtcp.FragmentJpeg(makeFrame(101, 10), 101, 100, func(fragment rtprtcp.JpegFragment) error {
		called = true
		return nil
	})
	assert.Equal(t, true, errors.Is(err, base.ErrJpegHeaderTooLong))
	assert.Equal(t, false, called)

	// 比预算少一个字节时，第一个分片只带一个字节的扫描数据
	var sizes []int
	err = rtprtcp.FragmentJpeg(makeFrame(99, 3), 99, 100, func(fragment rtprtcp.JpegFragment) error {
		sizes = append(sizes, len(fragment.Data))
		return nil
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, []int{1, 2}, sizes)
}

func TestFragmentJpeg_Abort(t *testing.T) {
	frame := makeFrame(20, 1000)
	errStop := errors.New("stop")
	n := 0
	err := rtprtcp.FragmentJpeg(frame, 20, 100, func(fragment rtprtcp.JpegFragment) error {
		n++
		if n == 2 {
			return errStop
		}
		return nil
	})
	assert.Equal(t, errStop, err)
	assert.Equal(t, 2, n)
}

func TestRtpPackerJpeg(t *testing.T) {
	packer := rtprtcp.NewRtpPackerJpeg(0xCAFEBABE, func(option *rtprtcp.RtpPackerJpegOption) {
		option.MaxPacketSize = 200
		option.FirstSeq = 65534
	})

	frame := makeFrame(40, 1000)
	info, err := mjpeg.Analyze(frame, 320, 240)
	assert.Equal(t, nil, err)

	var packets [][]byte
	onPacket := func(packet []byte, h rtprtcp.RtpHeader) error {
		assert.Equal(t, true, len(packet) <= 200)
		packets = append(packets, append([]byte(nil), packet...))
		return nil
	}

	// 两帧，验证序号跨帧连续并且翻转
	err = packer.Pack(frame, info, 255, 0, onPacket)
	assert.Equal(t, nil, err)
	perFrame := len(packets)
	err = packer.Pack(frame, info, 255, 9000, onPacket)
	assert.Equal(t, nil, err)
	assert.Equal(t, perFrame*2, len(packets))

	var scan []byte
	var prevSeq uint16
	markCount := 0
	for i, b := range packets {
		var pkt pionrtp.Packet
		err := pkt.Unmarshal(b)
		assert.Equal(t, nil, err)
		assert.Equal(t, uint8(2), pkt.Version)
		assert.Equal(t, uint8(26), pkt.PayloadType)
		assert.Equal(t, uint32(0xCAFEBABE), pkt.SSRC)
		if i > 0 {
			assert.Equal(t, prevSeq+1, pkt.SequenceNumber)
		} else {
			assert.Equal(t, uint16(65534), pkt.SequenceNumber)
		}
		prevSeq = pkt.SequenceNumber

		if i < perFrame {
			assert.Equal(t, uint32(0), pkt.Timestamp)
			jh, err := rtprtcp.ParseJpegHeader(pkt.Payload)
			assert.Equal(t, nil, err)
			assert.Equal(t, uint8(255), jh.Q)
			assert.Equal(t, uint8(40), jh.Width)
			assert.Equal(t, uint8(30), jh.Height)
			assert.Equal(t, uint32(len(scan)), jh.FragmentOffset)
			payload := pkt.Payload[rtprtcp.RtpJpegHeaderLength:]
			if i == 0 {
				payload = payload[info.HeaderLen:]
			}
			scan = append(scan, payload...)
			if pkt.Marker {
				markCount++
				assert.Equal(t, perFrame-1, i)
			}
		} else {
			assert.Equal(t, uint32(9000), pkt.Timestamp)
		}
	}
	assert.Equal(t, 1, markCount)
	assert.Equal(t, frame[info.HeaderLen:], scan)
	assert.Equal(t, uint16(65534+perFrame*2-65536), packer.Seq())

	packer.ResetSeq(0)
	assert.Equal(t, uint16(0), packer.Seq())
}

func TestRtpPackerJpeg_CallbackError(t *testing.T) {
	packer := rtprtcp.NewRtpPackerJpeg(1, func(option *rtprtcp.RtpPackerJpegOption) {
		option.MaxPacketSize = 100
	})
	frame := makeFrame(20, 500)
	info, err := mjpeg.Analyze(frame, 8, 8)
	assert.Equal(t, nil, err)

	errFatal := errors.New("fatal")
	n := 0
	err = packer.Pack(frame, info, 0, 0, func(packet []byte, h rtprtcp.RtpHeader) error {
		n++
		if n == 3 {
			return errFatal
		}
		return nil
	})
	assert.Equal(t, errFatal, err)
	assert.Equal(t, uint16(2), packer.Seq())
}

func TestRtpUnpackerJpeg(t *testing.T) {
	frame := makeFrame(64, 3000)
	info, err := mjpeg.Analyze(frame, 64, 64)
	assert.Equal(t, nil, err)

	packer := rtprtcp.NewRtpPackerJpeg(7, func(option *rtprtcp.RtpPackerJpegOption) {
		option.MaxPacketSize = 500
	})
	var packets [][]byte
	_ = packer.Pack(frame, info, 255, 3000, func(packet []byte, h rtprtcp.RtpHeader) error {
		packets = append(packets, append([]byte(nil), packet...))
		return nil
	})

	var got [][]byte
	unpacker := rtprtcp.NewRtpUnpackerJpeg(func(b []byte, timestamp uint32, jh rtprtcp.JpegHeader) {
		assert.Equal(t, uint32(3000), timestamp)
		assert.Equal(t, uint8(8), jh.Width)
		got = append(got, append([]byte(nil), b...))
	})
	feed := func(b []byte) error {
		h, err := rtprtcp.ParseRtpHeader(b)
		assert.Equal(t, nil, err)
		return unpacker.Feed(b[h.PayloadOffset():], h.Mark == 1, h.Seq, h.Timestamp)
	}

	for _, p := range packets {
		assert.Equal(t, nil, feed(p))
	}
	assert.Equal(t, 1, len(got))
	assert.Equal(t, true, bytes.Equal(frame, got[0]))

	// 丢失中间一个包，整帧丢弃
	for i, p := range packets {
		if i == 1 {
			continue
		}
		_ = feed(p)
	}
	assert.Equal(t, 1, len(got))
	assert.Equal(t, 1, unpacker.DroppedCount())
	assert.Equal(t, 1, unpacker.FrameCount())
}
