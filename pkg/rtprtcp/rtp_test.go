// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp_test

import (
	"errors"
	"testing"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/naza/pkg/assert"
)

func TestCompareSeq(t *testing.T) {
	assert.Equal(t, 0, rtprtcp.CompareSeq(0, 0))
	assert.Equal(t, 0, rtprtcp.CompareSeq(1024, 1024))
	assert.Equal(t, 0, rtprtcp.CompareSeq(65535, 65535))

	assert.Equal(t, 1, rtprtcp.CompareSeq(1, 0))
	assert.Equal(t, 1, rtprtcp.CompareSeq(16383, 0))

	assert.Equal(t, -1, rtprtcp.CompareSeq(16384, 0))
	assert.Equal(t, -1, rtprtcp.CompareSeq(65534, 0))
	assert.Equal(t, -1, rtprtcp.CompareSeq(65535, 0))
	assert.Equal(t, -1, rtprtcp.CompareSeq(65534, 1))
	assert.Equal(t, -1, rtprtcp.CompareSeq(65535, 1))

	assert.Equal(t, -1, rtprtcp.CompareSeq(0, 1))
	assert.Equal(t, -1, rtprtcp.CompareSeq(0, 16383))

	assert.Equal(t, 1, rtprtcp.CompareSeq(0, 16384))
	assert.Equal(t, 1, rtprtcp.CompareSeq(0, 65534))
	assert.Equal(t, 1, rtprtcp.CompareSeq(0, 65535))
	assert.Equal(t, 1, rtprtcp.CompareSeq(1, 65534))
	assert.Equal(t, 1, rtprtcp.CompareSeq(1, 65535))
}

func TestSubSeq(t *testing.T) {
	assert.Equal(t, 0, rtprtcp.SubSeq(0, 0))
	assert.Equal(t, 0, rtprtcp.SubSeq(1024, 1024))
	assert.Equal(t, 0, rtprtcp.SubSeq(65535, 65535))

	assert.Equal(t, 1, rtprtcp.SubSeq(1, 0))
	assert.Equal(t, 16383, rtprtcp.SubSeq(16383, 0))

	assert.Equal(t, -49152, rtprtcp.SubSeq(16384, 0))
	assert.Equal(t, -2, rtprtcp.SubSeq(65534, 0))
	assert.Equal(t, -1, rtprtcp.SubSeq(65535, 0))
	assert.Equal(t, -3, rtprtcp.SubSeq(65534, 1))
	assert.Equal(t, -2, rtprtcp.SubSeq(65535, 1))

	assert.Equal(t, -1, rtprtcp.SubSeq(0, 1))
	assert.Equal(t, -16383, rtprtcp.SubSeq(0, 16383))

	assert.Equal(t, 49152, rtprtcp.SubSeq(0, 16384))
	assert.Equal(t, 2, rtprtcp.SubSeq(0, 65534))
	assert.Equal(t, 1, rtprtcp.SubSeq(0, 65535))
	assert.Equal(t, 3, rtprtcp.SubSeq(1, 65534))
	assert.Equal(t, 2, rtprtcp.SubSeq(1, 65535))
}

func TestRtpHeader_PackTo(t *testing.T) {
	golden := []byte{0x80, 0x9A, 0x12, 0x34, 0x01, 0x02, 0x03, 0x04, 0xCA, 0xFE, 0xBA, 0xBE}

	h := rtprtcp.MakeDefaultRtpHeader()
	h.Mark = 1
	h.PacketType = rtprtcp.RtpPacketTypeJpeg
	h.Seq = 0x1234
	h.Timestamp = 0x01020304
	h.Ssrc = 0xCAFEBABE
	out := make([]byte, rtprtcp.RtpFixedHeaderLength)
	h.PackTo(out)
	assert.Equal(t, golden, out)

	h2, err := rtprtcp.ParseRtpHeader(golden)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(2), h2.Version)
	assert.Equal(t, uint8(1), h2.Mark)
	assert.Equal(t, uint8(26), h2.PacketType)
	assert.Equal(t, uint16(0x1234), h2.Seq)
	assert.Equal(t, uint32(0x01020304), h2.Timestamp)
	assert.Equal(t, uint32(0xCAFEBABE), h2.Ssrc)
	assert.Equal(t, 12, h2.PayloadOffset())
}

func TestParseRtpHeader(t *testing.T) {
	// 1个CSRC，扩展头长度1
	b := []byte{
		0x91, 0x1A, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02,
		0xBE, 0xDE, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		0xAA,
	}
	h, err := rtprtcp.ParseRtpHeader(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(1), h.CsrcCount)
	assert.Equal(t, uint8(1), h.Extension)
	assert.Equal(t, 24, h.PayloadOffset())

	_, err = rtprtcp.ParseRtpHeader(b[:11])
	assert.Equal(t, true, errors.Is(err, base.ErrRtpRtcpShortBuffer))
	_, err = rtprtcp.ParseRtpHeader(b[:18])
	assert.Equal(t, true, errors.Is(err, base.ErrRtpRtcpShortBuffer))
}
