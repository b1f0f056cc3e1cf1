// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package sdp

import (
	"strings"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
)

// MjpegContext 拉流端关心的MJPEG媒体信息
//
type MjpegContext struct {
	PayloadType int
	ClockRate   int
	Control     string
	Width       int
	Height      int
	Fps         int
}

// ParseSdp2MjpegContext 取第一个JPEG视频媒体
//
func ParseSdp2MjpegContext(b []byte) (ctx MjpegContext, err error) {
	raw, err := ParseSdp2RawContext(b)
	if err != nil {
		return
	}
	for _, md := range raw.MediaDescList {
		if md.M.Media != "video" {
			continue
		}
		isJpeg := strings.EqualFold(md.ARtpMap.EncodingName, "JPEG") ||
			(md.ARtpMap.EncodingName == "" && md.M.PayloadType == rtprtcp.RtpPacketTypeJpeg)
		if !isJpeg {
			continue
		}

		ctx.PayloadType = md.M.PayloadType
		ctx.ClockRate = md.ARtpMap.ClockRate
		if ctx.ClockRate == 0 {
			ctx.ClockRate = rtprtcp.RtpClockRateJpeg
		}
		ctx.Control = md.AControl.Value
		if md.AFrameSize != nil {
			ctx.Width = md.AFrameSize.Width
			ctx.Height = md.AFrameSize.Height
		}
		ctx.Fps = md.AFrameRate
		return ctx, nil
	}
	return ctx, base.ErrSdp
}
