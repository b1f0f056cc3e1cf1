// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package sdp

import (
	"strconv"
	"strings"

	"github.com/q191201771/lalmjpeg/pkg/base"
)

type RawContext struct {
	SessionName   string
	ConnectionIp  string
	MediaDescList []MediaDesc
}

type MediaDesc struct {
	M          M
	ARtpMap    ARtpMap
	AControl   AControl
	AFrameSize *AFrameSize
	AFrameRate int
}

type M struct {
	Media       string
	PayloadType int
}

type ARtpMap struct {
	PayloadType        int
	EncodingName       string
	ClockRate          int
	EncodingParameters string
}

type AControl struct {
	Value string
}

type AFrameSize struct {
	PayloadType int
	Width       int
	Height      int
}

// ParseSdp2RawContext 例子见单元测试
//
// 行分隔符兼容\r\n和\n
//
func ParseSdp2RawContext(b []byte) (ctx RawContext, err error) {
	var md *MediaDesc

	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "s="):
			ctx.SessionName = strings.TrimPrefix(line, "s=")
		case strings.HasPrefix(line, "c="):
			items := strings.Split(line, " ")
			ctx.ConnectionIp = items[len(items)-1]
		case strings.HasPrefix(line, "m="):
			m, err := ParseM(line)
			if err != nil {
				return ctx, err
			}
			ctx.MediaDescList = append(ctx.MediaDescList, MediaDesc{M: m})
			md = &ctx.MediaDescList[len(ctx.MediaDescList)-1]
		case md == nil:
			// session级别的a=行，不关心
		case strings.HasPrefix(line, "a=rtpmap"):
			md.ARtpMap, err = ParseARtpMap(line)
			if err != nil {
				return ctx, err
			}
		case strings.HasPrefix(line, "a=control"):
			md.AControl, err = ParseAControl(line)
			if err != nil {
				return ctx, err
			}
		case strings.HasPrefix(line, "a=framesize"):
			fs, err := ParseAFrameSize(line)
			if err != nil {
				return ctx, err
			}
			md.AFrameSize = &fs
		case strings.HasPrefix(line, "a=framerate"):
			v := strings.TrimPrefix(line, "a=framerate:")
			// 可能是小数，比如29.97
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return ctx, base.ErrSdp
			}
			md.AFrameRate = int(f + 0.5)
		}
	}
	return ctx, nil
}

// ParseM e.g. m=video 0 RTP/AVP 26
//
func ParseM(s string) (ret M, err error) {
	ss := strings.TrimPrefix(s, "m=")
	items := strings.Split(ss, " ")
	if len(items) < 4 {
		return ret, base.ErrSdp
	}
	ret.Media = items[0]
	ret.PayloadType, err = strconv.Atoi(items[3])
	if err != nil {
		return ret, base.ErrSdp
	}
	return
}

// ParseARtpMap e.g. a=rtpmap:26 JPEG/90000
//
func ParseARtpMap(s string) (ret ARtpMap, err error) {
	// a=rtpmap:<payload type> <encoding name>/<clock rate>[/<encoding parameters>]
	items := strings.SplitN(s, ":", 2)
	if len(items) != 2 {
		return ret, base.ErrSdp
	}
	items = strings.SplitN(items[1], " ", 2)
	if len(items) != 2 {
		return ret, base.ErrSdp
	}
	if ret.PayloadType, err = strconv.Atoi(items[0]); err != nil {
		return ret, base.ErrSdp
	}
	items = strings.SplitN(items[1], "/", 3)
	switch len(items) {
	case 3:
		ret.EncodingParameters = items[2]
		fallthrough
	case 2:
		ret.EncodingName = items[0]
		if ret.ClockRate, err = strconv.Atoi(items[1]); err != nil {
			return ret, base.ErrSdp
		}
	default:
		return ret, base.ErrSdp
	}
	return
}

func ParseAControl(s string) (ret AControl, err error) {
	const prefix = "a=control:"
	if !strings.HasPrefix(s, prefix) {
		return ret, base.ErrSdp
	}
	ret.Value = strings.TrimPrefix(s, prefix)
	return
}

// ParseAFrameSize e.g. a=framesize:26 320-240
//
func ParseAFrameSize(s string) (ret AFrameSize, err error) {
	items := strings.SplitN(strings.TrimPrefix(s, "a=framesize:"), " ", 2)
	if len(items) != 2 {
		return ret, base.ErrSdp
	}
	if ret.PayloadType, err = strconv.Atoi(items[0]); err != nil {
		return ret, base.ErrSdp
	}
	wh := strings.SplitN(items[1], "-", 2)
	if len(wh) != 2 {
		return ret, base.ErrSdp
	}
	if ret.Width, err = strconv.Atoi(wh[0]); err != nil {
		return ret, base.ErrSdp
	}
	if ret.Height, err = strconv.Atoi(wh[1]); err != nil {
		return ret, base.ErrSdp
	}
	return
}
