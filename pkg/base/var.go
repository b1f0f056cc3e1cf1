// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// ----- rtsp --------------------
var (
	// RtspServerName 所有rtsp response中Server头的值
	RtspServerName string
)

// ----- stream --------------------
var (
	// MjpegMaxDimension RFC 2435的宽高字段以8像素为单位，单字节，最大2040
	MjpegMaxDimension = 2040

	// RtpClockRate MJPEG RTP时间戳的时钟频率
	RtpClockRate = 90000
)
