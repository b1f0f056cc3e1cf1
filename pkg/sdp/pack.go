// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package sdp

import (
	"fmt"

	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
)

// DefaultControl a=control的值，也是PLAY响应RTP-Info中的track
const DefaultControl = "track1"

// PackMjpeg 生成只有一路MJPEG视频的sdp
//
// @param ip: 填入o=和c=行，一般为服务端控制连接的本地地址
//
func PackMjpeg(ip string, payloadType int, width, height int, fps int) []byte {
	tmpl := "v=0\r\n" +
		"o=- 0 0 IN IP4 %s\r\n" +
		"s=ESP32 MJPEG\r\n" +
		"c=IN IP4 %s\r\n" +
		"t=0 0\r\n" +
		"m=video 0 RTP/AVP %d\r\n" +
		"a=control:%s\r\n" +
		"a=rtpmap:%d JPEG/%d\r\n" +
		"a=framesize:%d %d-%d\r\n" +
		"a=framerate:%d\r\n"
	return []byte(fmt.Sprintf(tmpl,
		ip,
		ip,
		payloadType,
		DefaultControl,
		payloadType, rtprtcp.RtpClockRateJpeg,
		payloadType, width, height,
		fps))
}
