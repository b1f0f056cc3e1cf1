// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"time"

	"github.com/q191201771/naza/pkg/mock"
	"github.com/q191201771/naza/pkg/nazalog"
)

var Log = nazalog.GetGlobalLogger()

type IClock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Clock 用于发送重试的退避、帧间隔计算，单元测试中替换
var Clock IClock = mock.NewStdClock()

var (
	// debugLogMaxCount 逐包/逐帧的debug日志，每个会话最多打印的条数
	debugLogMaxCount = 5

	// serverRtpReadPacketSize 服务端rtp端口只发不收
	serverRtpReadPacketSize = 1500

	// clientRtpReadPacketSize 拉流端接收rtp的最大包长
	clientRtpReadPacketSize = 65536
)

// peekReadTimeout 没有非阻塞peek的平台上，探测控制连接时的读超时
var peekReadTimeout = time.Millisecond
