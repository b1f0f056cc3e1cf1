// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"runtime"
	"time"

	"github.com/q191201771/naza/pkg/nazaatomic"
)

// IPacketWriter 发送一个udp包，nazanet.UdpConnection 满足该接口
//
type IPacketWriter interface {
	Write(b []byte) error
}

type UdpSenderOption struct {
	MaxRetries int           // 包含第一次发送在内的最大尝试次数
	BaseDelay  time.Duration // 第n次重试前等待 BaseDelay << n
}

var defaultUdpSenderOption = UdpSenderOption{
	MaxRetries: 5,
	BaseDelay:  5 * time.Millisecond,
}

type ModUdpSenderOption func(option *UdpSenderOption)

// UdpSender 内核发送缓冲满（ENOBUFS/ENOMEM）时退避重试，其他错误直接返回
//
type UdpSender struct {
	option UdpSenderOption
	writer IPacketWriter

	retryCount   nazaatomic.Uint64
	droppedCount nazaatomic.Uint64
}

func NewUdpSender(writer IPacketWriter, modOptions ...ModUdpSenderOption) *UdpSender {
	option := defaultUdpSenderOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.MaxRetries < 1 {
		option.MaxRetries = 1
	}
	return &UdpSender{
		option: option,
		writer: writer,
	}
}

// Send
//
// @return dropped: 重试次数用完仍然失败，包被丢弃，此时err为nil，调用方继续发送后续的包
// @return err:     不可重试的发送错误
//
func (s *UdpSender) Send(b []byte) (dropped bool, err error) {
	for retry := 0; retry < s.option.MaxRetries; retry++ {
		err = s.writer.Write(b)
		if err == nil {
			return false, nil
		}
		if !isNoBufferSpace(err) {
			return false, err
		}

		if retry+1 < s.option.MaxRetries {
			s.retryCount.Add(1)
			Clock.Sleep(s.option.BaseDelay << uint(retry))
			runtime.Gosched()
		}
	}

	s.droppedCount.Add(1)
	return true, nil
}

func (s *UdpSender) RetryCount() uint64 {
	return s.retryCount.Load()
}

func (s *UdpSender) DroppedCount() uint64 {
	return s.droppedCount.Load()
}
