// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "time"

// JpegFrame 一帧完整的JPEG图像（SOI到EOI）
//
type JpegFrame struct {
	Buf []byte

	// Width, Height 像素。为0时表示未知，由使用方从JPEG头中解析
	Width  int
	Height int

	CaptureTime time.Time
}

// IFrameSource 帧的来源，比如摄像头驱动、文件、测试图案
//
// AcquireFrame 不阻塞。当前没有可用帧时，返回 ErrFrameNotReady
// 取到的帧在 ReleaseFrame 之前一直有效，归还后不能再访问
//
type IFrameSource interface {
	AcquireFrame() (*JpegFrame, error)
	ReleaseFrame(frame *JpegFrame)
}

// IFrameSizeProvider 可选接口。FrameSource 知道当前分辨率时实现，用于SDP中的framesize
//
type IFrameSizeProvider interface {
	FrameSize() (width, height int, ok bool)
}
