// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"path/filepath"

	"github.com/q191201771/lalmjpeg/pkg/base"
)

// ---------------------------------------------------------------------------------------------------------------------

type ILalMjpegServer interface {
	RunLoop() error
	Dispose()

	// StatLalMjpegInfo StatSession StatSource
	//
	// 获取状态的API，HTTP-API也是调用这些函数
	//
	StatLalMjpegInfo() base.LalMjpegInfo

	// StatSession 当前没有rtsp会话时返回nil
	StatSession() *base.StatRtspSession

	// StatSource 帧源不支持统计时返回nil
	StatSource() *base.StatSource
}

// NewLalMjpegServer 创建一个lalmjpeg server
//
// @param modOption: 定制化配置。可变参数，如果不关心，可以不填，具体字段见 Option
//
func NewLalMjpegServer(modOption ...ModOption) ILalMjpegServer {
	return NewServerManager(modOption...)
}

// ---------------------------------------------------------------------------------------------------------------------

type Option struct {
	// ConfFilename 配置文件。
	//
	// 注意，如果为空，内部会尝试从 DefaultConfFilenameList 读取默认配置文件
	//
	ConfFilename string

	// ConfRawContent 配置内容，不为空时优先使用，不再读取配置文件
	//
	ConfRawContent []byte

	// FrameSource 业务方自己提供的帧源，比如接入摄像头驱动
	//
	// 不为nil时，忽略配置文件中的 source 部分
	//
	FrameSource base.IFrameSource
}

var defaultOption = Option{
	ConfFilename: "",
}

type ModOption func(option *Option)

// DefaultConfFilenameList 没有指定配置文件时，按顺序作为优先级，找到第一个存在的并使用
//
var DefaultConfFilenameList = []string{
	filepath.FromSlash("lalmjpeg.conf.json"),
	filepath.FromSlash("./conf/lalmjpeg.conf.json"),
	filepath.FromSlash("../lalmjpeg.conf.json"),
	filepath.FromSlash("../conf/lalmjpeg.conf.json"),
	filepath.FromSlash("../../lalmjpeg.conf.json"),
	filepath.FromSlash("../../conf/lalmjpeg.conf.json"),
	filepath.FromSlash("lalmjpeg/conf/lalmjpeg.conf.json"),
}
