// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"
)

const (
	SourceTypeTestPattern = "test_pattern"
	SourceTypeFile        = "file"
)

type Config struct {
	ConfVersion   string         `json:"conf_version"`
	ServerId      string         `json:"server_id"`
	RtspConfig    RtspConfig     `json:"rtsp"`
	StreamConfig  StreamConfig   `json:"stream"`
	SourceConfig  SourceConfig   `json:"source"`
	HttpApiConfig HttpApiConfig  `json:"http_api"`
	PprofConfig   PprofConfig    `json:"pprof"`
	LogConfig     nazalog.Option `json:"log"`
}

type RtspConfig struct {
	Addr                  string `json:"addr"`
	HandshakeTimeoutMs    int    `json:"handshake_timeout_ms"`
	RequestMaxSize        int    `json:"request_max_size"`
	Ssrc                  uint32 `json:"ssrc"`
	UdpPortMin            uint16 `json:"udp_port_min"`
	UdpPortMax            uint16 `json:"udp_port_max"`
	UdpSendBufSize        int    `json:"udp_send_buf_size"`
	ListenRetryIntervalMs int    `json:"listen_retry_interval_ms"`
}

type StreamConfig struct {
	Fps                  int `json:"fps"`
	MaxPacketSize        int `json:"max_packet_size"`
	SendMaxRetries       int `json:"send_max_retries"`
	SendRetryBaseDelayMs int `json:"send_retry_base_delay_ms"`
	FrameRetryIntervalMs int `json:"frame_retry_interval_ms"`
	StatIntervalFrames   int `json:"stat_interval_frames"`
}

type SourceConfig struct {
	Type       string `json:"type"`
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Quality    int    `json:"quality"`
	CaptureFps int    `json:"capture_fps"`
	Loop       bool   `json:"loop"`
}

type HttpApiConfig struct {
	Enable bool   `json:"enable"`
	Addr   string `json:"addr"`
}

type PprofConfig struct {
	Enable bool   `json:"enable"`
	Addr   string `json:"addr"`
}

// LoadConf 解析配置内容，配置中没有的字段使用默认值
//
func LoadConf(rawContent []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, err
	}

	if !j.Exist("server_id") {
		config.ServerId = "1"
	}

	// rtsp
	if !j.Exist("rtsp.addr") {
		config.RtspConfig.Addr = ":554"
	}
	if !j.Exist("rtsp.handshake_timeout_ms") {
		config.RtspConfig.HandshakeTimeoutMs = 30000
	}
	if !j.Exist("rtsp.request_max_size") {
		config.RtspConfig.RequestMaxSize = 4096
	}
	if !j.Exist("rtsp.udp_send_buf_size") {
		config.RtspConfig.UdpSendBufSize = 65536
	}
	if !j.Exist("rtsp.listen_retry_interval_ms") {
		config.RtspConfig.ListenRetryIntervalMs = 1000
	}

	// stream
	if !j.Exist("stream.fps") {
		config.StreamConfig.Fps = 10
	}
	if !j.Exist("stream.max_packet_size") {
		config.StreamConfig.MaxPacketSize = 1400
	}
	if !j.Exist("stream.send_max_retries") {
		config.StreamConfig.SendMaxRetries = 5
	}
	if !j.Exist("stream.send_retry_base_delay_ms") {
		config.StreamConfig.SendRetryBaseDelayMs = 5
	}
	if !j.Exist("stream.frame_retry_interval_ms") {
		config.StreamConfig.FrameRetryIntervalMs = 100
	}
	if !j.Exist("stream.stat_interval_frames") {
		config.StreamConfig.StatIntervalFrames = 100
	}

	// source
	if !j.Exist("source.type") {
		config.SourceConfig.Type = SourceTypeTestPattern
	}
	if !j.Exist("source.width") {
		config.SourceConfig.Width = 320
	}
	if !j.Exist("source.height") {
		config.SourceConfig.Height = 240
	}
	if !j.Exist("source.quality") {
		config.SourceConfig.Quality = 80
	}
	if !j.Exist("source.capture_fps") {
		config.SourceConfig.CaptureFps = config.StreamConfig.Fps
	}
	if !j.Exist("source.loop") {
		config.SourceConfig.Loop = true
	}

	// http_api, pprof
	if !j.Exist("http_api.addr") {
		config.HttpApiConfig.Addr = ":8083"
	}
	if !j.Exist("pprof.addr") {
		config.PprofConfig.Addr = ":8084"
	}

	// log
	if !j.Exist("log.level") {
		config.LogConfig.Level = nazalog.LevelInfo
	}
	if !j.Exist("log.filename") {
		config.LogConfig.Filename = "./logs/lalmjpeg.log"
	}
	if !j.Exist("log.is_to_stdout") {
		config.LogConfig.IsToStdout = true
	}
	if !j.Exist("log.is_rotate_daily") {
		config.LogConfig.IsRotateDaily = true
	}
	if !j.Exist("log.short_file_flag") {
		config.LogConfig.ShortFileFlag = true
	}
	if !j.Exist("log.timestamp_flag") {
		config.LogConfig.TimestampFlag = true
	}
	if !j.Exist("log.timestamp_with_ms_flag") {
		config.LogConfig.TimestampWithMsFlag = true
	}
	if !j.Exist("log.level_flag") {
		config.LogConfig.LevelFlag = true
	}
	if !j.Exist("log.assert_behavior") {
		config.LogConfig.AssertBehavior = nazalog.AssertError
	}

	if err = config.check(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfAndInitLog 配置或者日志初始化失败时，直接退出进程
//
func LoadConfAndInitLog(rawContent []byte) *Config {
	config, err := LoadConf(rawContent)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load conf failed. err=%+v\n", err)
		base.OsExitAndWaitPressIfWindows(1)
	}

	// 尽量提前初始化日志，使得后续的日志按配置输出
	if err = Log.Init(func(option *nazalog.Option) {
		*option = config.LogConfig
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "initial log failed. err=%+v\n", err)
		base.OsExitAndWaitPressIfWindows(1)
	}
	Log.Info("initial log succ.")

	Log.Infof("load conf succ. version=%s", config.ConfVersion)
	if config.ConfVersion != "" && config.ConfVersion != base.ConfVersion {
		Log.Warnf("config version invalid. conf version of lalmjpeg=%s, conf version of config file=%s",
			base.ConfVersion, config.ConfVersion)
	}
	return config
}

func (c *Config) check() error {
	if c.StreamConfig.Fps <= 0 || c.StreamConfig.Fps > base.RtpClockRate {
		return fmt.Errorf("%w. invalid stream.fps=%d", base.ErrConfig, c.StreamConfig.Fps)
	}
	if c.StreamConfig.MaxPacketSize <= 20 || c.StreamConfig.MaxPacketSize > 65507 {
		return fmt.Errorf("%w. invalid stream.max_packet_size=%d", base.ErrConfig, c.StreamConfig.MaxPacketSize)
	}
	if c.RtspConfig.UdpPortMin > c.RtspConfig.UdpPortMax {
		return fmt.Errorf("%w. invalid rtsp.udp_port_min=%d, udp_port_max=%d", base.ErrConfig, c.RtspConfig.UdpPortMin, c.RtspConfig.UdpPortMax)
	}
	switch c.SourceConfig.Type {
	case SourceTypeTestPattern:
	case SourceTypeFile:
		if c.SourceConfig.Path == "" {
			return fmt.Errorf("%w. source.path is required for file source", base.ErrConfig)
		}
	default:
		return fmt.Errorf("%w. invalid source.type=%s", base.ErrConfig, c.SourceConfig.Type)
	}
	return nil
}
