// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/framesource"
	"github.com/q191201771/lalmjpeg/pkg/rtsp"
	"github.com/q191201771/naza/pkg/bininfo"
)

type ServerManager struct {
	option          Option
	serverStartTime string
	config          *Config

	source  base.IFrameSource
	mailbox *framesource.Mailbox // 使用内置帧源时不为nil

	rtspServer        *rtsp.Server
	httpServerManager *base.HttpServerManager
	httpApiServer     *HttpApiServer
	pprofServer       *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	exitChan    chan struct{}
	disposeOnce sync.Once
}

func NewServerManager(modOption ...ModOption) *ServerManager {
	sm := &ServerManager{
		serverStartTime: base.ReadableNowTime(),
		exitChan:        make(chan struct{}, 1),
	}
	sm.ctx, sm.cancel = context.WithCancel(context.Background())

	sm.option = defaultOption
	for _, fn := range modOption {
		fn(&sm.option)
	}

	rawContent := sm.option.ConfRawContent
	if len(rawContent) == 0 {
		rawContent = base.WrapReadConfigFile(sm.option.ConfFilename, DefaultConfFilenameList, func() {
			_, _ = fmt.Fprintf(os.Stderr, `
Example:
  %s -c %s

Github: %s
`, os.Args[0], filepath.FromSlash("./conf/lalmjpeg.conf.json"), base.LalMjpegGithubSite)
		})
	}
	sm.config = LoadConfAndInitLog(rawContent)
	base.LogoutStartInfo()

	if sm.option.FrameSource != nil {
		Log.Infof("use customize frame source.")
		sm.source = sm.option.FrameSource
	} else {
		sc := sm.config.SourceConfig
		sm.mailbox = framesource.NewMailbox(func(option *framesource.MailboxOption) {
			option.SourceType = sc.Type
			option.DefaultWidth = sc.Width
			option.DefaultHeight = sc.Height
		})
		sm.source = sm.mailbox
	}

	rc := sm.config.RtspConfig
	stc := sm.config.StreamConfig
	sm.rtspServer = rtsp.NewServer(sm.source, func(option *rtsp.ServerOption) {
		option.Addr = rc.Addr
		option.Fps = stc.Fps
		option.MaxPacketSize = stc.MaxPacketSize
		option.HandshakeTimeoutMs = rc.HandshakeTimeoutMs
		option.RequestMaxSize = rc.RequestMaxSize
		option.Ssrc = rc.Ssrc
		option.UdpPortMin = rc.UdpPortMin
		option.UdpPortMax = rc.UdpPortMax
		option.UdpSendBufSize = rc.UdpSendBufSize
		option.SendMaxRetries = stc.SendMaxRetries
		option.SendRetryBaseDelayMs = stc.SendRetryBaseDelayMs
		option.FrameRetryIntervalMs = stc.FrameRetryIntervalMs
		option.StatIntervalFrames = stc.StatIntervalFrames
		option.ListenRetryIntervalMs = rc.ListenRetryIntervalMs
		option.DefaultWidth = sm.config.SourceConfig.Width
		option.DefaultHeight = sm.config.SourceConfig.Height
	})

	if sm.config.HttpApiConfig.Enable {
		sm.httpServerManager = base.NewHttpServerManager()
		sm.httpApiServer = NewHttpApiServer(sm)
	}

	if sm.config.PprofConfig.Enable {
		sm.pprofServer = &http.Server{Addr: sm.config.PprofConfig.Addr, Handler: nil}
	}

	return sm
}

// ----- implement ILalMjpegServer interface ---------------------------------------------------------------------------

func (sm *ServerManager) RunLoop() error {
	if sm.pprofServer != nil {
		go func() {
			Log.Infof("start web pprof listen. addr=%s", sm.config.PprofConfig.Addr)
			if err := sm.pprofServer.ListenAndServe(); err != nil {
				Log.Error(err)
			}
		}()
	}

	go base.RunSignalHandler(func() {
		sm.Dispose()
	})

	if sm.mailbox != nil {
		pump, err := sm.newPump()
		if err != nil {
			return err
		}
		go func() {
			if err := pump.RunLoop(sm.ctx); err != nil {
				Log.Errorf("pump run loop error. err=%+v", err)
			}
			// 帧源结束后，会话取帧时得到 ErrFrameSourceClosed
			sm.mailbox.Close()
		}()
	}

	if sm.httpServerManager != nil {
		if err := sm.httpApiServer.Listen(sm.httpServerManager, sm.config.HttpApiConfig.Addr); err != nil {
			return err
		}
		go func() {
			if err := sm.httpServerManager.RunLoop(); err != nil {
				Log.Error(err)
			}
		}()
	}

	if err := sm.rtspServer.Listen(); err != nil {
		// RunLoop 内部会按间隔重试监听
		Log.Warnf("rtsp server listen failed, retry in run loop. err=%+v", err)
	}
	go func() {
		if err := sm.rtspServer.RunLoop(); err != nil {
			Log.Error(err)
		}
	}()

	t := time.NewTicker(time.Duration(calcSessionStatIntervalSec) * time.Second)
	defer t.Stop()
	for {
		select {
		case <-sm.exitChan:
			return nil
		case <-t.C:
			sm.rtspServer.UpdateSessionStat(calcSessionStatIntervalSec)
		}
	}

	// never reach here
}

func (sm *ServerManager) Dispose() {
	sm.disposeOnce.Do(func() {
		Log.Debug("dispose server manager.")

		sm.cancel()

		sm.rtspServer.Dispose()

		if sm.mailbox != nil {
			sm.mailbox.Close()
		}

		if sm.httpServerManager != nil {
			if err := sm.httpServerManager.Dispose(); err != nil {
				Log.Warn(err)
			}
		}

		if sm.pprofServer != nil {
			_ = sm.pprofServer.Close()
		}

		sm.exitChan <- struct{}{}
	})
}

func (sm *ServerManager) StatLalMjpegInfo() base.LalMjpegInfo {
	var info base.LalMjpegInfo
	info.ServerId = sm.config.ServerId
	info.BinInfo = bininfo.StringifySingleLine()
	info.LalMjpegVersion = base.LalMjpegVersion
	info.ApiVersion = base.HttpApiVersion
	info.ConfVersion = sm.config.ConfVersion
	info.StartTime = sm.serverStartTime
	if addr := sm.rtspServer.Addr(); addr != nil {
		info.RtspAddr = addr.String()
	} else {
		info.RtspAddr = sm.config.RtspConfig.Addr
	}
	return info
}

func (sm *ServerManager) StatSession() *base.StatRtspSession {
	stat, ok := sm.rtspServer.GetSessionStat()
	if !ok {
		return nil
	}
	return &stat
}

func (sm *ServerManager) StatSource() *base.StatSource {
	type statable interface {
		GetStat() base.StatSource
	}
	s, ok := sm.source.(statable)
	if !ok {
		return nil
	}
	stat := s.GetStat()
	return &stat
}

// ---------------------------------------------------------------------------------------------------------------------

func (sm *ServerManager) Config() *Config {
	return sm.config
}

func (sm *ServerManager) newPump() (*framesource.Pump, error) {
	sc := sm.config.SourceConfig

	var producer framesource.IFrameProducer
	switch sc.Type {
	case SourceTypeFile:
		p, err := framesource.NewFileProducer(sc.Path, sc.Loop)
		if err != nil {
			Log.Errorf("create file producer failed. path=%s, err=%+v", sc.Path, err)
			return nil, err
		}
		Log.Infof("file frame source. path=%s, count=%d, loop=%v", sc.Path, p.FrameCount(), sc.Loop)
		producer = p
	default:
		Log.Infof("test pattern frame source. width=%d, height=%d, quality=%d", sc.Width, sc.Height, sc.Quality)
		producer = framesource.NewTestPattern(sc.Width, sc.Height, sc.Quality)
	}

	return framesource.NewPump(producer, sm.mailbox, func(option *framesource.PumpOption) {
		option.Fps = sc.CaptureFps
	}), nil
}
