// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package logic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"net/http"
	"testing"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/lalmjpeg/pkg/rtsp"
	"github.com/stretchr/testify/require"
)

const testConf = `{
  "rtsp": {"addr": "127.0.0.1:0", "handshake_timeout_ms": 5000},
  "stream": {"fps": 25},
  "source": {"type": "test_pattern", "width": 160, "height": 120, "capture_fps": 25},
  "http_api": {"enable": true, "addr": "127.0.0.1:0"},
  "log": {"filename": "", "is_to_stdout": true, "level": 1}
}`

func getApi(t *testing.T, addr string, path string, v interface{}) {
	resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestServerManager(t *testing.T) {
	sm := NewServerManager(func(option *Option) {
		option.ConfRawContent = []byte(testConf)
	})

	done := make(chan error, 1)
	go func() {
		done <- sm.RunLoop()
	}()

	// rtsp在http api之后监听，rtsp地址可用时http api也已经可用
	require.Eventually(t, func() bool {
		return sm.rtspServer.Addr() != nil
	}, 5*time.Second, 10*time.Millisecond)
	rtspAddr := sm.rtspServer.Addr().String()
	apiAddr := sm.httpServerManager.ListenAddr("127.0.0.1:0").String()

	var info base.ApiStatLalMjpegInfo
	getApi(t, apiAddr, "/api/stat/lal_info", &info)
	require.Equal(t, base.ErrorCodeSucc, info.ErrorCode)
	require.Equal(t, rtspAddr, info.Data.RtspAddr)
	require.Equal(t, base.LalMjpegVersion, info.Data.LalMjpegVersion)

	var session base.ApiStatSession
	getApi(t, apiAddr, "/api/stat/session", &session)
	require.Equal(t, base.ErrorCodeSessionNotFound, session.ErrorCode)

	frameCh := make(chan []byte, 1)
	pull := rtsp.NewPullSession(func(frame []byte, timestamp uint32, jh rtprtcp.JpegHeader) {
		select {
		case frameCh <- append([]byte(nil), frame...):
		default:
		}
	}, func(option *rtsp.PullSessionOption) {
		option.PullTimeoutMs = 5000
	})
	require.NoError(t, pull.Pull(fmt.Sprintf("rtsp://%s/", rtspAddr)))
	require.Equal(t, 160, pull.Sdp().Width)
	require.Equal(t, 120, pull.Sdp().Height)

	select {
	case frame := <-frameCh:
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
		require.NoError(t, err)
		require.Equal(t, 160, cfg.Width)
		require.Equal(t, 120, cfg.Height)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
	}

	session = base.ApiStatSession{}
	getApi(t, apiAddr, "/api/stat/session", &session)
	require.Equal(t, base.ErrorCodeSucc, session.ErrorCode)
	require.Equal(t, "Streaming", session.Data.Media.State)
	require.Equal(t, 25, session.Data.Media.Fps)

	var source base.ApiStatSource
	getApi(t, apiAddr, "/api/stat/source", &source)
	require.Equal(t, base.ErrorCodeSucc, source.ErrorCode)
	require.Equal(t, SourceTypeTestPattern, source.Data.Type)
	require.Greater(t, source.Data.PublishedCount, uint64(0))

	require.NoError(t, pull.Dispose())

	sm.Dispose()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop not exit")
	}
}
