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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

type fakeLalMjpegServer struct {
	session *base.StatRtspSession
	source  *base.StatSource
}

func (f *fakeLalMjpegServer) RunLoop() error { return nil }
func (f *fakeLalMjpegServer) Dispose()       {}

func (f *fakeLalMjpegServer) StatLalMjpegInfo() base.LalMjpegInfo {
	return base.LalMjpegInfo{ServerId: "7", RtspAddr: "127.0.0.1:554"}
}

func (f *fakeLalMjpegServer) StatSession() *base.StatRtspSession {
	return f.session
}

func (f *fakeLalMjpegServer) StatSource() *base.StatSource {
	return f.source
}

func serveApi(t *testing.T, handler base.Handler, v interface{}) {
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, base.LalMjpegHttpApiServer, w.Header().Get("Server"))
	assert.Equal(t, nil, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHttpApiServer(t *testing.T) {
	fake := &fakeLalMjpegServer{}
	h := NewHttpApiServer(fake)

	var info base.ApiStatLalMjpegInfo
	serveApi(t, h.statLalInfoHandler, &info)
	assert.Equal(t, base.ErrorCodeSucc, info.ErrorCode)
	assert.Equal(t, "7", info.Data.ServerId)
	assert.Equal(t, "127.0.0.1:554", info.Data.RtspAddr)

	var session base.ApiStatSession
	serveApi(t, h.statSessionHandler, &session)
	assert.Equal(t, base.ErrorCodeSessionNotFound, session.ErrorCode)
	assert.Equal(t, base.DespSessionNotFound, session.Desp)

	var source base.ApiStatSource
	serveApi(t, h.statSourceHandler, &source)
	assert.Equal(t, base.ErrorCodeSourceNotFound, source.ErrorCode)

	fake.session = &base.StatRtspSession{
		Media: base.StatMedia{State: "Streaming", ClientRtpPort: 5000, FrameCount: 3},
	}
	fake.source = &base.StatSource{Type: SourceTypeTestPattern, PublishedCount: 9}

	session = base.ApiStatSession{}
	serveApi(t, h.statSessionHandler, &session)
	assert.Equal(t, base.ErrorCodeSucc, session.ErrorCode)
	assert.Equal(t, "Streaming", session.Data.Media.State)
	assert.Equal(t, 5000, session.Data.Media.ClientRtpPort)
	assert.Equal(t, uint64(3), session.Data.Media.FrameCount)

	source = base.ApiStatSource{}
	serveApi(t, h.statSourceHandler, &source)
	assert.Equal(t, base.ErrorCodeSucc, source.ErrorCode)
	assert.Equal(t, uint64(9), source.Data.PublishedCount)
}
