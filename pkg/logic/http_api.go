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

	"github.com/q191201771/lalmjpeg/pkg/base"
)

type HttpApiServer struct {
	sm ILalMjpegServer
}

func NewHttpApiServer(sm ILalMjpegServer) *HttpApiServer {
	return &HttpApiServer{
		sm: sm,
	}
}

// Listen 在 base.HttpServerManager 上注册所有api，由 base.HttpServerManager 负责 RunLoop 和 Dispose
//
func (h *HttpApiServer) Listen(hsm *base.HttpServerManager, addr string) error {
	addrCtx := base.LocalAddrCtx{Addr: addr}
	for pattern, handler := range map[string]base.Handler{
		"/api/stat/lal_info": h.statLalInfoHandler,
		"/api/stat/session":  h.statSessionHandler,
		"/api/stat/source":   h.statSourceHandler,
	} {
		if err := hsm.AddListen(addrCtx, pattern, handler); err != nil {
			Log.Errorf("add http listen for httpapi failed. addr=%s, pattern=%s, err=%+v", addr, pattern, err)
			return err
		}
	}
	Log.Infof("start httpapi server listen. addr=%s", hsm.ListenAddr(addr))
	return nil
}

func (h *HttpApiServer) statLalInfoHandler(w http.ResponseWriter, req *http.Request) {
	var v base.ApiStatLalMjpegInfo
	v.ErrorCode = base.ErrorCodeSucc
	v.Desp = base.DespSucc
	v.Data = h.sm.StatLalMjpegInfo()
	feedback(v, w)
}

func (h *HttpApiServer) statSessionHandler(w http.ResponseWriter, req *http.Request) {
	var v base.ApiStatSession
	v.Data = h.sm.StatSession()
	if v.Data == nil {
		v.ErrorCode = base.ErrorCodeSessionNotFound
		v.Desp = base.DespSessionNotFound
		feedback(v, w)
		return
	}

	v.ErrorCode = base.ErrorCodeSucc
	v.Desp = base.DespSucc
	feedback(v, w)
}

func (h *HttpApiServer) statSourceHandler(w http.ResponseWriter, req *http.Request) {
	var v base.ApiStatSource
	v.Data = h.sm.StatSource()
	if v.Data == nil {
		v.ErrorCode = base.ErrorCodeSourceNotFound
		v.Desp = base.DespSourceNotFound
		feedback(v, w)
		return
	}

	v.ErrorCode = base.ErrorCodeSucc
	v.Desp = base.DespSucc
	feedback(v, w)
}

func feedback(v interface{}, w http.ResponseWriter) {
	resp, _ := json.Marshal(v)
	w.Header().Add("Server", base.LalMjpegHttpApiServer)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}
