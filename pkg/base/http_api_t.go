// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

const (
	ErrorCodeSucc            = 0
	DespSucc                 = "succ"
	ErrorCodeSessionNotFound = 1003
	DespSessionNotFound      = "session not found"
	ErrorCodeSourceNotFound  = 1004
	DespSourceNotFound       = "frame source not found"
)

type ApiRespBasic struct {
	ErrorCode int    `json:"error_code"`
	Desp      string `json:"desp"`
}

type LalMjpegInfo struct {
	ServerId        string `json:"server_id"`
	BinInfo         string `json:"bin_info"`
	LalMjpegVersion string `json:"lalmjpeg_version"`
	ApiVersion      string `json:"api_version"`
	ConfVersion     string `json:"conf_version"`
	StartTime       string `json:"start_time"`
	RtspAddr        string `json:"rtsp_addr"`
}

type ApiStatLalMjpegInfo struct {
	ApiRespBasic
	Data LalMjpegInfo `json:"data"`
}

type ApiStatSession struct {
	ApiRespBasic
	Data *StatRtspSession `json:"data"`
}

type ApiStatSource struct {
	ApiRespBasic
	Data *StatSource `json:"data"`
}
