// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "strings"

// LalMjpegVersion 整个工程的版本号。注意，该变量由外部脚本修改维护，不要手动在代码中修改
//
const LalMjpegVersion = "v0.1.0"

// ConfVersion 配置文件的版本号
//
const ConfVersion = "v0.1.0"

// HttpApiVersion HTTP-API功能的版本号
//
const HttpApiVersion = "v0.1.0"

var (
	LalMjpegLibraryName = "lalmjpeg"
	LalMjpegGithubRepo  = "github.com/q191201771/lalmjpeg"
	LalMjpegGithubSite  = "https://github.com/q191201771/lalmjpeg"

	// LalMjpegFullInfo e.g. lalmjpeg v0.1.0 (github.com/q191201771/lalmjpeg)
	LalMjpegFullInfo = LalMjpegLibraryName + " " + LalMjpegVersion + " (" + LalMjpegGithubRepo + ")"

	// LalMjpegVersionDot e.g. 0.1.0
	LalMjpegVersionDot string

	// LalMjpegRtspPullSessionUa e.g. lalmjpeg/0.1.0
	LalMjpegRtspPullSessionUa string

	// LalMjpegHttpApiServer e.g. lalmjpeg/0.1.0
	LalMjpegHttpApiServer string
)

func init() {
	LalMjpegVersionDot = strings.TrimPrefix(LalMjpegVersion, "v")

	// e.g. lalmjpeg/0.1.0
	RtspServerName = LalMjpegLibraryName + "/" + LalMjpegVersionDot
	LalMjpegRtspPullSessionUa = LalMjpegLibraryName + "/" + LalMjpegVersionDot
	LalMjpegHttpApiServer = LalMjpegLibraryName + "/" + LalMjpegVersionDot
}
