// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

// rfc2326

const (
	MethodOptions  = "OPTIONS"
	MethodDescribe = "DESCRIBE"
	MethodSetup    = "SETUP"
	MethodPlay     = "PLAY"
	MethodTeardown = "TEARDOWN"
)

const (
	HeaderCSeq          = "CSeq"
	HeaderTransport     = "Transport"
	HeaderSession       = "Session"
	HeaderContentLength = "Content-Length"
	HeaderContentBase   = "Content-Base"
	HeaderContentType   = "Content-Type"
	HeaderPublic        = "Public"
	HeaderRtpInfo       = "RTP-Info"
	HeaderServer        = "Server"
	HeaderUserAgent     = "User-Agent"
	HeaderAccept        = "Accept"

	HeaderAcceptApplicationSdp = "application/sdp"
)

const (
	StatusCodeOk                        = 200
	StatusCodeBadRequest                = 400
	StatusCodeMethodNotValidInThisState = 455
	StatusCodeInternalServerError       = 500
	StatusCodeNotImplemented            = 501
)

const (
	TransportFieldClientPort = "client_port"
	TransportFieldServerPort = "server_port"
)

// DefaultCSeq 请求中没有CSeq，或者CSeq为空时，响应中使用的值
const DefaultCSeq = "1"

// PublicMethods OPTIONS响应中的Public
const PublicMethods = MethodOptions + ", " + MethodDescribe + ", " + MethodSetup + ", " + MethodPlay + ", " + MethodTeardown

const (
	// HeaderTransportClientPlayTmpl 拉流端SETUP时的Transport
	HeaderTransportClientPlayTmpl = "RTP/AVP;unicast;client_port=%d-%d"

	// HeaderTransportServerPlayTmpl 服务端SETUP响应中的Transport
	HeaderTransportServerPlayTmpl = "RTP/AVP;unicast;client_port=%d;server_port=%d"
)
