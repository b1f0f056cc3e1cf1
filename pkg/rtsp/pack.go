// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"fmt"
	"net"
	"strconv"

	"github.com/q191201771/lalmjpeg/pkg/base"
)

// rfc2326 10.1 OPTIONS
// CSeq, Server, Public
var ResponseOptionsTmpl = "RTSP/1.0 200 OK\r\n" +
	"CSeq: %s\r\n" +
	"Server: %s\r\n" +
	"Public: " + PublicMethods + "\r\n" +
	"\r\n"

// rfc2326 10.2 DESCRIBE
// CSeq, Server, Content-Base, Content-Type, Content-Length
var ResponseDescribeTmpl = "RTSP/1.0 200 OK\r\n" +
	"CSeq: %s\r\n" +
	"Server: %s\r\n" +
	"Content-Base: %s\r\n" +
	"Content-Type: application/sdp\r\n" +
	"Content-Length: %d\r\n" +
	"\r\n" +
	"%s"

// rfc2326 10.4 SETUP
// CSeq, Server, Transport(client_port, server_port), Session
var ResponseSetupTmpl = "RTSP/1.0 200 OK\r\n" +
	"CSeq: %s\r\n" +
	"Server: %s\r\n" +
	"Transport: " + HeaderTransportServerPlayTmpl + "\r\n" +
	"Session: %s\r\n" +
	"\r\n"

// rfc2326 10.5 PLAY
// CSeq, Server, Session, RTP-Info
var ResponsePlayTmpl = "RTSP/1.0 200 OK\r\n" +
	"CSeq: %s\r\n" +
	"Server: %s\r\n" +
	"Session: %s\r\n" +
	"RTP-Info: url=%s;seq=0;rtptime=0\r\n" +
	"\r\n"

// rfc2326 10.7 TEARDOWN
// CSeq, Server, Session
var ResponseTeardownTmpl = "RTSP/1.0 200 OK\r\n" +
	"CSeq: %s\r\n" +
	"Server: %s\r\n" +
	"Session: %s\r\n" +
	"\r\n"

// 4xx 5xx
var ResponseErrorTmpl = "RTSP/1.0 %d %s\r\n" +
	"CSeq: %s\r\n" +
	"Server: %s\r\n" +
	"\r\n"

func PackResponseOptions(cseq string) string {
	return fmt.Sprintf(ResponseOptionsTmpl, cseq, base.RtspServerName)
}

// PackResponseDescribe
//
// @param contentBase: e.g. rtsp://192.168.1.10:554/
//
func PackResponseDescribe(cseq string, contentBase string, sdp string) string {
	return fmt.Sprintf(ResponseDescribeTmpl, cseq, base.RtspServerName, contentBase, len(sdp), sdp)
}

func PackResponseSetup(cseq string, clientPort, serverPort int, sessionId string) string {
	return fmt.Sprintf(ResponseSetupTmpl, cseq, base.RtspServerName, clientPort, serverPort, sessionId)
}

// PackResponsePlay
//
// @param rtpInfoUrl: e.g. rtsp://192.168.1.10:554/track1
//
func PackResponsePlay(cseq string, sessionId string, rtpInfoUrl string) string {
	return fmt.Sprintf(ResponsePlayTmpl, cseq, base.RtspServerName, sessionId, rtpInfoUrl)
}

func PackResponseTeardown(cseq string, sessionId string) string {
	return fmt.Sprintf(ResponseTeardownTmpl, cseq, base.RtspServerName, sessionId)
}

func PackResponseBadRequest(cseq string) string {
	return PackResponseError(StatusCodeBadRequest, cseq)
}

func PackResponseMethodNotValidInThisState(cseq string) string {
	return PackResponseError(StatusCodeMethodNotValidInThisState, cseq)
}

func PackResponseInternalServerError(cseq string) string {
	return PackResponseError(StatusCodeInternalServerError, cseq)
}

func PackResponseNotImplemented(cseq string) string {
	return PackResponseError(StatusCodeNotImplemented, cseq)
}

func PackResponseError(statusCode int, cseq string) string {
	return fmt.Sprintf(ResponseErrorTmpl, statusCode, StatusText(statusCode), cseq, base.RtspServerName)
}

// StatusText rfc2326 7.1.1
func StatusText(code int) string {
	switch code {
	case StatusCodeOk:
		return "OK"
	case StatusCodeBadRequest:
		return "Bad Request"
	case StatusCodeMethodNotValidInThisState:
		return "Method Not Valid in This State"
	case StatusCodeInternalServerError:
		return "Internal Server Error"
	case StatusCodeNotImplemented:
		return "Not Implemented"
	}
	return "Unknown"
}

// ---------------------------------------------------------------------------------------------------------------------

// MakeContentBase rtsp://<ip>:<port>/
func MakeContentBase(ip string, port int) string {
	return fmt.Sprintf("rtsp://%s/", net.JoinHostPort(ip, strconv.Itoa(port)))
}

// MakeTrackUrl rtsp://<ip>:<port>/<control>
func MakeTrackUrl(ip string, port int, control string) string {
	return fmt.Sprintf("rtsp://%s/%s", net.JoinHostPort(ip, strconv.Itoa(port)), control)
}
