// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp_test

import (
	"bufio"
	"strconv"
	"strings"
	"testing"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/rtsp"
	"github.com/q191201771/lalmjpeg/pkg/sdp"
	"github.com/q191201771/naza/pkg/assert"
)

func TestPackResponseOptions(t *testing.T) {
	golden := "RTSP/1.0 200 OK\r\n" +
		"CSeq: 1\r\n" +
		"Server: " + base.RtspServerName + "\r\n" +
		"Public: OPTIONS, DESCRIBE, SETUP, PLAY, TEARDOWN\r\n" +
		"\r\n"
	assert.Equal(t, golden, rtsp.PackResponseOptions("1"))
}

func TestPackResponseDescribe(t *testing.T) {
	sdpBody := string(sdp.PackMjpeg("192.168.1.10", 26, 320, 240, 10))
	resp := rtsp.PackResponseDescribe("2", rtsp.MakeContentBase("192.168.1.10", 554), sdpBody)

	r, err := rtsp.ReadResponse(bufio.NewReader(strings.NewReader(resp)), 4096)
	assert.Equal(t, nil, err)
	assert.Equal(t, 200, r.StatusCode)
	assert.Equal(t, "2", r.Header(rtsp.HeaderCSeq))
	assert.Equal(t, "rtsp://192.168.1.10:554/", r.Header(rtsp.HeaderContentBase))
	assert.Equal(t, "application/sdp", r.Header(rtsp.HeaderContentType))
	assert.Equal(t, strconv.Itoa(len(sdpBody)), r.Header(rtsp.HeaderContentLength))
	assert.Equal(t, sdpBody, string(r.Body))
}

func TestPackResponseSetup(t *testing.T) {
	resp := rtsp.PackResponseSetup("3", 5000, 40000, "CAFEBABE")
	assert.Equal(t, "RTSP/1.0 200 OK\r\n"+
		"CSeq: 3\r\n"+
		"Server: "+base.RtspServerName+"\r\n"+
		"Transport: RTP/AVP;unicast;client_port=5000;server_port=40000\r\n"+
		"Session: CAFEBABE\r\n"+
		"\r\n", resp)
}

func TestPackResponsePlay(t *testing.T) {
	resp := rtsp.PackResponsePlay("4", "CAFEBABE", rtsp.MakeTrackUrl("10.0.0.1", 8554, sdp.DefaultControl))
	assert.Equal(t, true, strings.Contains(resp, "\r\nSession: CAFEBABE\r\n"))
	assert.Equal(t, true, strings.Contains(resp, "\r\nRTP-Info: url=rtsp://10.0.0.1:8554/track1;seq=0;rtptime=0\r\n"))
}

func TestPackResponseTeardown(t *testing.T) {
	resp := rtsp.PackResponseTeardown("5", "CAFEBABE")
	assert.Equal(t, true, strings.HasPrefix(resp, "RTSP/1.0 200 OK\r\nCSeq: 5\r\n"))
	assert.Equal(t, true, strings.Contains(resp, "\r\nSession: CAFEBABE\r\n"))
}

func TestPackResponseError(t *testing.T) {
	golden := map[string]string{
		rtsp.PackResponseBadRequest("6"):                "RTSP/1.0 400 Bad Request\r\nCSeq: 6\r\n",
		rtsp.PackResponseMethodNotValidInThisState("6"): "RTSP/1.0 455 Method Not Valid in This State\r\nCSeq: 6\r\n",
		rtsp.PackResponseInternalServerError("6"):       "RTSP/1.0 500 Internal Server Error\r\nCSeq: 6\r\n",
		rtsp.PackResponseNotImplemented("6"):            "RTSP/1.0 501 Not Implemented\r\nCSeq: 6\r\n",
		rtsp.PackResponseError(404, "6"):                "RTSP/1.0 404 Unknown\r\nCSeq: 6\r\n",
	}
	for resp, prefix := range golden {
		assert.Equal(t, true, strings.HasPrefix(resp, prefix), resp)
		assert.Equal(t, true, strings.HasSuffix(resp, "\r\n\r\n"), resp)
	}
}

func TestMakeUrl(t *testing.T) {
	assert.Equal(t, "rtsp://127.0.0.1:554/", rtsp.MakeContentBase("127.0.0.1", 554))
	assert.Equal(t, "rtsp://[::1]:554/", rtsp.MakeContentBase("::1", 554))
	assert.Equal(t, "rtsp://127.0.0.1:554/track1", rtsp.MakeTrackUrl("127.0.0.1", 554, "track1"))
}
