// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/q191201771/lalmjpeg/pkg/base"
)

// Request 一个完整的rtsp请求
//
type Request struct {
	Raw     string // 请求行以及所有头部，包含结尾的空行，不包含body
	Method  string
	Uri     string
	Version string
	Body    []byte
}

func (req *Request) Header(name string) string {
	return headerValue(req.Raw, name)
}

func (req *Request) CSeq() string {
	return ParseCseq(req.Raw)
}

type Response struct {
	Raw        string
	Version    string
	StatusCode int
	Reason     string
	Body       []byte
}

func (resp *Response) Header(name string) string {
	return headerValue(resp.Raw, name)
}

// ReadRequest 读取一个完整的请求
//
// 严格读取到头部结束的空行为止，有Content-Length时再读取body。多读到的数据保留在 r 中，属于下一个请求
// 请求之前的空行被忽略
//
// @param maxSize: 头部加body的最大长度，超过时返回 base.ErrRtspMessageTooLarge
//
func ReadRequest(r *bufio.Reader, maxSize int) (*Request, error) {
	head, body, err := readMessage(r, maxSize)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Raw:    string(head),
		Method: ParseMethod(string(head)),
		Body:   body,
	}
	items := strings.Fields(firstLine(req.Raw))
	if len(items) > 1 {
		req.Uri = items[1]
	}
	if len(items) > 2 {
		req.Version = items[2]
	}
	return req, nil
}

// ReadResponse 读取一个完整的响应
//
func ReadResponse(r *bufio.Reader, maxSize int) (*Response, error) {
	head, body, err := readMessage(r, maxSize)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Raw:  string(head),
		Body: body,
	}
	// RTSP/1.0 200 OK
	items := strings.SplitN(firstLine(resp.Raw), " ", 3)
	if len(items) < 2 {
		return nil, base.ErrRtspInvalidResponseLine
	}
	resp.Version = items[0]
	resp.StatusCode, err = strconv.Atoi(items[1])
	if err != nil {
		return nil, fmt.Errorf("%w. line=%s", base.ErrRtspInvalidResponseLine, firstLine(resp.Raw))
	}
	if len(items) == 3 {
		resp.Reason = items[2]
	}
	return resp, nil
}

// ParseMethod 请求的第一个token，即第一个空格之前的内容
//
func ParseMethod(raw string) string {
	line := firstLine(raw)
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}

// ParseCseq 查找`CSeq:`（区分大小写），跳过空格，取到行尾
//
// 没有找到或者值为空时，返回 DefaultCSeq
//
func ParseCseq(raw string) string {
	idx := strings.Index(raw, HeaderCSeq+":")
	if idx < 0 {
		return DefaultCSeq
	}
	v := raw[idx+len(HeaderCSeq)+1:]
	if end := strings.IndexAny(v, "\r\n"); end >= 0 {
		v = v[:end]
	}
	v = strings.Trim(v, " \t")
	if v == "" {
		return DefaultCSeq
	}
	return v
}

// ParseClientPort 从Transport头中解析client_port的第一个端口，即rtp端口
//
// e.g. RTP/AVP;unicast;client_port=5000-5001
//
func ParseClientPort(transport string) (int, error) {
	return parseTransportPort(transport, TransportFieldClientPort)
}

// ParseServerPort 从SETUP响应的Transport头中解析server_port
//
func ParseServerPort(transport string) (int, error) {
	return parseTransportPort(transport, TransportFieldServerPort)
}

// PackRequest
//
// @param headers: 可以为nil，CSeq排在第一个，其他按字母序
//
func PackRequest(method, uri string, cseq int, headers map[string]string, body string) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("%s %s RTSP/1.0\r\n", method, uri))
	buf.WriteString(fmt.Sprintf("%s: %d\r\n", HeaderCSeq, cseq))

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(fmt.Sprintf("%s: %s\r\n", k, headers[k]))
	}
	if body != "" {
		buf.WriteString(fmt.Sprintf("%s: %d\r\n", HeaderContentLength, len(body)))
	}
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

// ---------------------------------------------------------------------------------------------------------------------

func parseTransportPort(transport string, field string) (int, error) {
	for _, item := range strings.Split(transport, ";") {
		kv := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(kv) != 2 || kv[0] != field {
			continue
		}

		// 只取第一个端口，e.g. 5000-5001
		v := kv[1]
		if i := strings.IndexByte(v, '-'); i >= 0 {
			v = v[:i]
		}
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || port <= 0 || port > 65535 {
			return -1, fmt.Errorf("%w. transport=%s", base.ErrRtspInvalidTransport, transport)
		}
		return port, nil
	}
	return -1, fmt.Errorf("%w. transport=%s", base.ErrRtspInvalidTransport, transport)
}

func readMessage(r *bufio.Reader, maxSize int) (head []byte, body []byte, err error) {
	for {
		line, err := readLine(r, maxSize-len(head))
		if err != nil {
			if errors.Is(err, io.EOF) && len(head)+len(line) > 0 {
				err = io.ErrUnexpectedEOF
			}
			return nil, nil, err
		}

		if len(bytes.TrimRight(line, "\r\n")) == 0 {
			if len(head) == 0 {
				continue
			}
			head = append(head, line...)
			break
		}
		head = append(head, line...)
	}

	cl := headerValue(string(head), HeaderContentLength)
	if cl == "" {
		return head, nil, nil
	}
	n, err := strconv.Atoi(cl)
	if err != nil || n < 0 {
		return nil, nil, fmt.Errorf("%w. content-length=%s", base.ErrRtsp, cl)
	}
	if len(head)+n > maxSize {
		return nil, nil, base.NewErrRtspMessageTooLarge(maxSize)
	}
	if n > 0 {
		body = make([]byte, n)
		if _, err = io.ReadFull(r, body); err != nil {
			return nil, nil, err
		}
	}
	return head, body, nil
}

func readLine(r *bufio.Reader, remain int) (line []byte, err error) {
	for {
		b, err := r.ReadSlice('\n')
		if len(line)+len(b) > remain {
			return nil, base.NewErrRtspMessageTooLarge(remain)
		}
		line = append(line, b...)
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, err
	}
}

func firstLine(raw string) string {
	if i := strings.IndexAny(raw, "\r\n"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// headerValue 头部名字不区分大小写
func headerValue(raw string, name string) string {
	lines := strings.Split(raw, "\n")
	for _, line := range lines[1:] {
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(line[:i]), name) {
			return strings.TrimSpace(line[i+1:])
		}
	}
	return ""
}
