// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtsp

import "io"

// controlReader 控制连接的读端，支持回退探测连接时已经读出的字节
//
type controlReader struct {
	r      io.Reader
	unread []byte
}

func (c *controlReader) Read(b []byte) (int, error) {
	if len(c.unread) > 0 {
		n := copy(b, c.unread)
		c.unread = c.unread[n:]
		return n, nil
	}
	return c.r.Read(b)
}

func (c *controlReader) Unread(b []byte) {
	c.unread = append(c.unread, b...)
}

func (c *controlReader) Buffered() int {
	return len(c.unread)
}
