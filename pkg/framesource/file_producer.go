// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package framesource

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/mjpeg"
)

type jpegFile struct {
	buf    []byte
	width  int
	height int
}

// FileProducer 从文件中读取的帧，一次性全部读入内存
//
type FileProducer struct {
	frames      []jpegFile
	isRecursive bool
}

// NewFileProducer
//
// @param path: .jpg文件所在的目录（按文件名排序），或者由多帧JPEG拼接而成的文件（比如.mjpeg）
//
// @param isRecursive: 如果为true，则循环返回文件内容
//
func NewFileProducer(path string, isRecursive bool) (*FileProducer, error) {
	raws, err := LoadJpegFiles(path)
	if err != nil {
		return nil, err
	}

	p := &FileProducer{
		isRecursive: isRecursive,
	}
	for i, raw := range raws {
		w, h, err := mjpeg.ParseFrameSize(raw)
		if err != nil {
			Log.Warnf("parse jpeg frame size failed. index=%d, err=%+v", i, err)
		}
		p.frames = append(p.frames, jpegFile{buf: raw, width: w, height: h})
	}
	Log.Infof("load jpeg frames succ. path=%s, count=%d", path, len(p.frames))
	return p, nil
}

func (p *FileProducer) Produce(index int, dst *base.JpegFrame) error {
	if index >= len(p.frames) && !p.isRecursive {
		return io.EOF
	}
	f := p.frames[index%len(p.frames)]
	dst.Buf = append(dst.Buf[:0], f.buf...)
	dst.Width = f.width
	dst.Height = f.height
	return nil
}

func (p *FileProducer) FrameCount() int {
	return len(p.frames)
}

// LoadJpegFiles 读取目录中所有.jpg/.jpeg文件，或者切分一个多帧文件
//
func LoadJpegFiles(path string) ([][]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !fi.IsDir() {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		frames := mjpeg.SplitFrames(raw)
		if len(frames) == 0 {
			return nil, base.ErrFrameSourceNoFrame
		}
		return frames, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var frames [][]byte
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		if len(raw) < 2 || raw[0] != mjpeg.MarkerPrefix || raw[1] != mjpeg.MarkerSoi {
			Log.Warnf("not a jpeg file, ignore. file=%s", name)
			continue
		}
		frames = append(frames, raw)
	}
	if len(frames) == 0 {
		return nil, base.ErrFrameSourceNoFrame
	}
	return frames, nil
}
