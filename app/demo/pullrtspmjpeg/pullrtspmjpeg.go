// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/rtprtcp"
	"github.com/q191201771/lalmjpeg/pkg/rtsp"
	"github.com/q191201771/naza/pkg/nazalog"
)

// 拉取rtsp mjpeg流，每一帧存成一个jpg文件
//
// 也可以不指定输出目录，只打印统计信息，用于检查服务端的丢包情况

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	inUrl, outDir, maxFrameNum := parseFlag()

	if outDir != "" {
		err := os.MkdirAll(outDir, 0755)
		nazalog.Assert(nil, err)
	}

	var count int
	done := make(chan struct{})
	session := rtsp.NewPullSession(func(frame []byte, timestamp uint32, jh rtprtcp.JpegHeader) {
		count++
		if count == 1 {
			nazalog.Infof("first frame. size=%d, timestamp=%d, width=%d, height=%d, q=%d",
				len(frame), timestamp, int(jh.Width)*8, int(jh.Height)*8, jh.Q)
		}
		if outDir != "" {
			filename := filepath.Join(outDir, fmt.Sprintf("%06d.jpg", count))
			if err := os.WriteFile(filename, frame, 0644); err != nil {
				nazalog.Errorf("write file failed. filename=%s, err=%+v", filename, err)
			}
		}
		if maxFrameNum > 0 && count == maxFrameNum {
			close(done)
		}
	}, func(option *rtsp.PullSessionOption) {
		option.PullTimeoutMs = 5000
	})

	err := session.Pull(inUrl)
	nazalog.Assert(nil, err)
	nazalog.Infof("pull succ. sdp=%+v", session.Sdp())

	t := time.NewTicker(1 * time.Second)
	defer t.Stop()
	var prevFrameCount uint64
	var tickCount int
	for {
		select {
		case err = <-session.WaitChan():
			nazalog.Infof("pull session done. err=%+v", err)
			return
		case <-done:
			_ = session.Dispose()
			nazalog.Infof("reach max frame num. n=%d, loss=%d", maxFrameNum, session.LossCount())
			return
		case <-t.C:
			tickCount++
			// 每10秒检查一次是否还在接收数据
			if tickCount%10 == 0 && !session.IsAlive() {
				nazalog.Warnf("pull session timeout, dispose. url=%s", inUrl)
				_ = session.Dispose()
				return
			}
			session.UpdateStat(1)
			stat := session.GetStat()
			frameCount := session.FrameCount()
			nazalog.Infof("stat. fps=%d, loss=%d, bitrate=%dkbit/s",
				frameCount-prevFrameCount, session.LossCount(), stat.Media.RtpBitrate)
			prevFrameCount = frameCount
		}
	}
}

func parseFlag() (inUrl string, outDir string, maxFrameNum int) {
	i := flag.String("i", "", "specify pull rtsp url")
	o := flag.String("o", "", "specify output dir of jpg files, optional")
	n := flag.Int("n", 0, "stop after n frames, 0 means never stop")
	flag.Parse()
	if *i == "" {
		flag.Usage()
		_, _ = fmt.Fprintf(os.Stderr, `Example:
  %s -i rtsp://127.0.0.1:554/ -o ./frames -n 100
`, os.Args[0])
		os.Exit(1)
	}
	return *i, *o, *n
}
