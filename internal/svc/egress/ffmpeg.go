// If you are AI: This file implements the sink that pipes FLV into an ffmpeg HLS segmenter.
// One ffmpeg process runs per published stream; its stderr is forwarded to the logger.

package egress

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/flv"
)

// ffmpegWaitTimeout bounds how long a closing track waits for ffmpeg to flush its last segment.
const ffmpegWaitTimeout = 10 * time.Second

// FFmpegSink starts an ffmpeg process per stream writing HLS under streams_dir/app/name.
type FFmpegSink struct {
	path            string
	streamsDir      string
	segmentDuration int
	playlistSize    int
	logger          *zap.Logger
}

// NewFFmpegSink creates an ffmpeg sink from segmenter configuration.
func NewFFmpegSink(cfg config.SegmenterConfig, logger *zap.Logger) *FFmpegSink {
	return &FFmpegSink{
		path:            cfg.FFmpegPath,
		streamsDir:      cfg.StreamsDir,
		segmentDuration: cfg.SegmentDuration,
		playlistSize:    cfg.PlaylistSize,
		logger:          logger,
	}
}

// Name returns the sink kind.
func (s *FFmpegSink) Name() string { return "ffmpeg" }

// Args returns the ffmpeg arguments for a stream directory.
func (s *FFmpegSink) Args(dir string) []string {
	return []string{
		"-hide_banner", "-loglevel", "warning",
		"-f", "flv",
		"-i", "pipe:0",
		"-c", "copy",
		"-f", "hls",
		"-hls_time", strconv.Itoa(s.segmentDuration),
		"-hls_list_size", strconv.Itoa(s.playlistSize),
		"-hls_flags", "delete_segments",
		"-hls_segment_filename", filepath.Join(dir, "segment_%03d.ts"),
		filepath.Join(dir, "playlist.m3u8"),
	}
}

// Open creates the stream directory and starts ffmpeg.
// ctx only gates startup; the process lives until Close delivers end of stream.
func (s *FFmpegSink) Open(ctx context.Context, key bus.StreamKey) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := streamPath(s.streamsDir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stream dir: %w", err)
	}

	cmd := exec.Command(s.path, s.Args(dir)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	logger := s.logger.With(zap.String("stream", key.String()), zap.Int("pid", cmd.Process.Pid))
	logger.Info("ffmpeg started", zap.String("dir", dir))
	go pipeLog(stderr, logger)

	bw := bufio.NewWriterSize(stdin, 64*1024)
	return &ffmpegTrack{
		cmd:    cmd,
		stdin:  stdin,
		bw:     bw,
		flv:    flv.NewWriter(bw),
		logger: logger,
	}, nil
}

// pipeLog forwards ffmpeg diagnostics line by line.
func pipeLog(r io.Reader, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug("ffmpeg", zap.String("line", scanner.Text()))
	}
}

type ffmpegTrack struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	bw     *bufio.Writer
	flv    *flv.Writer
	logger *zap.Logger
}

// Write muxes rec into the FLV stream on ffmpeg's stdin.
func (t *ffmpegTrack) Write(rec Record) error {
	if err := t.flv.WriteMessage(rec.Type, rec.Timestamp, rec.Payload); err != nil {
		return err
	}
	return t.bw.Flush()
}

// Close ends ffmpeg's input and waits for it to exit, killing it after ffmpegWaitTimeout.
func (t *ffmpegTrack) Close() error {
	flushErr := t.bw.Flush()
	_ = t.stdin.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- t.cmd.Wait() }()

	select {
	case err := <-waitErr:
		t.logger.Info("ffmpeg exited")
		if err != nil {
			return fmt.Errorf("ffmpeg exit: %w", err)
		}
	case <-time.After(ffmpegWaitTimeout):
		_ = t.cmd.Process.Kill()
		<-waitErr
		return fmt.Errorf("ffmpeg did not exit within %s", ffmpegWaitTimeout)
	}
	if flushErr != nil {
		return fmt.Errorf("flush ffmpeg input: %w", flushErr)
	}
	return nil
}
