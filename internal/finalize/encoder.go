package finalize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"lapse/internal/framestore"
	"lapse/internal/logging"
	"lapse/internal/services"
)

var commandContext = exec.CommandContext

// codecOrder is the fallback sequence tried when the preferred codec fails.
var codecOrder = []string{"h265", "av1", "h264", "mp4v", "xvid", "mjpg"}

// crf-based encoders take quality through -crf, the rest through -q:v.
var codecEncoders = map[string]string{
	"h265": "libx265",
	"av1":  "libsvtav1",
	"h264": "libx264",
	"mp4v": "mpeg4",
	"xvid": "libxvid",
	"mjpg": "mjpeg",
}

var crfCodecs = map[string]bool{"h265": true, "av1": true, "h264": true}

// codecChain returns the attempt order: the configured codec first, then
// the remaining codecs in fixed order.
func codecChain(preferred string) []string {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	chain := make([]string, 0, len(codecOrder))
	if _, ok := codecEncoders[preferred]; ok {
		chain = append(chain, preferred)
	}
	for _, codec := range codecOrder {
		if codec != preferred {
			chain = append(chain, codec)
		}
	}
	return chain
}

// qualityArgs maps the 1-100 quality setting onto the encoder's scale.
func qualityArgs(codec string, quality int) []string {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	if crfCodecs[codec] {
		// 100 maps to crf 0 (lossless), 1 to crf 51.
		crf := 51 - (quality*51)/100
		return []string{"-crf", strconv.Itoa(crf)}
	}
	// q:v runs 2 (best) to 31 (worst).
	q := 31 - (quality*29)/100
	if q < 2 {
		q = 2
	}
	return []string{"-q:v", strconv.Itoa(q)}
}

func encodeArgs(codec string, frames *framestore.Store, fps int, quality int, outputPath string) []string {
	args := []string{
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-start_number", "0",
		"-i", filepath.Join(frames.Dir(), framestore.Pattern),
		"-c:v", codecEncoders[codec],
	}
	args = append(args, qualityArgs(codec, quality)...)
	args = append(args, "-pix_fmt", "yuv420p", outputPath)
	return args
}

// encode walks the codec chain until one ffmpeg run exits zero and leaves
// a non-empty file. It returns the codec that succeeded.
func (f *Finalizer) encode(ctx context.Context, frames *framestore.Store, outputPath string, fps int) (string, error) {
	quality := f.cfg.Recording.Quality
	binary := f.cfg.FFmpegBinary()

	var lastErr error
	for _, codec := range codecChain(f.cfg.Recording.VideoCodec) {
		args := encodeArgs(codec, frames, fps, quality, outputPath)
		f.logger.Info("encode attempt",
			logging.String("codec", codec),
			logging.String("encoder", codecEncoders[codec]),
		)

		cmd := commandContext(ctx, binary, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		err := cmd.Run()
		if err == nil {
			if info, statErr := os.Stat(outputPath); statErr == nil && info.Size() > 0 {
				f.logger.Info("encode succeeded",
					logging.String("codec", codec),
					logging.Int64("size_bytes", info.Size()),
				)
				return codec, nil
			}
			err = fmt.Errorf("encoder produced empty output")
		}

		lastErr = err
		f.logger.Warn("encode attempt failed",
			logging.String("codec", codec),
			logging.Error(err),
			logging.String("stderr", tail(stderr.String(), 500)),
		)
		// A truncated artifact from a failed attempt must not satisfy the
		// next attempt's non-empty check.
		_ = os.Remove(outputPath)

		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrTimeout, "finalize", "encode", "encoding canceled", ctx.Err())
		}
	}
	return "", services.Wrap(services.ErrEncodeFailed, "finalize", "encode", "all codecs exhausted", lastErr)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
