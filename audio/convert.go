package audio

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Converter shells out to ffmpeg.
type Converter struct {
	Bin string
}

func NewConverter(bin string) *Converter {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Converter{Bin: bin}
}

// ToWAV transcodes any ffmpeg readable input to 16-bit PCM WAV. rate and
// channels of 0 keep the source values.
func (c *Converter) ToWAV(ctx context.Context, in, out string, rate, channels int) error {
	args := ffmpeg.KwArgs{"acodec": "pcm_s16le"}
	if rate > 0 {
		args["ar"] = rate
	}
	if channels > 0 {
		args["ac"] = channels
	}
	stream := ffmpeg.Input(in).Output(out, args).OverWriteOutput().SetFfmpegPath(c.Bin)
	return c.run(ctx, stream)
}

// ExtractAudio pulls the audio track out of a video file as mono WAV at
// rate, dropping any video stream.
func (c *Converter) ExtractAudio(ctx context.Context, video, out string, rate int) error {
	args := ffmpeg.KwArgs{"vn": "", "acodec": "pcm_s16le", "ac": 1}
	if rate > 0 {
		args["ar"] = rate
	}
	stream := ffmpeg.Input(video).Output(out, args).OverWriteOutput().SetFfmpegPath(c.Bin)
	return c.run(ctx, stream)
}

func (c *Converter) run(ctx context.Context, stream *ffmpeg.Stream) error {
	cmd := stream.Compile()
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
		}
		return nil
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
