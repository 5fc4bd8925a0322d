package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbegin/vosc-go"
	"github.com/cbegin/vosc-go/internal/audio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const monitorSampleRate = 48000

func main() {
	def := vosc.DefaultParams()
	var (
		rate          = flag.Int("rate", def.Rate, "sample rate in Hz")
		channels      = flag.Int("channels", def.Channels, "channel count")
		formatName    = flag.String("format", def.Format.String(), "sample format: u8|s16le|s32le")
		period        = flag.Int("period", def.PeriodBytes, "period size in bytes")
		buffer        = flag.Int("buffer", def.BufferBytes, "buffer size in bytes")
		hz            = flag.Uint64("hz", 1000, "tick source frequency")
		seconds       = flag.Float64("seconds", 5, "capture duration (0 = until interrupted)")
		outPath       = flag.String("out", "capture.wav", "output WAV file")
		monitor       = flag.Bool("monitor", false, "play the capture while recording")
		mute          = flag.Bool("mute", false, "capture placeholder silence instead of the waveform")
		unconstrained = flag.Bool("unconstrained", false, "accept any parameters instead of the stock hardware limits")
		verbose       = flag.Bool("v", false, "trace device state changes")
	)
	flag.Parse()

	format, err := vosc.ParseFormat(*formatName)
	if err != nil {
		log.Fatal(err)
	}
	limits := vosc.DefaultConstraints()
	if *unconstrained {
		limits = vosc.OpenConstraints()
	}
	p, err := limits.Negotiate(vosc.Params{
		Rate:        *rate,
		Channels:    *channels,
		Format:      format,
		PeriodBytes: *period,
		BufferBytes: *buffer,
	})
	if err != nil {
		log.Fatal(err)
	}

	opts := []vosc.Option{vosc.WithClock(vosc.NewSystemClock(*hz))}
	if *verbose {
		opts = append(opts, vosc.WithLogger(log.New(os.Stderr, "vosc: ", log.Lmicroseconds)))
	}
	dev := vosc.New(opts...)
	if err := dev.Open(); err != nil {
		log.Fatal(err)
	}
	defer dev.Close()
	if err := dev.Prepare(p); err != nil {
		log.Fatal(err)
	}
	dev.SetSynthEnabled(!*mute)

	var (
		src *audio.PCMSource
		pl  *audio.Player
	)
	if *monitor {
		src = audio.NewPCMSource(audio.PCMFormat{
			Bits:     p.Format.Width(),
			Unsigned: p.Format.Unsigned(),
			Channels: p.Channels,
			Rate:     p.Rate,
		}, monitorSampleRate)
		pl, err = audio.NewPlayer(monitorSampleRate, src)
		if err != nil {
			log.Fatal(err)
		}
		defer pl.Stop()
		pl.Play()
	}

	fmt.Printf("capturing %d Hz %d ch %v, period %d bytes, buffer %d bytes\n",
		p.Rate, p.Channels, p.Format, p.PeriodBytes, p.BufferBytes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*seconds*float64(time.Second)))
		defer cancel()
	}

	stream := dev.NewStream()
	defer stream.Close()
	if err := dev.Start(); err != nil {
		log.Fatal(err)
	}
	started := time.Now()

	var pcm []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buf := make([]byte, p.BufferBytes)
		for {
			n, err := stream.Read(buf)
			if n > 0 {
				pcm = append(pcm, buf[:n]...)
				if src != nil {
					src.Push(buf[:n])
				}
			}
			switch {
			case err == io.EOF:
				return nil
			case errors.Is(err, vosc.ErrOverrun):
				log.Printf("overrun: %v", err)
			case err != nil:
				return err
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		return dev.Stop()
	})
	if term.IsTerminal(int(os.Stdout.Fd())) {
		g.Go(func() error {
			t := time.NewTicker(250 * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					fmt.Println()
					return nil
				case <-t.C:
					fmt.Printf("\r%6.2fs  periods %-6d  position %-6d  silent %-6d",
						time.Since(started).Seconds(), dev.PeriodsElapsed(),
						dev.CapturePositionFrames(), dev.SilentBytes())
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(*outPath, vosc.EncodeWAV(pcm, p), 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %d bytes (%d periods) to %s\n", len(pcm), dev.PeriodsElapsed(), *outPath)
	if pl != nil {
		fmt.Printf("monitor: %d frames played, %d underruns\n", pl.Frames(), src.Underruns())
	}
}
