// Package processor runs the audio enrichment of filtered posts: download,
// size and duration caps, tone labels, transcript and spoken language.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/gate"
	"creator-scout-go/internal/media"
	"creator-scout-go/internal/metrics"
	"creator-scout-go/internal/tone"
	"creator-scout-go/internal/types"
)

// ToneTopK is how many tone labels are kept per item.
const ToneTopK = 5

var (
	ErrTooLarge = errors.New("audio exceeds size limit")
	ErrTooLong  = errors.New("audio exceeds duration limit")
)

type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

type Media interface {
	Probe(ctx context.Context, path string) (media.Probe, error)
	ToWaveform(ctx context.Context, in, out string) error
}

type ToneClassifier interface {
	Classify(ctx context.Context, path string) ([]tone.Label, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

type Options struct {
	MaxBytes    int64
	MaxDuration time.Duration
	ItemTimeout time.Duration
	TempDir     string
}

type Stage struct {
	gate       *gate.Gate
	downloader Downloader
	media      Media
	tone       ToneClassifier
	transcribe Transcriber
	language   LanguageDetector
	opts       Options
	log        *logrus.Entry
}

func NewStage(g *gate.Gate, d Downloader, m Media, tc ToneClassifier, tr Transcriber, ld LanguageDetector, opts Options, log *logrus.Entry) *Stage {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 20 << 20
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 90 * time.Second
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 3 * time.Minute
	}
	return &Stage{
		gate:       g,
		downloader: d,
		media:      m,
		tone:       tc,
		transcribe: tr,
		language:   ld,
		opts:       opts,
		log:        log.WithField("component", "audio-enrichment"),
	}
}

// EnrichAll enriches every item that has an audio track. Items are queued on
// the gate concurrently and processed one at a time; failures stay local to
// their item. It returns once every item has been attempted.
func (s *Stage) EnrichAll(ctx context.Context, items []*types.EnrichedItem) {
	var wg sync.WaitGroup
	for _, it := range items {
		if it.AudioRef() == "" {
			metrics.IncAudio("skipped")
			continue
		}
		wg.Add(1)
		go func(it *types.EnrichedItem) {
			defer wg.Done()
			if err := s.Enrich(ctx, it); err != nil {
				metrics.IncAudio("failed")
				s.log.WithFields(logrus.Fields{"item_id": it.ID, "error": err.Error()}).Warn("audio enrichment failed")
				return
			}
			metrics.IncAudio("enriched")
		}(it)
	}
	wg.Wait()
}

type result struct {
	audioType string
	text      string
	language  string
}

// Enrich runs the gated enrichment for one item. On a fatal error the item's
// enrichment fields are left empty.
func (s *Stage) Enrich(ctx context.Context, item *types.EnrichedItem) error {
	ref := item.AudioRef()
	if ref == "" {
		return nil
	}
	var res result
	err := s.gate.WithExclusiveAccess(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
		defer cancel()
		var err error
		res, err = s.process(ctx, item.ID, ref)
		return err
	})
	if err != nil {
		return err
	}
	item.AudioType = res.audioType
	item.AudioText = res.text
	item.AudioLanguage = res.language
	return nil
}

func (s *Stage) process(ctx context.Context, id, ref string) (result, error) {
	log := s.log.WithField("item_id", id)
	var res result

	audioPath, err := s.download(ctx, ref)
	if err != nil {
		return res, err
	}
	defer removeFile(log, audioPath)

	if s.media != nil {
		probe, err := s.media.Probe(ctx, audioPath)
		if err != nil {
			return res, fmt.Errorf("probe audio: %w", err)
		}
		if limit := s.opts.MaxDuration.Seconds(); probe.DurationSeconds > limit {
			return res, fmt.Errorf("%w: %.1fs > %.0fs", ErrTooLong, probe.DurationSeconds, limit)
		}
	}

	if err := s.gate.CheckHeadroom(); err != nil {
		return res, err
	}
	if s.tone != nil {
		if labels, err := s.classify(ctx, audioPath); err != nil {
			log.WithField("error", err.Error()).Warn("tone classification failed")
		} else {
			res.audioType = strings.Join(tone.TopLabels(labels, ToneTopK), ",")
		}
	}

	if err := s.gate.CheckHeadroom(); err != nil {
		return res, err
	}
	if s.transcribe == nil {
		return res, nil
	}
	text, err := s.transcribe.Transcribe(ctx, audioPath)
	if err != nil {
		log.WithField("error", err.Error()).Warn("transcription failed")
		return res, nil
	}
	res.text = text

	if err := s.gate.CheckHeadroom(); err != nil {
		return res, err
	}
	if s.language != nil && text != "" {
		lang, err := s.language.DetectLanguage(ctx, text)
		if err != nil {
			log.WithField("error", err.Error()).Warn("language detection failed")
			return res, nil
		}
		res.language = lang
	}
	return res, nil
}

// classify decodes to a waveform first when a decoder is available.
func (s *Stage) classify(ctx context.Context, audioPath string) ([]tone.Label, error) {
	if s.media == nil {
		return s.tone.Classify(ctx, audioPath)
	}
	wav, err := os.CreateTemp(s.opts.TempDir, "tone-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create waveform file: %w", err)
	}
	wavPath := wav.Name()
	wav.Close()
	defer removeFile(s.log, wavPath)

	if err := s.media.ToWaveform(ctx, audioPath, wavPath); err != nil {
		return nil, err
	}
	return s.tone.Classify(ctx, wavPath)
}

// download streams ref into a temp file, enforcing the byte cap both from
// the advertised length and while copying.
func (s *Stage) download(ctx context.Context, ref string) (string, error) {
	body, size, err := s.downloader.Download(ctx, ref)
	if err != nil {
		return "", err
	}
	defer body.Close()
	if size > s.opts.MaxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, size, s.opts.MaxBytes)
	}

	f, err := os.CreateTemp(s.opts.TempDir, "audio-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	n, copyErr := io.Copy(f, io.LimitReader(body, s.opts.MaxBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("write audio: %w", copyErr)
	case closeErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("close audio: %w", closeErr)
	case n > s.opts.MaxBytes:
		os.Remove(path)
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.opts.MaxBytes)
	}
	return path, nil
}

func removeFile(log *logrus.Entry, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Warn("temp file cleanup failed: " + err.Error())
	}
}
