package relay

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/fmueller/voxrelay/internal/audio"
	"github.com/fmueller/voxrelay/internal/history"
	"go.uber.org/zap"
)

type Options struct {
	Store       AudioStore
	Transcriber Transcriber
	Generator   Generator
	History     *history.Log
	Logger      *zap.Logger

	// Language is the hint passed to the transcriber, e.g. "ru" or "auto".
	Language string

	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
}

// Service runs the upload and message flows against its collaborators.
type Service struct {
	store       AudioStore
	transcriber Transcriber
	generator   Generator
	history     *history.Log
	logger      *zap.Logger
	language    string

	transcribeTimeout time.Duration
	generateTimeout   time.Duration

	now     func() time.Time
	inspect func(path string) (audio.Info, error)
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hist := opts.History
	if hist == nil {
		hist = history.NewLog()
	}

	return &Service{
		store:             opts.Store,
		transcriber:       opts.Transcriber,
		generator:         opts.Generator,
		history:           hist,
		logger:            logger,
		language:          opts.Language,
		transcribeTimeout: opts.TranscribeTimeout,
		generateTimeout:   opts.GenerateTimeout,
		now:               time.Now,
		inspect:           audio.Inspect,
	}
}

// History returns every recorded exchange in completion order.
func (s *Service) History() []history.Record {
	return s.history.All()
}

func (s *Service) HistoryLen() int {
	return s.history.Len()
}

// Upload saves body as a WAV file, transcribes it and answers the transcript.
// It returns *SaveError or *TranscriptionError when the request must be aborted;
// in both cases nothing is recorded.
func (s *Service) Upload(ctx context.Context, body io.Reader) (history.Record, error) {
	started := s.now()
	stamp := started.Format(history.TimeLayout)
	log := s.logger.With(zap.String("request", "upload"), zap.String("time", stamp))

	saved, err := s.store.Save(started, body)
	if err != nil {
		log.Error("failed to save audio", zap.Error(err))
		return history.Record{}, &SaveError{Cause: err}
	}
	log.Info("audio saved", zap.String("file", saved.Name), zap.Int64("bytes", saved.Bytes))
	s.logAudioInfo(log, saved.Path)

	question, err := s.transcribe(ctx, log, saved.Path)
	if err != nil {
		log.Warn("transcription failed", zap.String("file", saved.Name), zap.Error(err))
		if rmErr := s.store.Remove(saved.Path); rmErr != nil {
			log.Warn("failed to remove audio after transcription error", zap.String("file", saved.Name), zap.Error(rmErr))
		} else {
			log.Info("removed audio after transcription error", zap.String("file", saved.Name))
		}
		return history.Record{}, err
	}

	answer := s.answer(ctx, log, question)
	rec := s.record(stamp, question, answer)

	log.Info("upload finished",
		zap.String("question", rec.Question),
		zap.String("answer", rec.Answer),
		zap.Duration("total", time.Since(started)),
	)
	return rec, nil
}

// Message answers text directly. Generation failures are recorded as a
// placeholder answer, so Message never fails.
func (s *Service) Message(ctx context.Context, text string) history.Record {
	started := s.now()
	stamp := started.Format(history.TimeLayout)
	log := s.logger.With(zap.String("request", "message"), zap.String("time", stamp))
	log.Info("received text message", zap.String("text", text))

	answer := s.answer(ctx, log, text)
	rec := s.record(stamp, text, answer)

	log.Info("message finished",
		zap.String("question", rec.Question),
		zap.String("answer", rec.Answer),
		zap.Duration("total", time.Since(started)),
	)
	return rec
}

func (s *Service) transcribe(ctx context.Context, log *zap.Logger, path string) (string, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.transcribeTimeout)
	defer cancel()

	started := time.Now()
	text, err := s.transcriber.Transcribe(ctx, path, s.language)
	if err != nil {
		var te *TranscriptionError
		if errors.As(err, &te) {
			return "", te
		}
		return "", &TranscriptionError{Cause: err}
	}

	text = strings.TrimSpace(text)
	log.Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("chars", len(text)))
	return text, nil
}

func (s *Service) answer(ctx context.Context, log *zap.Logger, prompt string) string {
	ctx, cancel := withOptionalTimeout(ctx, s.generateTimeout)
	defer cancel()

	started := time.Now()
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Warn("generator failed; recording placeholder answer", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return placeholderAnswer(err)
	}

	log.Info("generator answered", zap.Duration("elapsed", time.Since(started)))
	return strings.TrimSpace(text)
}

func (s *Service) record(stamp, question, answer string) history.Record {
	rec := history.Record{Time: stamp, Question: question, Answer: answer}
	s.history.Append(rec)
	return rec
}

func (s *Service) logAudioInfo(log *zap.Logger, path string) {
	if s.inspect == nil {
		return
	}

	info, err := s.inspect(path)
	if err != nil {
		log.Warn("could not inspect audio; transcribing anyway", zap.Error(err))
		return
	}

	log.Debug("audio details",
		zap.Int("sample_rate", info.SampleRate),
		zap.Int("channels", info.Channels),
		zap.Int("bit_depth", info.BitDepth),
		zap.Duration("duration", info.Duration),
		zap.Float64("rms_dbfs", info.RMSdBFS),
		zap.Float64("peak_dbfs", info.PeakdBFS),
	)
	if info.Silent {
		log.Warn("audio looks near silent; transcript may be empty", zap.Duration("duration", info.Duration))
	}
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
