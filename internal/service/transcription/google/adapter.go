// Package google provides a Google Cloud Speech-to-Text transcription
// adapter with speaker diarization.
package google

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/service/transcription"
)

// ProviderName is used in logs and metrics labels.
const ProviderName = "google"

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Config holds Google STT configuration.
type Config struct {
	LanguageCode  string
	SampleRateHz  int32
	AudioEncoding string // LINEAR16, MULAW, FLAC, etc.
	MinSpeakers   int32
	MaxSpeakers   int32
	Model         string
}

// DefaultConfig returns default configuration for two-party debates.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "LINEAR16",
		MinSpeakers:   2,
		MaxSpeakers:   6,
		Model:         "latest_long",
	}
}

// Adapter implements transcription.Transcriber using long-running
// recognition.
type Adapter struct {
	client *speech.Client
	cfg    Config
	logger zerolog.Logger
}

// New creates a new Google adapter. credential is a service-account JSON
// document; when empty the client falls back to application default
// credentials.
func New(ctx context.Context, credential string, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if credential != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credential)))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google speech client: %w", err)
	}
	return &Adapter{
		client: c,
		cfg:    cfg,
		logger: logging.WithComponent("transcription.google"),
	}, nil
}

// Factory returns a transcription.Factory producing adapters with cfg.
func Factory(cfg Config) transcription.Factory {
	return func(ctx context.Context, credential string) (transcription.Transcriber, error) {
		return New(ctx, credential, cfg)
	}
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Transcribe submits audio for diarized recognition and waits for the
// operation to finish. Recognition failures are reported as an error-status
// transcript rather than an error so the caller sees the provider's message.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (*models.Transcript, error) {
	rc := recognitionConfig(a.cfg, audio)

	op, err := a.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: rc,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google long-running recognize: %w", err)
	}

	a.logger.Info().
		Str("operation", op.Name()).
		Int("bytes", len(audio)).
		Int32("sampleRate", rc.SampleRateHertz).
		Msg("Recognition submitted")

	resp, err := op.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn().Err(err).Str("operation", op.Name()).Msg("Recognition failed")
		return &models.Transcript{
			ExternalID: op.Name(),
			Status:     models.TranscriptStatusError,
			Error:      err.Error(),
		}, nil
	}

	return buildTranscript(op.Name(), resp.GetResults()), nil
}

func recognitionConfig(cfg Config, audio []byte) *speechpb.RecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(cfg.AudioEncoding),
		SampleRateHertz:            cfg.SampleRateHz,
		LanguageCode:               cfg.LanguageCode,
		Model:                      cfg.Model,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
		EnableWordConfidence:       true,
		DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          cfg.MinSpeakers,
			MaxSpeakerCount:          cfg.MaxSpeakers,
		},
	}
	if h, ok := parseWAVHeader(audio); ok {
		rc.Encoding = speechpb.RecognitionConfig_LINEAR16
		rc.SampleRateHertz = int32(h.sampleRate)
		rc.AudioChannelCount = int32(h.channels)
	}
	return rc
}

type wavHeader struct {
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// parseWAVHeader reads the canonical 44-byte PCM header. Only 16-bit PCM
// is reported; anything else is left to the configured encoding.
func parseWAVHeader(audio []byte) (wavHeader, bool) {
	if len(audio) < wavHeaderSize {
		return wavHeader{}, false
	}
	if string(audio[0:4]) != "RIFF" || string(audio[8:12]) != "WAVE" {
		return wavHeader{}, false
	}
	h := wavHeader{
		channels:      binary.LittleEndian.Uint16(audio[22:24]),
		sampleRate:    binary.LittleEndian.Uint32(audio[24:28]),
		bitsPerSample: binary.LittleEndian.Uint16(audio[34:36]),
	}
	audioFormat := binary.LittleEndian.Uint16(audio[20:22])
	if audioFormat != 1 || h.bitsPerSample != 16 || h.sampleRate == 0 {
		return wavHeader{}, false
	}
	return h, true
}

// buildTranscript groups diarized words into speaker utterances. With
// diarization on, the final result repeats every word with its speaker tag,
// so words are taken from the last result that carries tags and text from
// the results before it.
func buildTranscript(id string, results []*speechpb.SpeechRecognitionResult) *models.Transcript {
	t := &models.Transcript{
		ExternalID: id,
		Status:     models.TranscriptStatusCompleted,
		Utterances: []models.Utterance{},
		Words:      []models.Word{},
	}

	var texts []string
	var confSum float64
	var confN int
	var tagged []*speechpb.WordInfo
	var untagged []*speechpb.WordInfo
	for _, r := range results {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]
		if hasSpeakerTags(alt.GetWords()) {
			tagged = alt.GetWords()
			continue
		}
		if s := strings.TrimSpace(alt.GetTranscript()); s != "" {
			texts = append(texts, s)
		}
		if alt.GetConfidence() > 0 {
			confSum += float64(alt.GetConfidence())
			confN++
		}
		untagged = append(untagged, alt.GetWords()...)
	}

	words := tagged
	if words == nil {
		words = untagged
	}
	for _, w := range words {
		t.Words = append(t.Words, models.Word{
			Text:       w.GetWord(),
			Start:      w.GetStartTime().AsDuration().Milliseconds(),
			End:        w.GetEndTime().AsDuration().Milliseconds(),
			Confidence: float64(w.GetConfidence()),
			Speaker:    speakerLabel(w.GetSpeakerTag()),
		})
	}
	t.Utterances = groupUtterances(t.Words)

	if len(texts) > 0 {
		t.Text = strings.Join(texts, " ")
	} else {
		t.Text = joinWords(t.Words)
	}
	if confN > 0 {
		t.Confidence = confSum / float64(confN)
	}
	if n := len(t.Words); n > 0 {
		t.AudioDuration = float64(t.Words[n-1].End) / 1000
	}
	return t
}

func hasSpeakerTags(words []*speechpb.WordInfo) bool {
	for _, w := range words {
		if w.GetSpeakerTag() > 0 {
			return true
		}
	}
	return false
}

func groupUtterances(words []models.Word) []models.Utterance {
	out := []models.Utterance{}
	for i := 0; i < len(words); {
		j := i
		for j < len(words) && words[j].Speaker == words[i].Speaker {
			j++
		}
		run := words[i:j]
		var conf float64
		for _, w := range run {
			conf += w.Confidence
		}
		out = append(out, models.Utterance{
			Text:       joinWords(run),
			Start:      run[0].Start,
			End:        run[len(run)-1].End,
			Confidence: conf / float64(len(run)),
			Speaker:    run[0].Speaker,
			Words:      append([]models.Word(nil), run...),
		})
		i = j
	}
	return out
}

func joinWords(words []models.Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// speakerLabel maps diarization tags 1, 2, ... to "A", "B", ... Untagged
// words (tag 0) belong to speaker A.
func speakerLabel(tag int32) string {
	if tag <= 0 {
		tag = 1
	}
	n := int(tag - 1)
	label := ""
	for {
		label = string(rune('A'+n%26)) + label
		n = n/26 - 1
		if n < 0 {
			return label
		}
	}
}

// parseAudioEncoding converts string to Google's AudioEncoding enum.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
