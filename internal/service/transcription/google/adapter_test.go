package google

import (
	"encoding/binary"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"ai-debate-graph-service/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
	if cfg.MinSpeakers != 2 || cfg.MaxSpeakers < cfg.MinSpeakers {
		t.Errorf("unexpected speaker bounds %d..%d", cfg.MinSpeakers, cfg.MaxSpeakers)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"UNKNOWN", speechpb.RecognitionConfig_LINEAR16}, // fallback
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // lowercase -> fallback
		{"", speechpb.RecognitionConfig_LINEAR16},        // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func wav(sampleRate uint32, channels, bits uint16) []byte {
	b := make([]byte, wavHeaderSize+4)
	copy(b[0:4], "RIFF")
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint16(b[20:22], 1)
	binary.LittleEndian.PutUint16(b[22:24], channels)
	binary.LittleEndian.PutUint32(b[24:28], sampleRate)
	binary.LittleEndian.PutUint16(b[34:36], bits)
	copy(b[36:40], "data")
	return b
}

func TestRecognitionConfig_WAVHeaderOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AudioEncoding = "FLAC"

	rc := recognitionConfig(cfg, wav(8000, 2, 16))
	if rc.Encoding != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("encoding = %v, want LINEAR16", rc.Encoding)
	}
	if rc.SampleRateHertz != 8000 {
		t.Errorf("sample rate = %d, want 8000", rc.SampleRateHertz)
	}
	if rc.AudioChannelCount != 2 {
		t.Errorf("channels = %d, want 2", rc.AudioChannelCount)
	}
	if !rc.DiarizationConfig.GetEnableSpeakerDiarization() {
		t.Error("diarization should be enabled")
	}
}

func TestRecognitionConfig_NonWAV(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AudioEncoding = "FLAC"

	rc := recognitionConfig(cfg, []byte("fLaC\x00\x00\x00\x22"))
	if rc.Encoding != speechpb.RecognitionConfig_FLAC {
		t.Errorf("encoding = %v, want FLAC", rc.Encoding)
	}
	if rc.SampleRateHertz != cfg.SampleRateHz {
		t.Errorf("sample rate = %d, want %d", rc.SampleRateHertz, cfg.SampleRateHz)
	}
}

func TestParseWAVHeader_Rejects8Bit(t *testing.T) {
	if _, ok := parseWAVHeader(wav(8000, 1, 8)); ok {
		t.Error("8-bit PCM should not be reported as LINEAR16")
	}
	if _, ok := parseWAVHeader([]byte("RIFF")); ok {
		t.Error("short buffer should be rejected")
	}
}

func word(text string, startMs, endMs int64, tag int32) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:       text,
		StartTime:  durationpb.New(time.Duration(startMs) * time.Millisecond),
		EndTime:    durationpb.New(time.Duration(endMs) * time.Millisecond),
		Confidence: 0.5,
		SpeakerTag: tag,
	}
}

func TestBuildTranscript_Diarized(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{
			Transcript: "Cars pollute. They do not.",
			Confidence: 0.9,
			Words: []*speechpb.WordInfo{
				word("Cars", 0, 400, 0), word("pollute.", 400, 900, 0),
				word("They", 1000, 1200, 0), word("do", 1200, 1300, 0), word("not.", 1300, 1600, 0),
			},
		}}},
		// Diarization summary: every word again, now tagged.
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{
			Words: []*speechpb.WordInfo{
				word("Cars", 0, 400, 1), word("pollute.", 400, 900, 1),
				word("They", 1000, 1200, 2), word("do", 1200, 1300, 2), word("not.", 1300, 1600, 2),
			},
		}}},
	}

	tr := buildTranscript("operations/123", results)

	if tr.ExternalID != "operations/123" || tr.Status != models.TranscriptStatusCompleted {
		t.Errorf("unexpected header %q %q", tr.ExternalID, tr.Status)
	}
	if tr.Text != "Cars pollute. They do not." {
		t.Errorf("Text = %q", tr.Text)
	}
	if len(tr.Words) != 5 {
		t.Fatalf("expected 5 words, got %d", len(tr.Words))
	}
	if len(tr.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(tr.Utterances))
	}

	a, b := tr.Utterances[0], tr.Utterances[1]
	if a.Speaker != "A" || a.Text != "Cars pollute." || a.Start != 0 || a.End != 900 {
		t.Errorf("utterance A = %+v", a)
	}
	if b.Speaker != "B" || b.Text != "They do not." || b.Start != 1000 || b.End != 1600 {
		t.Errorf("utterance B = %+v", b)
	}
	if len(b.Words) != 3 {
		t.Errorf("utterance B words = %d, want 3", len(b.Words))
	}
	if tr.AudioDuration != 1.6 {
		t.Errorf("AudioDuration = %v, want 1.6", tr.AudioDuration)
	}
	if tr.Confidence < 0.89 || tr.Confidence > 0.91 {
		t.Errorf("Confidence = %v, want 0.9", tr.Confidence)
	}
}

func TestBuildTranscript_Empty(t *testing.T) {
	tr := buildTranscript("op", nil)
	if tr.Status != models.TranscriptStatusCompleted {
		t.Errorf("Status = %q", tr.Status)
	}
	if tr.Utterances == nil || len(tr.Utterances) != 0 {
		t.Errorf("expected empty non-nil utterances, got %#v", tr.Utterances)
	}
}

func TestSpeakerLabel(t *testing.T) {
	tests := []struct {
		tag  int32
		want string
	}{
		{0, "A"},
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
	}
	for _, tt := range tests {
		if got := speakerLabel(tt.tag); got != tt.want {
			t.Errorf("speakerLabel(%d) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
