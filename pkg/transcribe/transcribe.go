package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	openrouterx "github.com/tanpawarit/clinical-intake-orchestrator/pkg/openrouter"
)

var (
	ErrDisabled          = errors.New("transcribe: api key is not configured")
	ErrInvalidURL        = errors.New("transcribe: invalid audio url")
	ErrInvalidFile       = errors.New("transcribe: audio file is not readable")
	ErrUnsupportedFormat = errors.New("transcribe: unsupported audio format")
	ErrAudioTooLarge     = errors.New("transcribe: audio file too large")
	ErrTransport         = errors.New("transcribe: transport failure")
	ErrEmptyTranscript   = errors.New("transcribe: empty transcript")
)

type Config struct {
	BaseURL        string        `split_words:"true" default:"https://api.openai.com/v1"`
	APIKey         string        `split_words:"true"`
	Model          string        `split_words:"true" default:"whisper-1"`
	Language       string        `split_words:"true"`
	MaxBytes       int64         `split_words:"true" default:"26214400"`
	Timeout        time.Duration `split_words:"true" default:"30s"`
	AllowedFormats []string      `split_words:"true" default:"mp3,wav,m4a,ogg,flac,aac"`
}

var contentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"webm": "audio/webm",
}

// Client downloads audio by URL, or reads it from disk, and sends it to a
// Whisper-compatible transcription endpoint.
type Client struct {
	api        *openaisdk.Client
	httpClient *http.Client
	model      string
	language   string
	maxBytes   int64
	allowed    map[string]bool
}

func NewClient(cfg Config) (*Client, error) {
	api, err := openrouterx.NewClient(openrouterx.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		if errors.Is(err, openrouterx.ErrMissingAPIKey) {
			return nil, ErrDisabled
		}
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openaisdk.AudioModelWhisper1)
	}

	allowed := make(map[string]bool, len(cfg.AllowedFormats))
	for _, f := range cfg.AllowedFormats {
		if f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), ".")); f != "" {
			allowed[f] = true
		}
	}
	if len(allowed) == 0 {
		for _, f := range []string{"mp3", "wav", "m4a", "ogg", "flac", "aac"} {
			allowed[f] = true
		}
	}

	return &Client{
		api:        api,
		httpClient: &http.Client{Timeout: timeout},
		model:      model,
		language:   strings.TrimSpace(cfg.Language),
		maxBytes:   maxBytes,
		allowed:    allowed,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// TranscribeURL returns the text spoken in the audio file at audioURL.
func (c *Client) TranscribeURL(ctx context.Context, audioURL string) (string, error) {
	u, format, err := c.checkURL(audioURL)
	if err != nil {
		return "", err
	}

	started := time.Now()
	audio, err := c.download(ctx, u)
	if err != nil {
		return "", err
	}
	return c.transcribe(ctx, audio, path.Base(u.Path), format, started)
}

// TranscribeFile returns the text spoken in a local audio file. The same
// format whitelist and size limit as TranscribeURL apply.
func (c *Client) TranscribeFile(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: file path is empty", ErrInvalidFile)
	}
	format, err := c.checkFormat(name)
	if err != nil {
		return "", err
	}

	started := time.Now()
	audio, err := c.readFile(name)
	if err != nil {
		return "", err
	}
	return c.transcribe(ctx, audio, filepath.Base(name), format, started)
}

func (c *Client) transcribe(ctx context.Context, audio []byte, filename string, format string, started time.Time) (string, error) {
	params := openaisdk.AudioTranscriptionNewParams{
		File:  openaisdk.File(bytes.NewReader(audio), filename, contentTypes[format]),
		Model: openaisdk.AudioModel(c.model),
	}
	if c.language != "" {
		params.Language = openaisdk.String(c.language)
	}

	res, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: transcription request: %w", ErrTransport, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	log.Info().
		Str("format", format).
		Str("size", humanize.IBytes(uint64(len(audio)))).
		Int("chars", len(text)).
		Dur("latency", time.Since(started)).
		Msg("audio transcribed")
	return text, nil
}

func (c *Client) checkURL(raw string) (*url.URL, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	format, err := c.checkFormat(u.Path)
	if err != nil {
		return nil, "", err
	}
	return u, format, nil
}

func (c *Client) checkFormat(name string) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if !c.allowed[format] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return format, nil
}

func (c *Client) download(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: download audio: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download audio: status %d", ErrTransport, resp.StatusCode)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, c.tooLarge(resp.ContentLength)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %w", ErrTransport, err)
	}
	if int64(len(audio)) > c.maxBytes {
		return nil, c.tooLarge(int64(len(audio)))
	}
	return audio, nil
}

func (c *Client) readFile(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFile, name)
	}
	if info.Size() > c.maxBytes {
		return nil, c.tooLarge(info.Size())
	}

	audio, err := io.ReadAll(io.LimitReader(f, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %w", ErrInvalidFile, err)
	}
	if int64(len(audio)) > c.maxBytes {
		return nil, c.tooLarge(int64(len(audio)))
	}
	return audio, nil
}

func (c *Client) tooLarge(n int64) error {
	return fmt.Errorf("%w: %s exceeds the %s limit", ErrAudioTooLarge, humanize.IBytes(uint64(n)), humanize.IBytes(uint64(c.maxBytes)))
}
