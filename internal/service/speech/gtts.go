package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/zhouzirui/z-bots/backend/internal/model/speech"
)

// gttsMaxChars is the longest text the translate endpoint accepts per call.
const gttsMaxChars = 100

// GTTSClient 通过 Google Translate 的 TTS 接口合成 mp3
type GTTSClient struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewGTTSClient 创建 gTTS 客户端
func NewGTTSClient(config *speech.SpeechConfig) *GTTSClient {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(config.GTTSBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://translate.google.com"
	}
	language := config.TTSLanguage
	if language == "" {
		language = "en"
	}
	return &GTTSClient{
		baseURL:    baseURL,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements ttsProvider.
func (c *GTTSClient) Name() string { return "gtts" }

// Synthesize 分段请求并拼接 mp3 数据
func (c *GTTSClient) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	chunks := SplitText(req.Text, gttsMaxChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("TTS text is empty")
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = c.language
	}

	var audio bytes.Buffer
	for idx, chunk := range chunks {
		data, err := c.fetch(ctx, chunk, language, idx, len(chunks))
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}

	log.Debugf("[gtts] synthesized chunks=%d bytes=%d lang=%s", len(chunks), audio.Len(), language)
	return &speech.TTSResponse{
		SessionID: req.SessionID,
		AudioData: audio.Bytes(),
		Format:    "mp3",
		Provider:  c.Name(),
		CreatedAt: time.Now(),
	}, nil
}

func (c *GTTSClient) fetch(ctx context.Context, text, language string, idx, total int) ([]byte, error) {
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("q", text)
	query.Set("tl", language)
	query.Set("client", "tw-ob")
	query.Set("total", strconv.Itoa(total))
	query.Set("idx", strconv.Itoa(idx))
	query.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate_tts?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gTTS request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")
	httpReq.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gTTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gTTS returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gTTS audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("gTTS audio is empty")
	}
	return data, nil
}

// SplitText breaks text into pieces of at most limit runes, preferring word
// boundaries. Words longer than limit are cut.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		limit = gttsMaxChars
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(runes) == 0 {
			continue
		}

		need := len(runes)
		if size > 0 {
			need++
		}
		if size+need > limit {
			flush()
		}
		if size > 0 {
			current.WriteByte(' ')
			size++
		}
		current.WriteString(string(runes))
		size += len(runes)
	}
	flush()
	return chunks
}
