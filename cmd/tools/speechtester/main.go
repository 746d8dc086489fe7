package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	"github.com/zhouzirui/z-bots/backend/internal/logging"
	speechmodel "github.com/zhouzirui/z-bots/backend/internal/model/speech"
	"github.com/zhouzirui/z-bots/backend/internal/service/speech"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warnf("无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	logging.Configure(os.Stderr, cfg.Log.Level)

	text := flag.String("text", "", "待合成文本")
	outputPath := flag.String("out", "", "输出音频文件路径 (默认根据时间戳生成)")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	voice := flag.String("voice", "", "声音 ID，默认使用配置中的 TTSVoice")
	provider := flag.String("provider", "", "覆盖 SPEECH_PROVIDER (gtts 或 volcengine)")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("需要通过 -text 提供待合成文本")
	}

	speechCfg := cfg.Speech.ServiceConfig()
	if *provider != "" {
		speechCfg.Provider = *provider
	}

	svc, err := speech.NewService(speechCfg)
	if err != nil {
		log.Fatalf("语音服务初始化失败: %v", err)
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runTTS(ctx, svc, cfg, sessionID, *text, *voice, *language, *outputPath)
}

func runTTS(ctx context.Context, svc *speech.Service, cfg *config.Config, sessionID, text, voice, language, outputPath string) {
	if voice == "" {
		voice = cfg.Speech.TTSVoice
	}
	if language == "" {
		language = cfg.Speech.Language
	}

	req := &speechmodel.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Language:  language,
	}

	log.Infof("开始进行 TTS 测试: provider=%s session=%s voice=%s language=%s", svc.Provider(), sessionID, voice, language)

	resp, err := svc.SynthesizeSpeech(ctx, req)
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), resp.Format)
	}
	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	log.Infof("TTS 合成成功: 输出文件 %s, 大小=%d bytes", outputPath, len(resp.AudioData))
}
