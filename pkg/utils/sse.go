package utils

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
)

// SetupSSEHeaders 设置Server-Sent Events响应头
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SendSSEChunk 发送不带事件名的数据块
func SendSSEChunk(w http.ResponseWriter, flusher http.Flusher, payload interface{}) {
	SendSSEEvent(w, flusher, "", payload)
}

// SendSSEEvent 发送带事件类型的SSE消息；event 为空时只写 data 行
func SendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal sse payload: %v", err)
		return
	}

	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			log.Warnf("failed to write sse event: %v", err)
			return
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		log.Warnf("failed to write sse payload: %v", err)
		return
	}
	flusher.Flush()
}
