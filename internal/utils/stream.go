package utils

import (
	"net/http"
)

// TextStreamWriter 把文本片段原样写出并立即 flush，不加任何帧格式
type TextStreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	written int
}

func NewTextStreamWriter(w http.ResponseWriter) *TextStreamWriter {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	f, _ := w.(http.Flusher)
	return &TextStreamWriter{w: w, flusher: f}
}

// WriteChunk 写出一个片段
func (s *TextStreamWriter) WriteChunk(chunk string) error {
	if chunk == "" {
		return nil
	}
	n, err := s.w.Write([]byte(chunk))
	s.written += n
	if err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Written 已写出的字节数
func (s *TextStreamWriter) Written() int {
	return s.written
}
