package composer

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder 增量 UTF-8 解码。跨片段截断的多字节序列会保留到下一个片段，
// 非法字节替换为 U+FFFD。
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode 解码一个片段，返回可以立即显示的文本
func (d *Decoder) Decode(chunk []byte) string {
	return d.decode(chunk, false)
}

// Flush 在流结束时调用，输出剩余字节（不完整序列会变成 U+FFFD）
func (d *Decoder) Flush() string {
	out := d.decode(nil, true)
	d.t.Reset()
	return out
}

// Pending 当前保留的未完成字节数
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	if len(src) == 0 {
		return ""
	}

	var out strings.Builder
	// 每个非法字节最多展开为 3 字节的 U+FFFD
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String()
		case errors.Is(err, transform.ErrShortDst):
			if nSrc == 0 && nDst == 0 {
				dst = make([]byte, 2*len(dst))
			}
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return out.String()
		default:
			// UTF-8 解码器本身不会返回其他错误；保险起见丢弃一个字节继续
			out.WriteRune(utf8.RuneError)
			if len(src) == 0 {
				return out.String()
			}
			src = src[1:]
		}
		if len(src) == 0 {
			return out.String()
		}
	}
}
