package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const pngDataURIPrefix = "data:image/png;base64,"

// PNGDataURI 把 base64 图片数据包装成浏览器可直接展示的 data URI
func PNGDataURI(b64 string) string {
	return pngDataURIPrefix + b64
}

// DecodeDataURI 解析 data URI，返回原始字节和 MIME 类型
// 不带前缀的纯 base64 也可以解析，默认按 PNG 处理
func DecodeDataURI(uri string) ([]byte, string, error) {
	mimeType := "image/png"
	payload := uri

	if strings.HasPrefix(uri, "data:") {
		idx := strings.Index(uri, ",")
		if idx == -1 {
			return nil, "", fmt.Errorf("data URI 格式错误")
		}
		header := uri[len("data:"):idx]
		payload = uri[idx+1:]

		if !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("仅支持 base64 编码的 data URI")
		}
		if mt := strings.TrimSuffix(header, ";base64"); mt != "" {
			mimeType = mt
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("Base64 解码失败: %w", err)
	}
	return data, mimeType, nil
}
