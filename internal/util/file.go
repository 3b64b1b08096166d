package util

import (
	"net/http"
	"strings"
)

// SniffMimeType 根据文件头判断 MIME 类型
// allowed: 允许的 MIME 前缀或完整类型，如 "image/"；为空时不做限制
func SniffMimeType(data []byte, allowed ...string) (string, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mimeType := http.DetectContentType(head)
	if len(allowed) == 0 {
		return mimeType, nil
	}

	for _, a := range allowed {
		if strings.HasPrefix(mimeType, a) {
			return mimeType, nil
		}
	}
	return mimeType, NewValidationError("", "unsupported file type "+mimeType)
}
