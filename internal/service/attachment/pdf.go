package attachment

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfPageCount 探测 PDF 页数，非 PDF 或解析失败返回 nil
// 页数只是响应的附加信息，任何失败都不影响挂载流程
func pdfPageCount(content []byte, contentType, fileName string) (count *int) {
	isPDF := contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(fileName), ".pdf")
	if !isPDF {
		return nil
	}

	// 解析库对损坏的 PDF 可能 panic
	defer func() {
		if r := recover(); r != nil {
			count = nil
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil
	}
	n := reader.NumPage()
	if n <= 0 {
		return nil
	}
	return &n
}
