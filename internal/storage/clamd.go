package storage

import (
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// ClamdScanner 通过 clamd 流式扫描上传文件。
type ClamdScanner struct {
	addr string
}

// NewClamdScanner 返回扫描器，addr 为空时返回 nil（不扫描）。
func NewClamdScanner(addr string) *ClamdScanner {
	if addr == "" {
		return nil
	}
	return &ClamdScanner{addr: addr}
}

// Scan 命中病毒时返回 ErrInfected。
func (s *ClamdScanner) Scan(r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := clamd.NewClamd(s.addr).ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}

	var verdict error
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			verdict = ErrInfected
		default:
			if verdict == nil {
				verdict = fmt.Errorf("clamd: %s %s", result.Status, result.Description)
			}
		}
	}
	return verdict
}
