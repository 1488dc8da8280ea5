package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// ExtractText turns an uploaded file into plain text. Pages are joined with a
// blank line so the splitter sees them as paragraphs.
func ExtractText(filename string, data []byte) (string, commonModels.DocType, error) {
	docType := getDocType(filename)

	var pages []rawPage
	var err error
	switch docType {
	case commonModels.PDF:
		pages, err = extractPDF(data)
	case commonModels.DOCX:
		pages, err = extractdocxTxtRtf(filename, data)
	case commonModels.TXT:
		pages, err = extractPlainText(data)
	default:
		return "", docType, ragErrors.Validation("Unsupported file type")
	}
	if err != nil {
		return "", docType, err
	}

	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			parts = append(parts, p.Content)
		}
	}
	return strings.Join(parts, "\n\n"), docType, nil
}

var (
	errPageTimeout = errors.New("page extraction timed out")
	errNullPage    = errors.New("null page")
)

func extractPDF(data []byte) ([]rawPage, error) {
	f, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Error("failed opening of pdf file", "error", err)
		return nil, ragErrors.Validation("The uploaded PDF could not be read.")
	}

	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	return collectPages(numPages, func(i int) (string, error) {
		page := f.Page(i)
		if page.V.IsNull() {
			return "", errNullPage
		}
		return protectExtract(page, config.PdfPageTimeout)
	})
}

// collectPages reads pages 1..numPages, skipping the ones that fail. Every
// timed out page leaves its reader goroutine running, so a document gives up
// after MaxPdfPageTimeouts of them.
func collectPages(numPages int, extract func(page int) (string, error)) ([]rawPage, error) {
	var pages []rawPage
	timeouts := 0
	for i := 1; i <= numPages; i++ {
		content, err := extract(i)
		switch {
		case errors.Is(err, errNullPage):
			logger.Debug("extractPDF", "skipping null page", i)
			continue
		case errors.Is(err, errPageTimeout):
			timeouts++
			logger.Warn("Page extraction timed out", "page", i, "timeouts", timeouts)
			if timeouts >= config.MaxPdfPageTimeouts {
				return nil, ragErrors.Validation("The uploaded PDF took too long to read.")
			}
			continue
		case err != nil:
			// Log warning but continue with other pages
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractdocxTxtRtf handles .docx, .odt and .rtf. cat reads from a path, so the
// upload is spooled to a temp file that keeps the original extension.
func extractdocxTxtRtf(filename string, data []byte) ([]rawPage, error) {
	tmp, err := os.CreateTemp("", "doctalk-upload-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return nil, ragErrors.Persistence("spool", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil {
			logger.Warn("Error removing temp file", "error", err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, ragErrors.Persistence("spool", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, ragErrors.Persistence("spool", err)
	}

	text, err := cat.File(tmp.Name())
	if err != nil {
		logger.Error("Error extracting content from doc", "error", err)
		return nil, ragErrors.Validation("The uploaded document could not be read.")
	}

	// cat has no page information, the whole document is one page
	return []rawPage{{Number: 1, Content: text}}, nil
}

func extractPlainText(data []byte) ([]rawPage, error) {
	if !utf8.Valid(data) {
		return nil, ragErrors.Validation("Text files must be UTF-8 encoded.")
	}
	return []rawPage{{Number: 1, Content: string(data)}}, nil
}

// protectExtract bounds one page read by timeout. The pdf reader cannot be
// cancelled, so on timeout its goroutine keeps running until the page is done.
func protectExtract(page pdf.Page, timeout time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			// malformed content streams panic inside the pdf reader
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("pdf page panic: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errPageTimeout
	}
}
