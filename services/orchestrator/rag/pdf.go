// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText pulls plain text from a PDF, page by page.
//
// # Description
//
// Pages are concatenated in order. A page that fails extraction is skipped
// and logged rather than aborting the document; scanned or malformed pages
// should not block the extractable ones.
//
// # Outputs
//
//   - string: concatenated page texts. May be empty for image-only PDFs.
//   - error: only when the bytes are not a readable PDF at all.
func ExtractPDFText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		text, err := extractPage(reader, i)
		if err != nil {
			slog.Warn("Skipping unextractable PDF page", "page", i, "error", err)
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// extractPage isolates one page extraction. The pdf library panics on some
// malformed content streams, so the panic is converted to a per-page error.
func extractPage(reader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page extraction panicked: %v", r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is null", pageNum)
	}
	return page.GetPlainText(nil)
}
