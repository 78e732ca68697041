// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// FormatPDF, FormatDOCX and FormatTXT are the supported document formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatTXT  = "txt"
)

// ExtractText extracts plain text from raw document bytes.
//
// The format is matched case-insensitively with any leading dot stripped,
// so both "pdf" and ".PDF" work. Unknown formats fail with
// ErrUnsupportedFormat; unreadable files fail with *ExtractionError.
func ExtractText(data []byte, format string) (string, error) {
	switch normalizeFormat(format) {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	case FormatTXT:
		return extractTXT(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

// extractPDF concatenates per-page plain text in page order.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", NewExtractionError(FormatPDF, "failed to parse PDF", err)
	}

	var parts []string
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages that fail to decode are skipped rather than
			// failing the whole document.
			continue
		}

		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n"), nil
}

var (
	docxParagraphSplit = regexp.MustCompile(`</w:p>`)
	docxTextRun        = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	docxEntityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

// extractDOCX joins non-blank paragraph texts with newlines.
func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", NewExtractionError(FormatDOCX, "failed to parse DOCX", err)
	}
	defer doc.Close()

	// GetContent returns the raw document.xml body; paragraph text is
	// carried in <w:t> runs.
	content := doc.Editable().GetContent()

	var paragraphs []string
	for _, block := range docxParagraphSplit.Split(content, -1) {
		var runs []string
		for _, match := range docxTextRun.FindAllStringSubmatch(block, -1) {
			runs = append(runs, docxEntityReplacer.Replace(match[1]))
		}
		paragraph := strings.TrimSpace(strings.Join(runs, ""))
		if paragraph != "" {
			paragraphs = append(paragraphs, paragraph)
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// extractTXT decodes UTF-8 text, dropping invalid sequences.
func extractTXT(data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), ""), nil
}
