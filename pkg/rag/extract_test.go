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
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_TXT(t *testing.T) {
	t.Run("plain text passes through", func(t *testing.T) {
		text, err := ExtractText([]byte("hello world"), "txt")
		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
	})

	t.Run("invalid UTF-8 sequences are dropped", func(t *testing.T) {
		text, err := ExtractText([]byte{0xff, 0xfe, 'h', 'i'}, "txt")
		require.NoError(t, err)
		assert.Equal(t, "hi", text)
	})

	t.Run("format is case-insensitive with optional dot", func(t *testing.T) {
		for _, format := range []string{"TXT", ".txt", " .TxT "} {
			text, err := ExtractText([]byte("x"), format)
			require.NoError(t, err, "format %q", format)
			assert.Equal(t, "x", text)
		}
	})
}

func TestExtractText_UnsupportedFormat(t *testing.T) {
	for _, format := range []string{"xlsx", "html", "md", ""} {
		_, err := ExtractText([]byte("data"), format)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, "format %q", format)
	}
}

func TestExtractText_CorruptPDF(t *testing.T) {
	_, err := ExtractText([]byte("this is not a pdf file"), "pdf")
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, FormatPDF, extractionErr.Extractor)
}

func buildTestDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = doc.Write([]byte(documentXML))
	require.NoError(t, err)

	rels, err := w.Create("word/_rels/document.xml.rels")
	require.NoError(t, err)
	_, err = rels.Write([]byte(`<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractText_DOCX(t *testing.T) {
	data := buildTestDocx(t, `<?xml version="1.0"?>`+
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+
		`<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>paragraph &amp; more</w:t></w:r></w:p>`+
		`<w:p></w:p>`+
		`</w:body></w:document>`)

	text, err := ExtractText(data, "docx")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph & more", text)
}

func TestExtractText_CorruptDOCX(t *testing.T) {
	_, err := ExtractText([]byte("not a zip archive"), "docx")
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, FormatDOCX, extractionErr.Extractor)
}
