// Package proof renders the PDF proof-of-consent handed to the operator
// whenever a user accepts the terms.
package proof

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/robalyx/termsgate/internal/consent"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// TimestampLayout is the layout of the "Signed on" line.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	fontFamily  = "Helvetica"
	marginLeft  = 40.0
	marginTop   = 36.0
	bannerSize  = 18.0
	bodySize    = 11.0
	bodyLeading = 14.0
	stampSize   = 14.0
	footerSize  = 10.0
	stampOffset = 74.0
	signOffset  = 57.0
)

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the clock used for the signature timestamp and the
// document metadata dates.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithCompression toggles stream compression. Tests disable it to inspect
// the page content.
func WithCompression(enabled bool) Option {
	return func(g *Generator) {
		g.compress = enabled
	}
}

// Generator renders agreement documents for a fixed set of terms.
type Generator struct {
	brand    string
	lines    []string
	now      func() time.Time
	compress bool
}

// NewGenerator creates a generator for the given brand and terms lines.
func NewGenerator(brand string, lines []string, opts ...Option) *Generator {
	g := &Generator{
		brand:    brand,
		lines:    append([]string(nil), lines...),
		now:      time.Now,
		compress: true,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Render builds the agreement for the identity, signed at the current time.
func (g *Generator) Render(id consent.Identity) ([]byte, error) {
	return g.RenderAt(id, g.now())
}

// RenderAt builds the agreement for the identity, signed at the given time.
// Output is byte-identical for equal inputs.
func (g *Generator) RenderAt(id consent.Identity, signedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(g.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(signedAt)
	pdf.SetModificationDate(signedAt)
	pdf.SetTitle(encodeText(g.brand+" Agreement"), false)
	pdf.SetAuthor(encodeText(g.brand), false)
	pdf.SetSubject(FileName(id.ID), false)
	pdf.SetCreator("termsgate", false)
	pdf.SetMargins(marginLeft, marginTop, marginLeft)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	_, pageHeight := pdf.GetPageSize()

	// Banner
	pdf.SetFont(fontFamily, "B", bannerSize)
	pdf.CellFormat(0, bannerSize+6, encodeText(g.brand+" Agreement"), "", 1, "C", false, 0, "")
	pdf.Ln(bodyLeading)

	// Terms and identity
	pdf.SetFont(fontFamily, "", bodySize)

	for _, line := range g.bodyLines(id) {
		pdf.CellFormat(0, bodyLeading, encodeText(line), "", 1, "L", false, 0, "")
	}

	// Stamp
	pdf.SetXY(marginLeft, pageHeight-stampOffset)
	pdf.SetTextColor(0, 128, 0)
	pdf.SetFont(fontFamily, "B", stampSize)
	pdf.CellFormat(0, stampSize+2, "AGREEMENT ACCEPTED", "", 1, "L", false, 0, "")

	pdf.SetXY(marginLeft, pageHeight-signOffset)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "", footerSize)
	pdf.CellFormat(0, footerSize+2, "Signed on: "+signedAt.Format(TimestampLayout), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render agreement for %d: %w", id.ID, err)
	}

	return buf.Bytes(), nil
}

func (g *Generator) bodyLines(id consent.Identity) []string {
	lines := make([]string, 0, len(g.lines)+3)
	lines = append(lines, g.lines...)

	return append(lines,
		"Accepted by User ID: "+strconv.FormatInt(id.ID, 10),
		"Username: @"+id.Username,
		"Full Name: "+id.FullName,
	)
}

// FileName returns the attachment name for a user's agreement.
func FileName(userID int64) string {
	return "Agreement_" + strconv.FormatInt(userID, 10) + ".pdf"
}

// encodeText converts UTF-8 text to the Windows-1252 bytes the core PDF fonts
// expect. Runes without a mapping become '?'.
func encodeText(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteByte(byte(r))
			continue
		}

		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
			continue
		}

		b.WriteByte('?')
	}

	return b.String()
}
