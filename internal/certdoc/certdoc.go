// Package certdoc renders the shareable documents of a summit certificate:
// a QR code pointing at the public verification URL and a printable PDF.
package certdoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

// QRSize is the edge length in pixels of generated QR images.
const QRSize = 256

// Links builds the public URLs of a certificate from the site base URL.
type Links struct {
	BaseURL string
}

// Verify is the public page a QR code resolves to.
func (l Links) Verify(code string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/api/certificates/verify/" + code
}

// Documents returns the pdf and qr paths stored on a new certificate.
func (l Links) Documents(code string) (pdfURL, qrURL string) {
	return "/api/certificates/" + code + "/pdf", "/api/certificates/" + code + "/qr"
}

// QR encodes url as a PNG QR code.
func QR(url string) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, QRSize)
}

// PDF renders a one-page landscape certificate.  holder is the display
// name printed on it; verifyURL is embedded as a QR code.
func PDF(c *model.Certificate, holder, verifyURL string) ([]byte, error) {
	qrPNG, err := QR(verifyURL)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Summit Certificate "+c.VerificationCode, true)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetY(30)
	pdf.CellFormat(0, 14, "Certificate of Summit", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.Ln(6)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 24)
	pdf.Ln(2)
	pdf.CellFormat(0, 12, tr(holder), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.Ln(2)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("reached %s (%d m)", c.PeakName, c.Altitude)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("on the %s expedition", c.ExpeditionTitle)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, c.SummitDate.UTC().Format("2 January 2006"), "", 1, "C", false, 0, "")

	pdf.SetFont("Courier", "", 10)
	pdf.SetXY(20, 178)
	pdf.CellFormat(0, 6, "Verification code: "+c.VerificationCode, "", 1, "L", false, 0, "")
	pdf.SetX(20)
	pdf.CellFormat(0, 6, verifyURL, "", 1, "L", false, 0, "")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 237, 150, 40, 40, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
