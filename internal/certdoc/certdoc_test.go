package certdoc

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

func TestLinks(t *testing.T) {
	l := Links{BaseURL: "https://k2climbers.com/"}
	assert.Equal(t, "https://k2climbers.com/api/certificates/verify/abc", l.Verify("abc"))
	pdf, qr := l.Documents("abc")
	assert.Equal(t, "/api/certificates/abc/pdf", pdf)
	assert.Equal(t, "/api/certificates/abc/qr", qr)
}

func TestQRIsPNG(t *testing.T) {
	b, err := QR("https://k2climbers.com/api/certificates/verify/0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, QRSize, img.Bounds().Dx())
}

func TestPDF(t *testing.T) {
	c := &model.Certificate{
		ExpeditionTitle:  "K2 Base Camp Trek",
		PeakName:         "Concordia",
		Altitude:         5150,
		SummitDate:       time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		VerificationCode: "0123456789abcdef0123456789abcdef",
	}
	b, err := PDF(c, "Zoë Climber", "https://k2climbers.com/api/certificates/verify/"+c.VerificationCode)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
	assert.Greater(t, len(b), 1000)
}
