package passbridge

import "strings"

// BarcodeFormat is the barcode symbology shared by both platforms.
type BarcodeFormat string

const (
	BarcodeAztec   BarcodeFormat = "AZTEC"
	BarcodeCode128 BarcodeFormat = "CODE_128"
	BarcodePDF417  BarcodeFormat = "PDF_417"
	BarcodeQR      BarcodeFormat = "QR_CODE"
)

// Barcode is the optional scannable code of a pass.
type Barcode struct {
	Format  BarcodeFormat
	Message string
	AltText string
}

var archiveBarcodeNames = map[BarcodeFormat]string{
	BarcodeAztec:   "PKBarcodeFormatAztec",
	BarcodeCode128: "PKBarcodeFormatCode128",
	BarcodePDF417:  "PKBarcodeFormatPDF417",
	BarcodeQR:      "PKBarcodeFormatQR",
}

// payloadBarcodeAliases lists every accepted payload spelling; the first
// entry per format is the one written on encode.
var payloadBarcodeAliases = map[BarcodeFormat][]string{
	BarcodeAztec:   {"AZTEC", "aztec"},
	BarcodeCode128: {"CODE_128", "code128", "code_128"},
	BarcodePDF417:  {"PDF_417", "pdf417", "pdf_417"},
	BarcodeQR:      {"QR_CODE", "qrCode", "qr_code", "qrcode"},
}

func barcodeFromArchive(name string) (BarcodeFormat, bool) {
	for format, archiveName := range archiveBarcodeNames {
		if archiveName == name {
			return format, true
		}
	}
	return "", false
}

func (f BarcodeFormat) archiveName() string {
	return archiveBarcodeNames[f]
}

func barcodeFromPayload(name string) (BarcodeFormat, bool) {
	for format, aliases := range payloadBarcodeAliases {
		for _, alias := range aliases {
			if strings.EqualFold(alias, name) {
				return format, true
			}
		}
	}
	return "", false
}

func (f BarcodeFormat) payloadName() string {
	if aliases, ok := payloadBarcodeAliases[f]; ok {
		return aliases[0]
	}
	return string(f)
}
