package label

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/mmr-tortoise/lotscan/internal/host"
	"github.com/mmr-tortoise/lotscan/internal/inventory"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Kind is the type of printed label.
type Kind string

const (
	KindSticker Kind = "sticker"
	KindBIS     Kind = "bis"
	KindMono    Kind = "mono"
	KindMaster  Kind = "master"
)

// Bar and QR sizes, in pixels.
const (
	barModule    = 2
	barHeight    = 40
	monoQRSize   = 120
	masterQRSize = 200
)

// serialSeparator joins carton serials in the master QR payload; handheld
// readers at the receiving end split on it.
const serialSeparator = "\n\r"

// Page is one rendered label.
type Page struct {
	Kind     Kind
	FileName string
	HTML     []byte
}

// FileName returns "<txn>_<kind>-label.html". Path separators in txn are
// replaced so the name stays inside the output directory.
func FileName(txn string, kind Kind) string {
	txn = strings.NewReplacer("/", "-", `\`, "-", "..", "-").Replace(strings.TrimSpace(txn))
	return fmt.Sprintf("%s_%s-label.html", txn, kind)
}

// Save hands the page to saver and returns where it was written.
func Save(ctx context.Context, saver host.Saver, p *Page) (string, error) {
	return saver.Save(ctx, p.FileName, p.HTML)
}

func render(kind Kind, txn string, data any) (*Page, error) {
	if strings.TrimSpace(txn) == "" {
		return nil, fmt.Errorf("%s label: missing transaction number", kind)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(kind)+".html", data); err != nil {
		return nil, fmt.Errorf("failed to render %s label: %w", kind, err)
	}
	return &Page{Kind: kind, FileName: FileName(txn, kind), HTML: buf.Bytes()}, nil
}

// RenderSticker renders the product sticker with a barcode of the serial.
func RenderSticker(p *inventory.Product) (*Page, error) {
	bar, err := Barcode(p.SerialNo.String(), barModule, barHeight)
	if err != nil {
		return nil, err
	}
	return render(KindSticker, p.Txn.String(), struct {
		Name, Model, Voltage, Current, PNCode, SerialNo, MadeBy string
		Barcode                                                 template.URL
	}{
		Name:     p.Name.String(),
		Model:    p.Model.String(),
		Voltage:  p.Input.Voltage.String(),
		Current:  p.Input.Current.String(),
		PNCode:   p.PNCode.String(),
		SerialNo: p.SerialNo.String(),
		MadeBy:   p.MadeBy.String(),
		Barcode:  bar,
	})
}

// RenderBIS renders the three-line certification label.
func RenderBIS(b *inventory.BISLabel) (*Page, error) {
	return render(KindBIS, b.Txn.String(), b)
}

// RenderMono renders a single-unit label: serial and ICCID barcodes and a
// QR code of the unit URL.
func RenderMono(m *inventory.MonoResult) (*Page, error) {
	serialBar, err := Barcode(m.SerialNo.String(), barModule, barHeight)
	if err != nil {
		return nil, err
	}
	iccidBar, err := Barcode(m.ICCID.String(), barModule, barHeight)
	if err != nil {
		return nil, err
	}
	qr, err := QR(m.QRURL.String(), monoQRSize, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return render(KindMono, m.Txn.String(), struct {
		SerialNo, ICCID, QRURL, Operator string
		SerialBarcode, ICCIDBarcode, QR  template.URL
	}{
		SerialNo:      m.SerialNo.String(),
		ICCID:         m.ICCID.String(),
		QRURL:         m.QRURL.String(),
		Operator:      m.Operator.String(),
		SerialBarcode: serialBar,
		ICCIDBarcode:  iccidBar,
		QR:            qr,
	})
}

// RenderMaster renders the master carton label. The QR code carries every
// serial of the carton.
func RenderMaster(c *inventory.MasterCarton) (*Page, error) {
	if len(c.Serials) == 0 {
		return nil, fmt.Errorf("master label: carton has no serials")
	}
	qr, err := QR(strings.Join(c.Serials, serialSeparator), masterQRSize, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	boxBar, err := Barcode(c.BoxNumber.String(), barModule, barHeight)
	if err != nil {
		return nil, err
	}
	lotSize := c.LotLength.String()
	if lotSize == "" {
		lotSize = fmt.Sprint(len(c.Serials))
	}
	return render(KindMaster, c.Txn.String(), struct {
		BoxNumber, DeviceModel, Operator, Date, LotSize         string
		NFCEnabled, AdaptorIncluded, QREnabled, SIMCardIncluded string
		QR, BoxBarcode                                          template.URL
	}{
		BoxNumber:       c.BoxNumber.String(),
		DeviceModel:     c.DeviceModel.String(),
		Operator:        c.Operator.String(),
		Date:            c.TxnDate.String(),
		LotSize:         lotSize,
		NFCEnabled:      yesNo(c.NFCEnabled),
		AdaptorIncluded: yesNo(c.AdaptorIncluded),
		QREnabled:       yesNo(c.QREnabled),
		SIMCardIncluded: yesNo(c.SIMCardIncluded),
		QR:              qr,
		BoxBarcode:      boxBar,
	})
}

// yesNo prints boolean flags as Yes/No and passes other text through.
func yesNo(t inventory.Text) string {
	switch strings.ToLower(t.String()) {
	case "true", "1", "yes":
		return "Yes"
	case "false", "0", "no", "":
		return "No"
	default:
		return t.String()
	}
}
