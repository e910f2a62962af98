// Package label renders printable HTML labels (product sticker, BIS, mono
// unit, master carton) from inventory API data. Barcodes are Code128 via
// github.com/boombuler/barcode and QR codes via github.com/skip2/go-qrcode,
// both inlined as PNG data URIs so a page is a single self-contained file.
package label
