// Package beacon implements the three public beacon endpoint shapes: the
// no-JS tracking pixel, the JS tracker script (GET), and the JS tracker
// beacon (POST).
package beacon

import "net/http"

// pixelGIF is a static, valid 1x1 transparent GIF89a image: magic bytes,
// little-endian 1x1 logical screen descriptor, a minimal global color table,
// and a single image descriptor with no pixel data of consequence. Every
// pixel beacon returns exactly these bytes regardless of outcome, so the
// response never leaks whether tracking actually happened.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // GIF89a
	0x01, 0x00, 0x01, 0x00, // width=1, height=1
	0x80, 0x00, 0x00, // packed fields, background color index, pixel aspect ratio
	0xFF, 0xFF, 0xFF, // global color table: white
	0x00, 0x00, 0x00, // global color table: black
	0x21, 0xF9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, // graphic control extension
	0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, // image descriptor
	0x02, 0x02, 0x44, 0x01, 0x00, // image data
	0x3B, // trailer
}

func writePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pixelGIF)
}
