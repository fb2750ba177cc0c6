// Package recognize turns encoded frames into barcode values.
//
// Recognizer is the seam the scan session calls; ZXing implements it with
// gozxing's UPC/EAN readers restricted to the configured symbologies. The
// three outcomes are kept distinct: a found value, nothing found (including
// checksum and format rejections), and a recognizer failure such as an
// undecodable image.
package recognize
