package gatt

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/leso-kn/attgatt"
)

var exportJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ExportProfile writes p to w as indented JSON, for snapshotting a
// discovered server hierarchy to disk or stdout.
func ExportProfile(w io.Writer, p *ble.Profile) error {
	enc := exportJSON.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
