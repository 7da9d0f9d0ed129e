package bundlekit

import (
	"howett.net/plist"
)

// Codec encodes and decodes the structured values stored in a bundle's
// property-list files. The facade only ever hands a codec whole byte
// slices; transport to and from the backend stays raw bytes.
type Codec interface {
	// Decode parses data into dst.
	Decode(data []byte, dst any) error

	// Encode serializes v.
	Encode(v any) ([]byte, error)
}

// XMLPlistCodec is the default Codec: XML property lists, tab-indented.
type XMLPlistCodec struct{}

func (XMLPlistCodec) Decode(data []byte, dst any) error {
	_, err := plist.Unmarshal(data, dst)
	return err
}

func (XMLPlistCodec) Encode(v any) ([]byte, error) {
	return plist.MarshalIndent(v, plist.XMLFormat, "\t")
}

// BinaryPlistCodec encodes values as binary property lists. Decoding
// accepts either format.
type BinaryPlistCodec struct{}

func (BinaryPlistCodec) Decode(data []byte, dst any) error {
	_, err := plist.Unmarshal(data, dst)
	return err
}

func (BinaryPlistCodec) Encode(v any) ([]byte, error) {
	return plist.Marshal(v, plist.BinaryFormat)
}

var (
	_ Codec = XMLPlistCodec{}
	_ Codec = BinaryPlistCodec{}
)
