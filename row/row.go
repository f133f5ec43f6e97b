// Package row implements the fixed-schema record stored at the leaves of
// the B+-tree: an id plus a short name and description, encoded to and
// decoded from a constant-width byte slice.
package row

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	IDSize          = 8
	NameSize        = 32
	DescriptionSize = 256

	// Size is the exact on-disk width of an encoded row.
	Size = IDSize + NameSize + DescriptionSize
)

const (
	idOffset          = 0
	nameOffset        = idOffset + IDSize
	descriptionOffset = nameOffset + NameSize
)

// ErrNameTooLong is returned by Encode when Name exceeds NameSize bytes.
var ErrNameTooLong = errors.New("name too long")

// ErrDescriptionTooLong is returned by Encode when Description exceeds
// DescriptionSize bytes.
var ErrDescriptionTooLong = errors.New("description too long")

// Row is the table's one fixed record shape.
type Row struct {
	ID          uint64
	Name        string
	Description string
}

// Encode serializes r into dst, which must be exactly Size bytes long.
// Name/Description are zero-padded; Encode defensively rejects oversized
// fields even though the external parser is expected to have already
// rejected them.
func Encode(r Row, dst []byte) error {
	if len(dst) != Size {
		return errors.Errorf("row: dst length %d, expected %d", len(dst), Size)
	}
	if len(r.Name) > NameSize {
		return ErrNameTooLong
	}
	if len(r.Description) > DescriptionSize {
		return ErrDescriptionTooLong
	}

	for i := range dst {
		dst[i] = 0
	}

	binary.LittleEndian.PutUint64(dst[idOffset:idOffset+IDSize], r.ID)
	copy(dst[nameOffset:nameOffset+NameSize], r.Name)
	copy(dst[descriptionOffset:descriptionOffset+DescriptionSize], r.Description)
	return nil
}

// Decode reconstructs a Row from src, which must be exactly Size bytes.
// Name and Description are recovered as the prefix up to the first zero
// byte, or the full field width if there is none.
func Decode(src []byte) (Row, error) {
	if len(src) != Size {
		return Row{}, errors.Errorf("row: src length %d, expected %d", len(src), Size)
	}

	id := binary.LittleEndian.Uint64(src[idOffset : idOffset+IDSize])
	name := trimZero(src[nameOffset : nameOffset+NameSize])
	description := trimZero(src[descriptionOffset : descriptionOffset+DescriptionSize])

	return Row{ID: id, Name: name, Description: description}, nil
}

func trimZero(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
