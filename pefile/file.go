// Package pefile provides the minimal PE envelope reading that spec.md
// treats as an external collaborator: locating the CLI-runtime data
// directory and mapping RVAs to file offsets. It is adapted from
// saferwall-pe's dosheader.go/ntheader.go/section.go/helper.go, trimmed
// down to the one data directory (ImageDirectoryEntryCLR) a managed image
// compiler ever needs.
package pefile

import (
	"bytes"
	"encoding/binary"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// minPESize is the smallest plausible PE header size; below this the file
// can't carry a DOS header, NT headers, and at least one data directory.
const minPESize = 97

// File is a read-only view over a PE image's bytes.
type File struct {
	NTHeader NTHeader

	data             []byte
	size             uint32
	numberOfSections uint16
	sections         []sectionHeader
	mapped           mmap.MMap
	f                *os.File
}

// Open memory-maps name and parses its PE envelope.
func Open(name string) (*File, error) {
	osf, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(osf, mmap.RDONLY, 0)
	if err != nil {
		osf.Close()
		return nil, err
	}
	f := &File{data: data, mapped: data, f: osf, size: uint32(len(data))}
	if err := f.parse(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// OpenBytes parses the PE envelope directly out of an in-memory buffer.
func OpenBytes(data []byte) (*File, error) {
	f := &File{data: data, size: uint32(len(data))}
	if err := f.parse(); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the memory mapping, if any.
func (f *File) Close() error {
	if f.mapped != nil {
		_ = f.mapped.Unmap()
	}
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *File) parse() error {
	if f.size < minPESize {
		return ErrInvalidSize
	}
	// NumberOfSections is read ahead of the full COFF-header unpack so
	// parseSectionHeaders knows how many entries to walk; cheap re-read,
	// keeps parseDOSAndNTHeaders self-contained.
	if err := f.peekNumberOfSections(); err != nil {
		return err
	}
	return f.parseDOSAndNTHeaders()
}

func (f *File) peekNumberOfSections() error {
	var dh dosHeader
	if err := f.structUnpack(&dh, 0, uint32(binary.Size(dh))); err != nil {
		return ErrDOSMagicNotFound
	}
	if dh.Magic != imageDOSSignature {
		return ErrDOSMagicNotFound
	}
	if dh.AddressOfNewEXEHeader < 4 || uint64(dh.AddressOfNewEXEHeader) > uint64(f.size) {
		return ErrInvalidElfanew
	}
	n, err := f.ReadUint16(dh.AddressOfNewEXEHeader + 4 + 2)
	if err != nil {
		return err
	}
	f.numberOfSections = n
	return nil
}

// Data returns the raw image bytes. Callers must not mutate the slice.
func (f *File) Data() []byte { return f.data }

// Size returns the image length in bytes.
func (f *File) Size() uint32 { return f.size }

// DataDirectory returns the idx'th data directory entry.
func (f *File) DataDirectory(idx int) DataDirectory {
	if idx < 0 || idx >= NumberOfDirectoryEntries {
		return DataDirectory{}
	}
	return f.NTHeader.DataDirectory[idx]
}

func (f *File) structUnpack(v interface{}, offset, size uint32) error {
	total := offset + size
	if (total > offset) != (size > 0) {
		return ErrOutsideBoundary
	}
	if offset >= f.size || total > f.size {
		return ErrOutsideBoundary
	}
	return binary.Read(bytes.NewReader(f.data[offset:total]), binary.LittleEndian, v)
}

// ReadUint8 reads a single byte at offset.
func (f *File) ReadUint8(offset uint32) (uint8, error) {
	if offset >= f.size {
		return 0, ErrOutsideBoundary
	}
	return f.data[offset], nil
}

// ReadUint16 reads a little-endian uint16 at offset.
func (f *File) ReadUint16(offset uint32) (uint16, error) {
	if offset+2 > f.size || offset+2 < offset {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint16(f.data[offset : offset+2]), nil
}

// ReadUint32 reads a little-endian uint32 at offset.
func (f *File) ReadUint32(offset uint32) (uint32, error) {
	if offset+4 > f.size || offset+4 < offset {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint32(f.data[offset : offset+4]), nil
}

// ReadUint64 reads a little-endian uint64 at offset.
func (f *File) ReadUint64(offset uint32) (uint64, error) {
	if offset+8 > f.size || offset+8 < offset {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint64(f.data[offset : offset+8]), nil
}

// ReadBytes returns a length-sized slice at offset, borrowed from the image.
func (f *File) ReadBytes(offset, length uint32) ([]byte, error) {
	total := offset + length
	if (total > offset) != (length > 0) {
		return nil, ErrOutsideBoundary
	}
	if offset >= f.size || total > f.size {
		return nil, ErrOutsideBoundary
	}
	return f.data[offset:total], nil
}
