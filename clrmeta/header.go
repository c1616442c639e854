package clrmeta

import (
	kratoslog "github.com/go-kratos/kratos/v2/log"

	"github.com/clrwasm/clrwasm/internal/log"
	"github.com/clrwasm/clrwasm/pefile"
)

// Options configures a Decode call. A nil Options behaves like &Options{}.
type Options struct {
	// Logger receives diagnostics such as unrecognised metadata streams.
	// Defaults to a stdout logger filtered to error level, matching
	// saferwall-pe's own File.New/NewBytes default.
	Logger kratoslog.Logger
}

const metadataRootSignature = 0x424A5342 // "BSJB"

// CliHeader is the CLI-runtime header pointed to by the PE's CLR data
// directory (spec.md §6).
type CliHeader struct {
	Cb                  uint32
	MajorRuntimeVersion uint16
	MinorRuntimeVersion uint16
	Metadata            pefile.DataDirectory
	Flags               uint32
	EntryPointToken     uint32
	Resources           pefile.DataDirectory
	StrongNameSig       pefile.DataDirectory
	CodeManager         uint64
	VTableFixups        pefile.DataDirectory
	ExportAddressTable  uint64
	ManagedNativeHeader uint64
}

// Image is the decoded view over a managed-code PE/CLI binary: its CLI
// header, the four heaps, and every populated metadata table.
type Image struct {
	Header CliHeader
	Heaps  Heaps
	Tables map[Tag]*Table
}

// Decode parses image's PE envelope, CLI header, metadata root and table
// stream, producing a fully decoded Image. A nil opts behaves like &Options{}.
func Decode(image []byte, opts *Options) (*Image, error) {
	if opts == nil {
		opts = &Options{}
	}
	helper := log.New(opts.Logger)

	f, err := pefile.OpenBytes(image)
	if err != nil {
		return nil, ErrMalformedImage
	}
	if f.NTHeader.Machine != pefile.ImageFileMachineI386 {
		return nil, ErrMalformedImage
	}

	dd := f.DataDirectory(pefile.DirectoryEntryCLR)
	if dd.VirtualAddress == 0 || dd.Size == 0 {
		return nil, ErrMalformedImage
	}
	hdrOff, err := f.GetOffsetFromRva(dd.VirtualAddress)
	if err != nil {
		return nil, ErrMalformedImage
	}

	header, err := decodeCliHeader(f, hdrOff)
	if err != nil {
		return nil, err
	}
	if header.Metadata.VirtualAddress == 0 || header.Metadata.Size == 0 {
		return nil, ErrMalformedImage
	}

	rootOff, err := f.GetOffsetFromRva(header.Metadata.VirtualAddress)
	if err != nil {
		return nil, ErrMalformedImage
	}
	streams, err := decodeStreamDirectory(f, rootOff, header.Metadata.VirtualAddress, helper)
	if err != nil {
		return nil, err
	}

	heaps := Heaps{
		Strings: streams["#Strings"],
		US:      streams["#US"],
		Blob:    streams["#Blob"],
		GUID:    streams["#GUID"],
	}

	tableBytes, ok := streams["#~"]
	if !ok {
		return nil, ErrMissingStream
	}
	tables, err := decodeTableStream(tableBytes)
	if err != nil {
		return nil, err
	}

	return &Image{Header: header, Heaps: heaps, Tables: tables}, nil
}

func decodeCliHeader(f *pefile.File, off uint32) (CliHeader, error) {
	var h CliHeader
	var err error
	read32 := func(o uint32) uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = f.ReadUint32(o)
		return v
	}
	read16 := func(o uint32) uint16 {
		if err != nil {
			return 0
		}
		var v uint16
		v, err = f.ReadUint16(o)
		return v
	}
	read64 := func(o uint32) uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = f.ReadUint64(o)
		return v
	}
	readDir := func(o uint32) pefile.DataDirectory {
		return pefile.DataDirectory{VirtualAddress: read32(o), Size: read32(o + 4)}
	}

	h.Cb = read32(off)
	h.MajorRuntimeVersion = read16(off + 4)
	h.MinorRuntimeVersion = read16(off + 6)
	h.Metadata = readDir(off + 8)
	h.Flags = read32(off + 16)
	h.EntryPointToken = read32(off + 20)
	h.Resources = readDir(off + 24)
	h.StrongNameSig = readDir(off + 32)
	h.CodeManager = read64(off + 40)
	h.VTableFixups = readDir(off + 48)
	h.ExportAddressTable = read64(off + 56)
	h.ManagedNativeHeader = read64(off + 64)
	if err != nil {
		return CliHeader{}, ErrMalformedImage
	}
	return h, nil
}

// decodeStreamDirectory parses the MetadataRoot at file offset off (whose
// RVA is rootRVA) and returns each named stream's byte slice, following
// saferwall-pe's parseCLRHeaderDirectory stream-name-padding walk
// (dotnet.go). Each stream header's Offset field is relative to rootRVA,
// not a file offset.
func decodeStreamDirectory(f *pefile.File, off, rootRVA uint32, logger *log.Helper) (map[string][]byte, error) {
	sig, err := f.ReadUint32(off)
	if err != nil || sig != metadataRootSignature {
		return nil, ErrMalformedImage
	}
	versionLen, err := f.ReadUint32(off + 12)
	if err != nil {
		return nil, ErrMalformedImage
	}

	cursor := off + 16 + versionLen
	numStreams, err := f.ReadUint16(cursor + 2)
	if err != nil {
		return nil, ErrMalformedImage
	}
	cursor += 4

	streams := make(map[string][]byte, numStreams)
	for i := uint16(0); i < numStreams; i++ {
		streamOff, err := f.ReadUint32(cursor)
		if err != nil {
			return nil, ErrMalformedImage
		}
		streamSize, err := f.ReadUint32(cursor + 4)
		if err != nil {
			return nil, ErrMalformedImage
		}
		cursor += 8

		name, consumed, err := readPaddedName(f, cursor)
		if err != nil {
			return nil, ErrMalformedImage
		}
		cursor += consumed

		start, err := f.GetOffsetFromRva(rootRVA + streamOff)
		if err != nil {
			return nil, ErrMalformedImage
		}
		data, err := f.ReadBytes(start, streamSize)
		if err != nil {
			return nil, ErrMalformedImage
		}

		// Unknown stream names are tolerated (spec.md §4.A): keep what we
		// recognise, warn and drop the rest.
		switch name {
		case "#~", "#Strings", "#US", "#Blob", "#GUID":
			streams[name] = data
		default:
			logger.Warnf("unrecognised metadata stream %q ignored", name)
		}
	}
	return streams, nil
}

// readPaddedName reads a null-terminated ASCII stream name starting at off,
// padded to the next 4-byte boundary measured from off (spec.md §4.A).
func readPaddedName(f *pefile.File, off uint32) (string, uint32, error) {
	var name []byte
	var consumed uint32
	for {
		c, err := f.ReadUint8(off + consumed)
		if err != nil {
			return "", 0, err
		}
		consumed++
		if c == 0 {
			break
		}
		name = append(name, c)
	}
	if pad := consumed % 4; pad != 0 {
		consumed += 4 - pad
	}
	return string(name), consumed, nil
}
