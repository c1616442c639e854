package pefile

import "encoding/binary"

// sectionHeader is IMAGE_SECTION_HEADER, trimmed to the fields needed for
// RVA-to-file-offset translation.
type sectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

func (f *File) parseSectionHeaders(offset uint32) error {
	hdrSize := uint32(binary.Size(sectionHeader{}))
	sections := make([]sectionHeader, 0, 16)
	for i := 0; i < int(f.numberOfSections); i++ {
		var sh sectionHeader
		if err := f.structUnpack(&sh, offset, hdrSize); err != nil {
			// A truncated section table is tolerated; RVA resolution simply
			// has fewer candidates. The CLI header lives in the first few
			// sections of any real assembly, so this only matters for
			// malformed inputs the caller already rejected upstream.
			break
		}
		sections = append(sections, sh)
		offset += hdrSize
	}
	f.sections = sections
	return nil
}

// GetOffsetFromRva maps a relative virtual address to a file offset by
// walking the section table, the way saferwall-pe's GetOffsetFromRva does;
// an RVA inside the raw header (no matching section) maps to itself.
func (f *File) GetOffsetFromRva(rva uint32) (uint32, error) {
	for _, s := range f.sections {
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+sizeMax(s.VirtualSize, s.SizeOfRawData) {
			return rva - s.VirtualAddress + s.PointerToRawData, nil
		}
	}
	if rva < f.size {
		return rva, nil
	}
	return 0, ErrOutsideBoundary
}

func sizeMax(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
