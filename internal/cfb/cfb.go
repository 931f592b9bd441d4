// Package cfb serializes a logical directory tree (see package storage)
// into a valid OLE Compound File Binary container, version 3: 512-byte
// sectors, 64-byte mini-sectors, a 4096-byte mini-stream cutoff,
// FAT/mini-FAT/DIFAT allocation tables, and a left-leaning directory-entry
// sibling chain in place of a balanced red-black tree. This is
// legal-enough for common readers and far simpler to generate.
package cfb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/yuphing-ong/outlook-msg-writer/internal/storage"
)

const (
	sectorSize            = 512
	miniSectorSize        = 64
	miniStreamCutoff      = 4096
	fatEntrySize          = 4
	dirEntrySize          = 128
	entriesPerFAT         = sectorSize / fatEntrySize   // 128
	difatEntriesPerSector = sectorSize/fatEntrySize - 1 // 127, last slot is the chain pointer
	headerDIFATSlots      = 109
	maxAddressableSectors = 1<<32 - 16 // leave headroom below the reserved marker range
)

// Sector markers (MS-CFB §2.1 FAT entry values).
const (
	secFree       uint32 = 0xFFFFFFFF
	secEndOfChain uint32 = 0xFFFFFFFE
	secFATSect    uint32 = 0xFFFFFFFD
	secDIFSect    uint32 = 0xFFFFFFFC
)

// Directory entry object types (MS-CFB §2.6.1).
const (
	objStorage uint8 = 0x01
	objStream  uint8 = 0x02
	objRoot    uint8 = 0x05
)

// ErrCapacityExceeded is returned when the logical tree would not fit
// within MS-CFB v3's 32-bit sector addressing.
var ErrCapacityExceeded = errors.New("cfb: container exceeds MS-CFB v3 addressable space")

type dirEntry struct {
	name        string
	objectType  uint8
	child       uint32 // FFFFFFFF when absent
	left        uint32
	right       uint32
	startSector uint32
	size        uint64
	isStream    bool
	data        []byte
}

// Write serializes root (the output of storage.Compose) as an MS-CFB v3
// byte stream to w: header, then DIFAT sectors, then FAT sectors, then
// mini-FAT sectors, then directory sectors, then the mini-stream, then
// big-stream data.
func Write(w io.Writer, root *storage.Node) error {
	entries, err := flatten(root)
	if err != nil {
		return err
	}

	var small, big []*dirEntry
	for _, e := range entries {
		if !e.isStream {
			continue
		}
		if len(e.data) > 0 && len(e.data) < miniStreamCutoff {
			small = append(small, e)
		} else if len(e.data) >= miniStreamCutoff {
			big = append(big, e)
		}
		// zero-length streams need no allocation; left at startSector=secEndOfChain, size=0.
	}
	for _, e := range entries {
		if e.isStream && len(e.data) == 0 {
			e.startSector = secEndOfChain
		}
	}

	miniStream, miniFAT := buildMiniStream(small)
	numMiniStreamSectors := ceilDiv(len(miniStream), sectorSize)
	numMiniFATSectors := ceilDiv(len(miniFAT)*fatEntrySize, sectorSize)

	numDirSectors := ceilDiv(len(entries)*dirEntrySize, sectorSize)
	if numDirSectors == 0 {
		numDirSectors = 1
	}

	bigSectorCounts := make([]int, len(big))
	numBigStreamSectors := 0
	for i, e := range big {
		n := ceilDiv(len(e.data), sectorSize)
		bigSectorCounts[i] = n
		numBigStreamSectors += n
	}

	fixedSectors := numMiniFATSectors + numDirSectors + numMiniStreamSectors + numBigStreamSectors

	numFATSectors, numDIFATSectors := solveFATLayout(fixedSectors)

	totalSectors := numDIFATSectors + numFATSectors + fixedSectors
	if totalSectors < 0 || totalSectors >= maxAddressableSectors {
		return fmt.Errorf("%w: %d sectors", ErrCapacityExceeded, totalSectors)
	}

	// Assign sector ranges in output order.
	cursor := 0
	difatStart := cursor
	cursor += numDIFATSectors
	fatStart := cursor
	cursor += numFATSectors
	miniFATStart := cursor
	cursor += numMiniFATSectors
	dirStart := cursor
	cursor += numDirSectors
	miniStreamStart := cursor
	cursor += numMiniStreamSectors
	bigStart := cursor
	cursor += numBigStreamSectors

	fat := make([]uint32, totalSectors)
	for i := range fat {
		fat[i] = secFree
	}
	for i := 0; i < numDIFATSectors; i++ {
		fat[difatStart+i] = secDIFSect
	}
	for i := 0; i < numFATSectors; i++ {
		fat[fatStart+i] = secFATSect
	}
	chainFAT(fat, miniFATStart, numMiniFATSectors)
	chainFAT(fat, dirStart, numDirSectors)
	if numMiniStreamSectors > 0 {
		chainFAT(fat, miniStreamStart, numMiniStreamSectors)
	}

	bigStreamStarts := make([]int, len(big))
	cur := bigStart
	for i, n := range bigSectorCounts {
		bigStreamStarts[i] = cur
		chainFAT(fat, cur, n)
		cur += n
	}

	// Big-stream entries still need their final size recorded; small
	// streams' size/startSector were already set in buildMiniStream.
	for i, e := range big {
		e.startSector = uint32(bigStreamStarts[i])
		e.size = uint64(len(e.data))
	}

	var rootEntry *dirEntry
	for _, e := range entries {
		if e.objectType == objRoot {
			rootEntry = e
		}
	}
	if rootEntry == nil {
		return errors.New("cfb: no root entry in flattened tree")
	}
	rootEntry.size = uint64(len(miniStream))
	if numMiniStreamSectors > 0 {
		rootEntry.startSector = uint32(miniStreamStart)
	} else {
		rootEntry.startSector = secEndOfChain
	}

	header := buildHeader(numFATSectors, numDIFATSectors, difatStart, fatStart, dirStart, miniFATStart, numMiniFATSectors)

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("cfb: writing header: %w", err)
	}

	if err := writeDIFATSectors(w, fat, difatStart, fatStart, numFATSectors, numDIFATSectors); err != nil {
		return err
	}
	if err := writeFATSectors(w, fat); err != nil {
		return err
	}
	if err := writeSectorAligned(w, minifatBytes(miniFAT), numMiniFATSectors); err != nil {
		return fmt.Errorf("cfb: writing mini-FAT: %w", err)
	}
	if err := writeSectorAligned(w, directoryBytes(entries), numDirSectors); err != nil {
		return fmt.Errorf("cfb: writing directory: %w", err)
	}
	if err := writeSectorAligned(w, miniStream, numMiniStreamSectors); err != nil {
		return fmt.Errorf("cfb: writing mini-stream: %w", err)
	}
	for _, e := range big {
		if err := writeSectorAligned(w, e.data, ceilDiv(len(e.data), sectorSize)); err != nil {
			return fmt.Errorf("cfb: writing stream %q: %w", e.name, err)
		}
	}

	return nil
}

// flatten converts the logical tree into a slice of directory entries,
// assigning child/sibling pointers via a left-leaning chain rather than a
// balanced red-black tree.
func flatten(root *storage.Node) ([]*dirEntry, error) {
	var entries []*dirEntry
	var walk func(n *storage.Node, objType uint8) int
	walk = func(n *storage.Node, objType uint8) int {
		e := &dirEntry{
			name:       n.Name,
			objectType: objType,
			child:      secFree,
			left:       secFree,
			right:      secFree,
			isStream:   n.IsStream,
			data:       n.Data,
		}
		idx := len(entries)
		entries = append(entries, e)

		if n.IsStream {
			return idx
		}

		var childIndices []int
		for _, c := range n.Children {
			ct := objStorage
			if c.IsStream {
				ct = objStream
			}
			childIndices = append(childIndices, walk(c, ct))
		}
		if len(childIndices) > 0 {
			e.child = uint32(childIndices[0])
			for i := 0; i < len(childIndices)-1; i++ {
				entries[childIndices[i]].left = uint32(childIndices[i+1])
			}
		}
		return idx
	}
	walk(root, objRoot)

	if len(entries) == 0 {
		return nil, errors.New("cfb: empty tree")
	}
	return entries, nil
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// chainFAT marks start..start+n-1 as a sequential chain ending in
// end-of-chain.
func chainFAT(fat []uint32, start, n int) {
	for i := 0; i < n; i++ {
		if i == n-1 {
			fat[start+i] = secEndOfChain
		} else {
			fat[start+i] = uint32(start + i + 1)
		}
	}
}

// solveFATLayout finds the smallest (numFATSectors, numDIFATSectors)
// consistent with fixedSectors other sectors needing allocation. FAT
// sectors describe every sector in the file including themselves and any
// DIFAT sectors, so this is a small fixed-point search.
func solveFATLayout(fixedSectors int) (numFATSectors, numDIFATSectors int) {
	numFATSectors = ceilDiv(fixedSectors, entriesPerFAT)
	if numFATSectors == 0 {
		numFATSectors = 1
	}
	for i := 0; i < 16; i++ {
		if numFATSectors > headerDIFATSlots {
			numDIFATSectors = ceilDiv(numFATSectors-headerDIFATSlots, difatEntriesPerSector)
		} else {
			numDIFATSectors = 0
		}
		total := fixedSectors + numFATSectors + numDIFATSectors
		need := ceilDiv(total, entriesPerFAT)
		if need == numFATSectors {
			break
		}
		numFATSectors = need
	}
	return numFATSectors, numDIFATSectors
}

func buildMiniStream(small []*dirEntry) ([]byte, []uint32) {
	var buf bytes.Buffer
	var miniFAT []uint32

	for _, e := range small {
		startMini := len(miniFAT)
		n := ceilDiv(len(e.data), miniSectorSize)
		buf.Write(e.data)
		pad := n*miniSectorSize - len(e.data)
		if pad > 0 {
			buf.Write(make([]byte, pad))
		}
		for i := 0; i < n; i++ {
			if i == n-1 {
				miniFAT = append(miniFAT, secEndOfChain)
			} else {
				miniFAT = append(miniFAT, uint32(startMini+i+1))
			}
		}
		// startSector on a small stream's directory entry is a mini-sector
		// index, resolved against the mini-FAT rather than the main FAT.
		e.startSector = uint32(startMini)
		e.size = uint64(len(e.data))
	}

	return buf.Bytes(), miniFAT
}

func minifatBytes(miniFAT []uint32) []byte {
	if len(miniFAT) == 0 {
		return nil
	}
	padded := make([]uint32, ceilDiv(len(miniFAT)*fatEntrySize, sectorSize)*entriesPerFAT)
	copy(padded, miniFAT)
	for i := len(miniFAT); i < len(padded); i++ {
		padded[i] = secFree
	}
	buf := make([]byte, len(padded)*fatEntrySize)
	for i, v := range padded {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func directoryBytes(entries []*dirEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.Write(encodeDirEntry(e))
	}
	return buf.Bytes()
}

func encodeDirEntry(e *dirEntry) []byte {
	rec := make([]byte, dirEntrySize)

	units := utf16.Encode([]rune(e.name))
	nameLen := (len(units) + 1) * 2
	for i, u := range units {
		binary.LittleEndian.PutUint16(rec[i*2:], u)
	}
	binary.LittleEndian.PutUint16(rec[64:66], uint16(nameLen))

	rec[66] = e.objectType
	rec[67] = 0x01 // node color; left-leaning chain does not maintain red-black balance
	binary.LittleEndian.PutUint32(rec[68:72], e.left)
	binary.LittleEndian.PutUint32(rec[72:76], e.right)
	binary.LittleEndian.PutUint32(rec[76:80], e.child)
	// CLSID (80:96), state bits (96:100), created/modified (100:116) left zero.
	binary.LittleEndian.PutUint32(rec[116:120], e.startSector)
	binary.LittleEndian.PutUint64(rec[120:128], e.size)

	return rec
}

func buildHeader(numFATSectors, numDIFATSectors, difatStart, fatStart, dirStart, miniFATStart, numMiniFATSectors int) []byte {
	h := make([]byte, sectorSize)
	copy(h[0:8], []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	// CLSID (8:24) zero.
	binary.LittleEndian.PutUint16(h[24:26], 0x003E) // minor version
	binary.LittleEndian.PutUint16(h[26:28], 0x0003) // major version
	binary.LittleEndian.PutUint16(h[28:30], 0xFFFE) // byte order
	binary.LittleEndian.PutUint16(h[30:32], 0x0009) // sector shift (512)
	binary.LittleEndian.PutUint16(h[32:34], 0x0006) // mini-sector shift (64)
	// reserved (34:40) zero.
	binary.LittleEndian.PutUint32(h[40:44], 0) // number of directory sectors, must be 0 for v3
	binary.LittleEndian.PutUint32(h[44:48], uint32(numFATSectors))
	binary.LittleEndian.PutUint32(h[48:52], uint32(dirStart))
	// transaction signature (52:56) zero.
	binary.LittleEndian.PutUint32(h[56:60], miniStreamCutoff)
	if numMiniFATSectors > 0 {
		binary.LittleEndian.PutUint32(h[60:64], uint32(miniFATStart))
	} else {
		binary.LittleEndian.PutUint32(h[60:64], secEndOfChain)
	}
	binary.LittleEndian.PutUint32(h[64:68], uint32(numMiniFATSectors))

	if numDIFATSectors > 0 {
		binary.LittleEndian.PutUint32(h[68:72], uint32(difatStart))
	} else {
		binary.LittleEndian.PutUint32(h[68:72], secEndOfChain)
	}
	binary.LittleEndian.PutUint32(h[72:76], uint32(numDIFATSectors))

	for i := 0; i < headerDIFATSlots; i++ {
		off := 76 + i*4
		if i < numFATSectors && i < headerDIFATSlots {
			binary.LittleEndian.PutUint32(h[off:off+4], uint32(fatStart+i))
		} else {
			binary.LittleEndian.PutUint32(h[off:off+4], secFree)
		}
	}

	return h
}

// writeDIFATSectors writes the overflow DIFAT sectors (beyond the 109
// entries embedded in the header) listing FAT sector locations beyond the
// first 109.
func writeDIFATSectors(w io.Writer, fat []uint32, difatStart, fatStart, numFATSectors, numDIFATSectors int) error {
	if numDIFATSectors == 0 {
		return nil
	}
	remaining := numFATSectors - headerDIFATSlots
	fatIdx := headerDIFATSlots
	for s := 0; s < numDIFATSectors; s++ {
		sector := make([]byte, sectorSize)
		for i := 0; i < difatEntriesPerSector; i++ {
			if remaining > 0 {
				binary.LittleEndian.PutUint32(sector[i*4:], uint32(fatStart+fatIdx))
				fatIdx++
				remaining--
			} else {
				binary.LittleEndian.PutUint32(sector[i*4:], secFree)
			}
		}
		if s == numDIFATSectors-1 {
			binary.LittleEndian.PutUint32(sector[difatEntriesPerSector*4:], secEndOfChain)
		} else {
			binary.LittleEndian.PutUint32(sector[difatEntriesPerSector*4:], uint32(difatStart+s+1))
		}
		if _, err := w.Write(sector); err != nil {
			return fmt.Errorf("cfb: writing DIFAT sector: %w", err)
		}
	}
	return nil
}

func writeFATSectors(w io.Writer, fat []uint32) error {
	padded := make([]uint32, ceilDiv(len(fat)*fatEntrySize, sectorSize)*entriesPerFAT)
	copy(padded, fat)
	for i := len(fat); i < len(padded); i++ {
		padded[i] = secFree
	}
	buf := make([]byte, len(padded)*fatEntrySize)
	for i, v := range padded {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return writeSectorAligned(w, buf, len(buf)/sectorSize)
}

// writeSectorAligned writes data followed by zero padding out to
// numSectors*sectorSize bytes. numSectors is always >= the sectors data
// actually needs; extra sectors are pure padding (used for the directory
// stream, whose declared sector count rounds up from its 128-byte-record
// length).
func writeSectorAligned(w io.Writer, data []byte, numSectors int) error {
	want := numSectors * sectorSize
	if _, err := w.Write(data); err != nil {
		return err
	}
	if pad := want - len(data); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	return nil
}
