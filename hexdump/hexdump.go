package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/Moonlight-Companies/gologger/coloransi"

	"procmem/process/memory_map"
	"procmem/signature"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	ShowASCII  bool
	ShowOffset bool

	// StartOffset is the address of the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode

	// Highlight marks every byte covered by a match of the signature
	Highlight                *signature.Signature
	HighlightColor           coloransi.ColorCode
	HighlightBackgroundColor coloransi.ColorCode

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Regions, when set, enables the pointer column: each aligned 32-bit word
	// that points into one of the regions is listed to the right of the ASCII column
	Regions []memory_map.Region
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine:             16,
		GroupSize:                1,
		ShowASCII:                true,
		ShowOffset:               true,
		OffsetWidth:              8,
		OffsetColor:              coloransi.Cyan,
		HexColor:                 coloransi.Green,
		ASCIIColor:               coloransi.White,
		NonPrintableColor:        coloransi.BrightBlack,
		ZeroColor:                coloransi.BrightBlack,
		HighlightColor:           coloransi.Yellow,
		HighlightBackgroundColor: coloransi.Black,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	highlighted := highlightMask(data, options.Highlight)

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], highlighted[offset:end], uint64(offset)+options.StartOffset, options)

		lineCount++
	}
}

// highlightMask flags every byte inside a signature match
func highlightMask(data []byte, sig *signature.Signature) []bool {
	mask := make([]bool, len(data))
	if sig == nil {
		return mask
	}
	for _, off := range sig.IndexAll(data) {
		for i := off; i < off+sig.Len(); i++ {
			mask[i] = true
		}
	}
	return mask
}

// formatLine formats a single line of the hex dump
func formatLine(writer io.Writer, data []byte, highlighted []bool, offset uint64, options Options) {
	if options.ShowOffset {
		offsetStr := fmt.Sprintf("%0"+strconv.Itoa(options.OffsetWidth)+"x", offset)
		fmt.Fprint(writer, coloransi.Foreground(options.OffsetColor, offsetStr), "  ")
	}

	hexParts := formatHexValues(data, highlighted, options)

	// Only show the mid-line divider once the line reaches past half of BytesPerLine
	useSplit := options.BytesPerLine >= 8 && len(data) > options.BytesPerLine/2

	groupsPerLine := max(options.BytesPerLine/options.GroupSize, 1)
	leftGroups := min(groupsPerLine/2, len(hexParts))

	if useSplit && leftGroups > 0 && leftGroups < len(hexParts) {
		fmt.Fprint(writer, strings.Join(hexParts[:leftGroups], " "), " | ", strings.Join(hexParts[leftGroups:], " "))
	} else {
		fmt.Fprint(writer, strings.Join(hexParts, " "))
	}

	// Pad short lines so the ASCII column stays aligned
	if options.BytesPerLine > len(data) {
		fullGroups := (options.BytesPerLine + options.GroupSize - 1) / options.GroupSize
		curGroups := (len(data) + options.GroupSize - 1) / options.GroupSize
		missingBytes := options.BytesPerLine - len(data)
		deltaSpaces := (fullGroups - 1) - max(0, curGroups-1)

		pipeFull, pipeCur := 0, 0
		if options.BytesPerLine >= 8 {
			pipeFull = 3
		}
		if useSplit {
			pipeCur = 3
		}

		if padding := missingBytes*2 + deltaSpaces + (pipeFull - pipeCur); padding > 0 {
			fmt.Fprint(writer, strings.Repeat(" ", padding))
		}
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " | ")

		midPoint := options.BytesPerLine / 2
		if options.BytesPerLine >= 8 && len(data) > midPoint {
			formatASCII(writer, data[:midPoint], highlighted[:midPoint], options)
			fmt.Fprint(writer, " ")
			formatASCII(writer, data[midPoint:], highlighted[midPoint:], options)
		} else {
			formatASCII(writer, data, highlighted, options)
		}
	}

	if len(options.Regions) > 0 {
		if ptrs := pointers(data, offset, options.Regions); len(ptrs) > 0 {
			fmt.Fprint(writer, " | ", coloransi.Foreground(coloransi.Yellow, strings.Join(ptrs, " ")))
		}
	}

	fmt.Fprintln(writer)
}

// pointers lists the aligned 32-bit words of a line that point into a known region
func pointers(data []byte, offset uint64, regions []memory_map.Region) []string {
	var result []string
	for i := int((4 - offset%4) % 4); i+4 <= len(data); i += 4 {
		ptr := uint64(binary.LittleEndian.Uint32(data[i:]))
		if ptr != 0 && memory_map.Find(ptr, regions) != nil {
			result = append(result, fmt.Sprintf("0x%08x", ptr))
		}
	}
	return result
}

func formatASCII(writer io.Writer, data []byte, highlighted []bool, options Options) {
	for i, b := range data {
		c := rune(b)

		switch {
		case highlighted[i]:
			ch := "."
			if b != 0 && unicode.IsPrint(c) {
				ch = string(c)
			}
			fmt.Fprint(writer, coloransi.Color(options.HighlightColor, options.HighlightBackgroundColor, ch))
		case b == 0:
			fmt.Fprint(writer, coloransi.Foreground(options.ZeroColor, "."))
		case !unicode.IsPrint(c) || c > unicode.MaxASCII:
			fmt.Fprint(writer, coloransi.Foreground(options.NonPrintableColor, "."))
		default:
			fmt.Fprint(writer, coloransi.Foreground(options.ASCIIColor, string(c)))
		}
	}
}

// formatHexValues formats the hex values of a line, joined into groups of GroupSize bytes
func formatHexValues(data []byte, highlighted []bool, options Options) []string {
	var result []string
	var group strings.Builder

	for i, b := range data {
		hexValue := fmt.Sprintf("%02x", b)

		switch {
		case highlighted[i]:
			group.WriteString(coloransi.Color(options.HighlightColor, options.HighlightBackgroundColor, hexValue))
		case b == 0:
			group.WriteString(coloransi.Foreground(options.ZeroColor, hexValue))
		default:
			group.WriteString(coloransi.Foreground(options.HexColor, hexValue))
		}

		if (i+1)%options.GroupSize == 0 || i == len(data)-1 {
			result = append(result, group.String())
			group.Reset()
		}
	}

	return result
}

// Region renders memory read at addr, flagging pointers into regions and highlighting sig when set
func Region(data []byte, addr uint64, regions []memory_map.Region, sig *signature.Signature) string {
	options := DefaultOptions()
	options.StartOffset = addr
	options.Regions = regions
	options.Highlight = sig
	options.NonPrintableColor = coloransi.Red

	return Dump(data, options)
}

// Plain renders data without colours, as used when output is not a terminal
func Plain(data []byte, addr uint64) string {
	var buffer bytes.Buffer
	for offset := 0; offset < len(data); offset += 16 {
		end := min(offset+16, len(data))
		line := data[offset:end]

		fmt.Fprintf(&buffer, "%08x  %-48s |", addr+uint64(offset), fmt.Sprintf("% x", line))
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				buffer.WriteByte(b)
			} else {
				buffer.WriteByte('.')
			}
		}
		buffer.WriteString("|\n")
	}
	return buffer.String()
}
