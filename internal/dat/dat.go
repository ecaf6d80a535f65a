package dat

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Parser reads Logiqx style DAT files as written by FinalBurn Neo (<game>)
// and MAME (<machine>).
type Parser struct{}

// NewParser builds a fresh DAT parser.
func NewParser() Parser {
	return Parser{}
}

// Parse consumes DAT XML content from the provided reader.
func (p Parser) Parse(r io.Reader) (*DataFile, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false // DAT files reference a DTD; relax strict parsing.

	var df DataFile
	if err := decoder.Decode(&df); err != nil {
		return nil, fmt.Errorf("decode dat: %w", err)
	}
	return &df, nil
}

// Sniff reports whether the buffered stream looks like XML. It does not
// consume any input.
func Sniff(br *bufio.Reader) bool {
	head, _ := br.Peek(512)
	head = bytes.TrimLeft(head, "\xef\xbb\xbf \t\r\n")
	return bytes.HasPrefix(head, []byte("<?xml")) ||
		bytes.HasPrefix(head, []byte("<!DOCTYPE datafile")) ||
		bytes.HasPrefix(head, []byte("<datafile"))
}

// DataFile is the root node of a DAT file.
type DataFile struct {
	XMLName  xml.Name `xml:"datafile"`
	Header   Header   `xml:"header"`
	Games    []Set    `xml:"game"`
	Machines []Set    `xml:"machine"`
}

// Header carries top-level metadata for the DAT.
type Header struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Version     string `xml:"version"`
	Date        string `xml:"date"`
	Author      string `xml:"author"`
}

// Set is a game or machine entry.
type Set struct {
	Name        string `xml:"name,attr"`
	CloneOf     string `xml:"cloneof,attr,omitempty"`
	RomOf       string `xml:"romof,attr,omitempty"`
	IsBios      string `xml:"isbios,attr,omitempty"`
	Description string `xml:"description"`
	Year        string `xml:"year"`
	Roms        []Rom  `xml:"rom"`
	Disks       []Disk `xml:"disk"`
}

// Rom describes a single ROM file entry.
type Rom struct {
	Name   string `xml:"name,attr"`
	Size   int64  `xml:"size,attr,omitempty"`
	CRC    string `xml:"crc,attr,omitempty"`
	MD5    string `xml:"md5,attr,omitempty"`
	SHA1   string `xml:"sha1,attr,omitempty"`
	Merge  string `xml:"merge,attr,omitempty"`
	Status string `xml:"status,attr,omitempty"`
}

// Disk describes CHD/disk entries.
type Disk struct {
	Name   string `xml:"name,attr"`
	SHA1   string `xml:"sha1,attr,omitempty"`
	Status string `xml:"status,attr,omitempty"`
}

// Sets returns games followed by machines.
func (df *DataFile) Sets() []Set {
	if df == nil {
		return nil
	}
	sets := make([]Set, 0, len(df.Games)+len(df.Machines))
	sets = append(sets, df.Games...)
	return append(sets, df.Machines...)
}
