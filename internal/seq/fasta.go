package seq

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FastaRecord 单条 FASTA 记录
type FastaRecord struct {
	Header   string
	Sequence string
}

// ParseFasta 从 r 读取 FASTA 记录。'>' 开头的行为记录头，序列行拼接
func ParseFasta(r io.Reader) ([]FastaRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []FastaRecord
	var current *FastaRecord
	var parts []string

	flush := func() {
		if current != nil {
			current.Sequence = strings.Join(parts, "")
			records = append(records, *current)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			current = &FastaRecord{Header: strings.TrimPrefix(line, ">")}
			parts = parts[:0]
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("fasta: sequence line before header")
		}
		parts = append(parts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fasta: read: %w", err)
	}
	flush()

	return records, nil
}

// WriteFasta 将记录写入 w，每条记录头一行、序列一行
func WriteFasta(w io.Writer, records []FastaRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := fmt.Fprintf(bw, ">%s\n%s\n", rec.Header, rec.Sequence); err != nil {
			return fmt.Errorf("fasta: write: %w", err)
		}
	}
	return bw.Flush()
}
