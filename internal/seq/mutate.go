package seq

import "fmt"

// Saturate 对给定的 1-based 位点做饱和突变，返回包含野生型在内的全部记录。
// 每个位点生成 19 个单点突变（跳过野生型残基），记录头格式为
// <header>_<WT残基><位点><突变残基>，越界位点报错。
func Saturate(header, sequence string, positions []int) ([]FastaRecord, error) {
	records := []FastaRecord{{Header: header + "_WT", Sequence: sequence}}

	runes := []rune(sequence)
	for _, pos := range positions {
		if pos < 1 || pos > len(runes) {
			return nil, fmt.Errorf("position %d out of range (1-%d)", pos, len(runes))
		}
		wt := runes[pos-1]
		for _, mut := range AminoAcids {
			if mut == wt {
				continue
			}
			mutated := make([]rune, len(runes))
			copy(mutated, runes)
			mutated[pos-1] = mut
			records = append(records, FastaRecord{
				Header:   fmt.Sprintf("%s_%c%d%c", header, wt, pos, mut),
				Sequence: string(mutated),
			})
		}
	}

	return records, nil
}
