package seq

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"boltzprep/internal/model"
)

// AminoAcids 标准 20 种氨基酸残基字母
const AminoAcids = "ACDEFGHIKLMNPQRSTVWY"

// Normalized 规范化后的序列及其内容哈希
type Normalized struct {
	Sequence string
	Hash     string
}

// Normalize 规范化原始序列：去除全部空白、转大写、校验残基字母，
// 并对规范形式计算确定性哈希。仅大小写或空白不同的序列哈希相同，
// 这是比对缓存能够跨激素 Sheet 去重的前提。纯函数，无副作用。
func Normalize(raw string) (Normalized, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}

	cleaned := b.String()
	if cleaned == "" {
		return Normalized{}, fmt.Errorf("%w: empty sequence", model.ErrInvalidSequence)
	}

	for i, r := range cleaned {
		if !strings.ContainsRune(AminoAcids, r) {
			return Normalized{}, fmt.Errorf("%w: character %q at position %d", model.ErrInvalidSequence, r, i+1)
		}
	}

	sum := sha256.Sum256([]byte(cleaned))
	return Normalized{
		Sequence: cleaned,
		Hash:     hex.EncodeToString(sum[:]),
	}, nil
}
