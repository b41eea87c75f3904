// saturate 饱和突变生成器：读取 FASTA，在给定位点生成全部单点突变，
// 输出 <stem>_saturated.fasta（含野生型记录）
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"boltzprep/internal/seq"
)

var (
	fastaPath = flag.String("fasta", "", "输入 FASTA 文件")
	positions = flag.String("positions", "", "逗号分隔的 1-based 位点，如 '10,25,100'")
	outDir    = flag.String("out", ".", "输出目录")
)

func main() {
	flag.Parse()

	if *fastaPath == "" || *positions == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*fastaPath)
	if err != nil {
		log.Fatalf("打开 FASTA 失败: %v", err)
	}
	records, err := seq.ParseFasta(f)
	f.Close()
	if err != nil {
		log.Fatalf("解析 FASTA 失败: %v", err)
	}
	if len(records) == 0 {
		log.Fatal("FASTA 文件为空")
	}
	wt := records[0]

	var sites []int
	for _, p := range strings.Split(*positions, ",") {
		site, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Fatalf("位点必须是整数: %q", p)
		}
		sites = append(sites, site)
	}

	mutants, err := seq.Saturate(wt.Header, wt.Sequence, sites)
	if err != nil {
		log.Fatalf("生成突变失败: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("创建输出目录失败: %v", err)
	}
	stem := strings.TrimSuffix(filepath.Base(*fastaPath), filepath.Ext(*fastaPath))
	outPath := filepath.Join(*outDir, stem+"_saturated.fasta")

	out, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("创建输出文件失败: %v", err)
	}
	if err := seq.WriteFasta(out, mutants); err != nil {
		out.Close()
		log.Fatalf("写出失败: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("写出失败: %v", err)
	}

	fmt.Printf("生成 %d 条变体（含野生型），位点 %d 个\n", len(mutants), len(sites))
	fmt.Printf("文件已保存: %s\n", outPath)
}
