package model

import (
	"fmt"
	"strings"
)

// Ligand 激素配体，固定枚举集合
type Ligand string

const (
	LigandEstradiol      Ligand = "Estradiol"
	LigandProgesterone   Ligand = "Progesterone"
	LigandCorticosterone Ligand = "Corticosterone"
	LigandTestosterone   Ligand = "Testosterone"
)

// AllLigands 全部配体，顺序固定
var AllLigands = []Ligand{
	LigandEstradiol,
	LigandProgesterone,
	LigandCorticosterone,
	LigandTestosterone,
}

// ligandSMILES 配体化学结构映射（PubChem isomeric SMILES），进程启动时加载一次，只读
var ligandSMILES = map[Ligand]string{
	LigandEstradiol:      "C[C@]12CC[C@H]3[C@H]([C@@H]1CC[C@@H]2O)CCC4=C3C=CC(=C4)O",
	LigandProgesterone:   "CC(=O)[C@H]1CC[C@@H]2[C@@]1(CC[C@H]3[C@H]2CCC4=CC(=O)CC[C@]34C)C",
	LigandCorticosterone: "C[C@]12CC[C@H]3[C@H]([C@@H]1CC[C@@H]2C(=O)CO)[C@@H](CC4=CC(=O)CC[C@]34C)O",
	LigandTestosterone:   "C[C@]12CC[C@H]3[C@H]([C@@H]1CC[C@@H]2O)CCC4=CC(=O)CC[C@]34C",
}

// SMILES 获取配体的化学结构标识
func (l Ligand) SMILES() string {
	return ligandSMILES[l]
}

// Valid 是否为已知配体
func (l Ligand) Valid() bool {
	_, ok := ligandSMILES[l]
	return ok
}

// Key 配体的小写标识，用于记录 ID 与文件命名
func (l Ligand) Key() string {
	return strings.ToLower(string(l))
}

// ParseLigand 从名称解析配体（大小写不敏感）
func ParseLigand(name string) (Ligand, error) {
	trimmed := strings.TrimSpace(name)
	for _, l := range AllLigands {
		if strings.EqualFold(trimmed, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLigand, name)
}
