package model

import (
	"errors"
	"testing"
)

// TestParseLigand 测试配体解析
func TestParseLigand(t *testing.T) {
	t.Parallel()

	cases := map[string]Ligand{
		"Estradiol":      LigandEstradiol,
		"estradiol":      LigandEstradiol,
		" Testosterone ": LigandTestosterone,
		"PROGESTERONE":   LigandProgesterone,
		"corticosterone": LigandCorticosterone,
	}
	for name, want := range cases {
		got, err := ParseLigand(name)
		if err != nil {
			t.Fatalf("ParseLigand(%q) failed: %v", name, err)
		}
		if got != want {
			t.Errorf("ParseLigand(%q) = %s, want %s", name, got, want)
		}
	}

	if _, err := ParseLigand("cortisol"); !errors.Is(err, ErrUnknownLigand) {
		t.Errorf("ParseLigand(cortisol) error = %v, want ErrUnknownLigand", err)
	}
}

// TestLigandSMILES 测试每个配体都绑定化学结构
func TestLigandSMILES(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, l := range AllLigands {
		s := l.SMILES()
		if s == "" {
			t.Errorf("%s has no SMILES", l)
		}
		if seen[s] {
			t.Errorf("%s shares a SMILES with another ligand", l)
		}
		seen[s] = true
		if !l.Valid() {
			t.Errorf("%s not valid", l)
		}
	}
}
