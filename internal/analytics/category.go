package analytics

import "strings"

// CategoryOther is assigned when no keyword matches.
const CategoryOther = "OUTROS"

type categoryRule struct {
	category string
	keywords []string
}

// categoryRules are checked in order; the first keyword found in the item name wins.
var categoryRules = []categoryRule{
	{"TECIDO", []string{"TECIDO", "MALHA", "JEANS", "SARJA", "TRICOLINE", "VISCOSE", "ALGODAO", "POLIESTER", "LINHO"}},
	{"LINHA", []string{"LINHA", "FIO", "COSTURA"}},
	{"BOTAO", []string{"BOTAO", "BOTÕES", "BOTOES"}},
	{"ZIPER", []string{"ZIPER", "ZIPPER", "ZÍPER"}},
	{"ELASTICO", []string{"ELASTICO", "ELÁSTICO", "LASTEX"}},
	{"FITA", []string{"FITA", "VIÉS", "VIES", "CADARÇO", "CADARCO"}},
	{"ETIQUETA", []string{"ETIQUETA", "TAG", "LABEL"}},
	{"ENTRETELA", []string{"ENTRETELA", "INTERLINING"}},
	{"QUIMICO", []string{"CORANTE", "TINTA", "SOLVENTE", "AMACIANTE", "BRANQUEADOR", "QUIMICO"}},
	{"EMBALAGEM", []string{"SACO", "CAIXA", "SACOLA", "EMBALAGEM", "PLASTICO", "PAPEL"}},
	{"AVIAMENTO", []string{"REBITE", "ILHOS", "COLCHETE", "VELCRO", "FIVELA", "REGULADOR"}},
	{"AGULHA", []string{"AGULHA", "ALFINETE"}},
	{"FORRO", []string{"FORRO", "ENTREFORRO"}},
}

// ClassifyCategory guesses a category from keywords in the item name.
func ClassifyCategory(name string) string {
	upper := strings.ToUpper(name)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(upper, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
