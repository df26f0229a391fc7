package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCategory(t *testing.T) {
	tests := map[string]string{
		"Malha PV azul":         "TECIDO",
		"linha de costura 120":  "LINHA",
		"Zíper invisível 20cm":  "ZIPER",
		"ELÁSTICO 3CM":          "ELASTICO",
		"Caixa papelão":         "EMBALAGEM",
		"Agulha máquina reta":   "AGULHA",
		"Parafuso sextavado":    CategoryOther,
		"Corante reativo preto": "QUIMICO",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, ClassifyCategory(name))
		})
	}
}
