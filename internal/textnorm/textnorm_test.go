package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripAccents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"São Paulo", "Sao Paulo"},
		{"MUNICÍPIO", "MUNICIPIO"},
		{"Maranhão", "Maranhao"},
		{"Óleo Diesel", "Oleo Diesel"},
		{"ÇÃÊÜ", "CAEU"},
		{"R$ 5,10 / l", "R$ 5,10 / l"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripAccents(tt.in))
		})
	}
}

func TestCanonicalizeLabel(t *testing.T) {
	assert.Equal(t, "PRECO_MEDIO_REVENDA", CanonicalizeLabel("PREÇO MÉDIO REVENDA"))
	assert.Equal(t, "NUMERO_DE_POSTOS_PESQUISADOS", CanonicalizeLabel("  número de  postos\tpesquisados "))
	assert.Equal(t, "DATA_INICIAL", CanonicalizeLabel("data-inicial"))
	assert.Equal(t, "MES", CanonicalizeLabel("MÊS"))
	assert.Equal(t, "", CanonicalizeLabel("  - _ "))
}

func TestCanonicalizeLabel_CaseAndAccentInsensitive(t *testing.T) {
	want := CanonicalizeLabel("MUNICIPIO")
	assert.Equal(t, want, CanonicalizeLabel("Município"))
	assert.Equal(t, want, CanonicalizeLabel("municipio"))
}

func TestCanonicalizeLabel_Idempotent(t *testing.T) {
	inputs := []string{
		"PREÇO MÉDIO REVENDA",
		"  desvio__padrão - revenda ",
		"COEF DE VARIAÇÃO REVENDA",
		"already_CANONICAL",
		"",
	}
	for _, in := range inputs {
		once := CanonicalizeLabel(in)
		assert.Equal(t, once, CanonicalizeLabel(once), "input=%q", in)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "SAO PAULO", NormalizeName(" são   paulo "))
	assert.Equal(t, "SAO JOAO DALIANCA", NormalizeName("São João d'Aliança"))
	assert.Equal(t, "EMBU GUACU", NormalizeName("Embu-Guaçu"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestStateNameToCode(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"SÃO PAULO", "SP", true},
		{"Sao Paulo", "SP", true},
		{"espírito santo", "ES", true},
		{"MATO GROSSO DO SUL", "MS", true},
		{"MATO GROSSO", "MT", true},
		{"Distrito Federal", "DF", true},
		{"ATLANTIDA", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StateNameToCode(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegionForStateCode(t *testing.T) {
	region, ok := RegionForStateCode("SP")
	assert.True(t, ok)
	assert.Equal(t, "SUDESTE", region)

	region, ok = RegionForStateCode("df")
	assert.True(t, ok)
	assert.Equal(t, "CENTRO_OESTE", region)

	_, ok = RegionForStateCode("XX")
	assert.False(t, ok)
}

func TestResolveState(t *testing.T) {
	code, ok := ResolveState("rj")
	assert.True(t, ok)
	assert.Equal(t, "RJ", code)

	code, ok = ResolveState("Rio Grande do Norte")
	assert.True(t, ok)
	assert.Equal(t, "RN", code)

	_, ok = ResolveState("ZZ")
	assert.False(t, ok)
}

func TestEveryStateHasARegion(t *testing.T) {
	assert.Len(t, stateNames, 27)
	assert.Len(t, StateCodes(), 27)
	for name, code := range stateNames {
		_, ok := RegionForStateCode(code)
		assert.True(t, ok, "state %s (%s) has no region", name, code)
	}
}
