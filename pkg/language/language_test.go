package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_ResolveCode(t *testing.T) {
	table := Default()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "embedded in sentence", input: "I want telugu please", want: "te", wantOK: true},
		{name: "upper case", input: "TRANSLATE TO HINDI", want: "hi", wantOK: true},
		{name: "mixed case", input: "Translate to MaLaYaLaM", want: "ml", wantOK: true},
		{name: "no separator", input: "tamilnadu", want: "ta", wantOK: true},
		{name: "english", input: "read it in english", want: "en", wantOK: true},
		{name: "multi-part code", input: "manipuri", want: "mni-Mtei", wantOK: true},
		{name: "no language name", input: "namaste", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.ResolveCode(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultTable_EveryNameResolves(t *testing.T) {
	table := Default()
	for _, lang := range table.Languages() {
		code, ok := table.ResolveCode("please use " + lang.Name + " now")
		require.True(t, ok, "name %q did not resolve", lang.Name)
		assert.Equal(t, lang.Code, code, "name %q", lang.Name)
	}
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestResolve_InsertionOrderWins(t *testing.T) {
	table, err := Load([]byte(`
- name: Punjabi
  code: pa
- name: Jab
  code: jb
`))
	require.NoError(t, err)

	// Both names occur in "punjabi"; the earlier entry wins.
	code, ok := table.ResolveCode("punjabi")
	require.True(t, ok)
	assert.Equal(t, "pa", code)

	code, ok = table.ResolveCode("jab")
	require.True(t, ok)
	assert.Equal(t, "jb", code)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ``},
		{name: "not a list", data: `name: Hindi`},
		{name: "missing code", data: "- name: Hindi\n"},
		{name: "duplicate name ignoring case", data: "- name: Hindi\n  code: hi\n- name: HINDI\n  code: hx\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestByCodeAndDescribe(t *testing.T) {
	table := Default()

	lang, ok := table.ByCode("TE")
	require.True(t, ok)
	assert.Equal(t, "Telugu", lang.Name)
	assert.Equal(t, "te-IN", lang.Voice)

	_, ok = table.ByCode("xx")
	assert.False(t, ok)

	assert.Equal(t, "Telugu (te)", table.Describe("te"))
	assert.Equal(t, "hindi", table.Describe(" hindi "))
	assert.Equal(t, "Klingon", table.Describe("Klingon"))
}

func TestLanguages_ReturnsCopy(t *testing.T) {
	table := Default()
	langs := table.Languages()
	require.NotEmpty(t, langs)
	langs[0].Code = "zz"

	assert.NotEqual(t, "zz", table.Languages()[0].Code)
	assert.Len(t, langs, 23)
}
