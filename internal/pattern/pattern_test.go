package pattern

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydeck/exam-insights/internal/model"
)

func TestKTUStandard_Resolve(t *testing.T) {
	t.Parallel()

	p := KTUStandard()

	tests := []struct {
		number string
		part   model.Part
		module int
	}{
		{"1", model.PartA, 1},
		{"2", model.PartA, 1},
		{"3", model.PartA, 2},
		{"10", model.PartA, 5},
		{"11", model.PartB, 1},
		{"11a", model.PartB, 1},
		{"12b", model.PartB, 1},
		{"13a", model.PartB, 2},
		{"19", model.PartB, 5},
		{"20", model.PartB, 5},
	}
	for _, tt := range tests {
		mod, ok := p.Resolve(tt.number, tt.part)
		require.True(t, ok, "number %s", tt.number)
		assert.Equal(t, tt.module, mod, "number %s", tt.number)
	}
}

func TestResolve_Misses(t *testing.T) {
	t.Parallel()

	p := KTUStandard()

	_, ok := p.Resolve("21", model.PartB)
	assert.False(t, ok)
	_, ok = p.Resolve("abc", model.PartA)
	assert.False(t, ok)
	_, ok = p.Resolve("11", model.Part("part_c"))
	assert.False(t, ok)

	var nilPattern *ExamPattern
	_, ok = nilPattern.Resolve("1", model.PartA)
	assert.False(t, ok)
}

func TestDefaultMarks(t *testing.T) {
	t.Parallel()

	p := Generic6Module()
	assert.Equal(t, 2, p.DefaultMarks(model.PartA))
	assert.Equal(t, 12, p.DefaultMarks(model.PartB))

	var nilPattern *ExamPattern
	assert.Equal(t, 0, nilPattern.DefaultMarks(model.PartA))
}

func TestGeneric6Module_Resolve(t *testing.T) {
	t.Parallel()

	p := Generic6Module()

	mod, ok := p.Resolve("12", model.PartA)
	require.True(t, ok)
	assert.Equal(t, 6, mod)

	mod, ok = p.Resolve("13", model.PartB)
	require.True(t, ok)
	assert.Equal(t, 1, mod)

	mod, ok = p.Resolve("24", model.PartB)
	require.True(t, ok)
	assert.Equal(t, 6, mod)
}

func TestByName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Generic 5 Module Pattern", ByName("generic_5_module").Name)
	assert.Equal(t, "Generic 6 Module Pattern", ByName("generic_6_module").Name)
	assert.Equal(t, "KTU Standard Pattern", ByName("ktu_standard").Name)
	assert.Equal(t, "KTU Standard Pattern", ByName("").Name)
	assert.Equal(t, "KTU Standard Pattern", ByName("no_such_scheme").Name)
}

const customPatternYAML = `name: custom_4_module
description: four module scheme
part_a:
  marks_per_question: 5
  questions:
    "1": 1
    "2": 2
part_b:
  marks_per_question: 10
  questions:
    "9": 3
    "10": 4
`

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customPatternYAML), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom_4_module", p.Name)
	assert.Equal(t, 5, p.DefaultMarks(model.PartA))

	mod, ok := p.Resolve("10b", model.PartB)
	require.True(t, ok)
	assert.Equal(t, 4, mod)
}

func TestLoadFile_NameDefaultsToFilename(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "unnamed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("part_a:\n  marks_per_question: 3\n"), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "unnamed.yaml", p.Name)
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("part_a: [not a mapping"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(customPatternYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	patterns, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Contains(t, patterns, "custom_4_module")
}
