package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedBots(t *testing.T) {
	store := NewMemoryStore(Seed())

	boruto, ok := store.FindByID("boruto")
	require.True(t, ok)
	assert.False(t, boruto.RegeneratesDirective())
	assert.True(t, boruto.Speaks())
	assert.False(t, boruto.ShapesReply())
	assert.Equal(t, "Ugh, my chakra's acting up... (Ollama error)", boruto.Fallback)

	mini, ok := store.FindByID("mini-bot")
	require.True(t, ok)
	assert.True(t, mini.RegeneratesDirective())
	assert.False(t, mini.Speaks())
	assert.True(t, mini.ShapesReply())
	assert.Equal(t, "Backend connectivity failure detected.", mini.Fallback)

	_, ok = store.FindByID("nobody")
	assert.False(t, ok)
}

func TestMemoryStoreListIsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Name = "changed"

	again := store.List()
	assert.Equal(t, "Boruto Uzumaki", again[0].Name)
}

const sampleCatalogue = `
[[persona]]
id = "sensei"
name = "Sensei"
avatar = "🥷"
directive = "You are a calm sensei."
fallback = "The scroll is blank."
stream = true

[[persona.profile]]
label = "Village"
value = "Leaf"

[[persona]]
id = "tiny"
name = "Tiny"
variant = "four-word"
directive = "Think first."
jargon_rule = "Use jargon."
plain_rule = "Use plain words."
language = "fr"
`

func TestParseCatalogue(t *testing.T) {
	items, err := Parse(sampleCatalogue)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "sensei", items[0].ID)
	assert.Equal(t, VariantPersona, items[0].Variant)
	assert.Equal(t, "en", items[0].Language)
	assert.True(t, items[0].Stream)
	require.Len(t, items[0].Profile, 1)
	assert.Equal(t, "Leaf", items[0].Profile[0].Value)

	assert.Equal(t, VariantFourWord, items[1].Variant)
	assert.Equal(t, "Use jargon.", items[1].JargonRule)
	assert.Equal(t, "fr", items[1].Language)
}

func TestParseCatalogueRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"no id":     "[[persona]]\ndirective = \"x\"\n",
		"duplicate": "[[persona]]\nid = \"a\"\ndirective = \"x\"\n[[persona]]\nid = \"a\"\ndirective = \"y\"\n",
		"variant":   "[[persona]]\nid = \"a\"\nvariant = \"haiku\"\ndirective = \"x\"\n",
		"directive": "[[persona]]\nid = \"a\"\n",
		"syntax":    "[[persona\n",
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalogue), 0o600))

	items, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
