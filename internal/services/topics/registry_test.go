package topics

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seoforge/internal/models"
)

func TestBuiltinProfiles(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())

	tests := []struct {
		topic    string
		identity string
		format   models.OutputFormat
		jsonld   bool
	}{
		{Logistics, "Senior Supply Chain Strategist and International Freight Forwarding Specialist", models.OutputFormatMarkdown, false},
		{Furniture, "Senior Luxury Interior Designer and Elite Italian Furniture Specialist", models.OutputFormatHTML, false},
		{FurnitureProduct, "Elite E-commerce Product Manager for Italian Luxury Furniture Brands", models.OutputFormatHTML, true},
		{General, "expert SEO copywriter and content strategist", models.OutputFormatMarkdown, false},
		{RealEstate, "professional real estate consultant", models.OutputFormatMarkdown, false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			p, err := r.Get(tt.topic)
			require.NoError(t, err)
			assert.Equal(t, tt.identity, p.Identity)
			assert.Equal(t, tt.format, p.OutputFormat)
			assert.Equal(t, tt.jsonld, p.RequireJSONLD)
			assert.NotEmpty(t, p.Instructions)
			assert.NotEmpty(t, p.Label)
		})
	}

	assert.Len(t, r.List(), 10)
	assert.Equal(t, FurnitureProduct, r.List()[0].Name)
}

func TestLogisticsLimits(t *testing.T) {
	p, err := NewRegistry(arbor.NewLogger()).Get("logistics")
	require.NoError(t, err)
	assert.Equal(t, models.ContentLimits{
		H1MaxChars:      190,
		ExcerptMaxChars: 250,
		FAQTargetChars:  1500,
		MinWords:        3000,
		MinTables:       5,
	}, p.Limits)
	assert.Contains(t, p.Instructions, "v4.0")
}

func TestResolve(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())

	p := r.Resolve(Medicine, "")
	assert.Equal(t, "Medical expert protocol. Accurate data, professional terms, trustworthy tone.", p.Instructions)

	p = r.Resolve(Medicine, "Write for paediatricians")
	assert.Equal(t, "Write for paediatricians", p.Instructions)
	assert.Equal(t, "highly qualified medical professional", p.Identity)

	p = r.Resolve(Medicine, "   ")
	assert.Contains(t, p.Instructions, "Medical expert protocol")

	p = r.Resolve("Astrology", "")
	assert.Equal(t, "Astrology", p.Name)
	assert.Equal(t, "expert SEO copywriter and content strategist", p.Identity)

	_, err := r.Get("Astrology")
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestLoadFileMergesAndAdds(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/topics.yaml", []byte(`
topics:
  - name: logistics
    instructions: "Custom logistics protocol"
    limits:
      h1_max_chars: 120
  - name: Pets
    label: "Животные"
    identity: "veterinarian"
    output_format: HTML
`), 0o644))

	r := NewRegistry(arbor.NewLogger())
	require.NoError(t, r.LoadFile(fs, "/etc/topics.yaml"))

	logistics, err := r.Get(Logistics)
	require.NoError(t, err)
	assert.Equal(t, "Custom logistics protocol", logistics.Instructions)
	assert.Equal(t, models.ContentLimits{H1MaxChars: 120}, logistics.Limits)
	assert.Equal(t, "Логистика (Карго/ВЭД)", logistics.Label)

	pets, err := r.Get("pets")
	require.NoError(t, err)
	assert.Equal(t, "veterinarian", pets.Identity)
	assert.Equal(t, models.OutputFormatHTML, pets.OutputFormat)

	list := r.List()
	assert.Len(t, list, 11)
	assert.Equal(t, "Pets", list[10].Name)
}

func TestLoadFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRegistry(arbor.NewLogger())

	assert.Error(t, r.LoadFile(fs, "/missing.yaml"))

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("topics: [::"), 0o644))
	assert.Error(t, r.LoadFile(fs, "/bad.yaml"))

	require.NoError(t, afero.WriteFile(fs, "/noname.yaml", []byte("topics:\n  - identity: x\n"), 0o644))
	assert.Error(t, r.LoadFile(fs, "/noname.yaml"))
}
