package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	for _, tc := range []struct {
		name        string
		text        string
		source      string
		destination string
	}{
		{
			"plain",
			"Metro|01 Haymarket|02 Jesmond",
			"Haymarket",
			"Jesmond",
		},
		{
			"monument alias",
			"Metro|01 Monument (Blackett Street)|02 Jesmond",
			"Monument",
			"Jesmond",
		},
		{
			"central alias",
			"Metro|01 Jesmond|02 Central",
			"Jesmond",
			"Central Station",
		},
		{
			"central station kept",
			"Metro|01 Central Station|02 Monument",
			"Central Station",
			"Monument",
		},
		{
			"space artifact",
			"Metro|On  12 Haymarket stop|Of  13 Jesmond stop",
			"Haymarket",
			"Jesmond",
		},
		{
			"dash artifact",
			"Metro|On - 07 Jesmond stop|Of - 08 Monument stop",
			"Jesmond",
			"Monument",
		},
		{
			"artifact then alias",
			"Metro|On  12 Central (platform 2) stop|02 Monument Grey Street",
			"Central Station",
			"Monument",
		},
		{
			"more segments",
			"Metro|A|B|C|01 Haymarket|02 Jesmond",
			"Haymarket",
			"Jesmond",
		},
		{
			"too few segments",
			"02 Jesmond",
			"",
			"Jesmond",
		},
		{
			"short segment",
			"Metro|01|02 Jesmond",
			"",
			"Jesmond",
		},
		{
			"multibyte",
			"Metro|01 Chichester Ã©|02 Jesmond",
			"Chichester Ã©",
			"Jesmond",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.source, Convert(tc.text, 2))
			assert.Equal(t, tc.destination, Convert(tc.text, 1))
		})
	}
}

func TestConvertFieldOutOfRange(t *testing.T) {
	assert.Equal(t, "", Convert("Metro|01 Haymarket|02 Jesmond", 0))
	assert.Equal(t, "", Convert("Metro|01 Haymarket|02 Jesmond", 4))
}

func TestNormalize(t *testing.T) {
	for in, out := range map[string]string{
		"Haymarket":           "Haymarket",
		"Monument":            "Monument",
		"Monument Metro":      "Monument",
		"Central":             "Central Station",
		"Central Station":     "Central Station",
		"Centralised":         "Central Station",
		" 12 Haymarket stop":  "Haymarket",
		"- 07 Jesmond stop":   "Jesmond",
		" ab":                 "",
		"- x":                 "",
		"West Monkseaton":     "West Monkseaton",
		"Regent Centre":       "Regent Centre",
		"South Central Depot": "South Central Depot",
	} {
		assert.Equal(t, out, Normalize(in), "normalizing %q", in)
	}
}

func TestNormalizeCustomAlias(t *testing.T) {
	orig := AliasRules
	defer func() { AliasRules = orig }()

	AliasRules = append(AliasRules, AliasRule{Prefix: "St James", Name: "St. James"})
	assert.Equal(t, "St. James", Normalize("St James Park"))
	assert.Equal(t, "Monument", Normalize("Monument 2"))
}
