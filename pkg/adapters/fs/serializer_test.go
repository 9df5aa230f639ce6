package fs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/mend/pkg/core"
)

func TestSerializers(t *testing.T) {
	doc := core.Mapping{
		"_id":   core.String("test/doc"),
		"title": core.String("Test Title"),
		"tags":  core.Sequence{core.String("a"), core.String("b")},
		"meta":  core.Mapping{"foo": core.String("bar"), "draft": core.Bool(true)},
		"count": core.Number("42"),
		"ratio": core.Number("0.5"),
		"none":  core.Null{},
	}

	for ext, s := range DefaultSerializers() {
		t.Run(ext, func(t *testing.T) {
			data, err := s.Serialize(doc)
			require.NoError(t, err)

			parsed, err := s.Parse(bytes.NewReader(data))
			require.NoError(t, err)

			assert.True(t, core.Equal(doc, parsed), "round trip changed the document:\n%s", data)
		})
	}
}

func TestYAMLSerializer_Empty(t *testing.T) {
	doc, err := YAMLSerializer{}.Parse(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, doc)

	_, err = YAMLSerializer{}.Parse(bytes.NewReader([]byte("- a\n- b\n")))
	assert.Error(t, err)
}

func TestYAMLSerializer_KeepsNumberForm(t *testing.T) {
	in := "_id: prices\nratio: 1.0\ncount: 3\nbig: 12345678901234567890\nlabel: \"2.0\"\n"

	doc, err := YAMLSerializer{}.Parse(bytes.NewReader([]byte(in)))
	require.NoError(t, err)
	assert.Equal(t, core.Number("1.0"), doc["ratio"])
	assert.Equal(t, core.String("2.0"), doc["label"])

	data, err := YAMLSerializer{}.Serialize(doc)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "ratio: 1.0\n")
	assert.Contains(t, out, "count: 3\n")
	assert.Contains(t, out, "big: 12345678901234567890\n")
	assert.Contains(t, out, `label: "2.0"`)

	again, err := YAMLSerializer{}.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, core.Equal(doc, again))
}
