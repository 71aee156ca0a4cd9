package encode_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrmdev/plugsim/internal/config"
	"github.com/xrmdev/plugsim/internal/encode"
	"github.com/xrmdev/plugsim/internal/pipeline"
	"github.com/xrmdev/plugsim/internal/xrm"
)

func TestSnippetUpdatePostOperationGolden(t *testing.T) {
	snippet, err := encode.Snippet(updatePostContext(), config.Defaults())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "snippet_update_post", []byte(snippet))
}

func TestSnippetDeterministic(t *testing.T) {
	consts := config.Defaults()
	first, err := encode.Snippet(updatePostContext(), consts)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := encode.Snippet(updatePostContext(), consts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSnippetDeleteSeedsPreImage(t *testing.T) {
	snippet, err := encode.Snippet(deletePreContext(), config.Defaults())
	require.NoError(t, err)

	assert.Contains(t, snippet, "fakedContext.Initialize(new List<Entity> { preImage });")
	assert.Contains(t, snippet,
		`pluginContext.InputParameters["Target"] = new EntityReference("account", new Guid("`+recordID+`"));`)
	assert.NotContains(t, snippet, "var target", "delete snippets carry no target entity variable")
	assert.Contains(t, snippet, "public void Delete_PreOperation_Simulation()")
}

func TestSnippetLiterals(t *testing.T) {
	pc := updatePostContext()
	pc.PreEntityImages = map[string]pipeline.Entity{}
	pc.PostEntityImages = map[string]pipeline.Entity{}
	pc.Target.Entity.Attributes = xrm.AttributeBag{
		"active":        xrm.Bool(true),
		"categories":    xrm.OptionSetValueCollection{Values: []int64{1, 2}},
		"industrycode":  xrm.OptionSetValue{Value: 3},
		"lastcontacted": xrm.DateTime{ISO: "2024-06-01T12:00:00Z"},
		"nickname":      xrm.String(`quote " and \ slash`),
		"note":          xrm.Null{},
		"ratio":         xrm.Float(0.25),
		"revenue":       xrm.Money{Value: 250000},
	}

	snippet, err := encode.Snippet(pc, config.Defaults())
	require.NoError(t, err)

	assert.Contains(t, snippet, `target["active"] = true;`)
	assert.Contains(t, snippet, `target["categories"] = new OptionSetValueCollection { new OptionSetValue(1), new OptionSetValue(2) };`)
	assert.Contains(t, snippet, `target["industrycode"] = new OptionSetValue(3);`)
	assert.Contains(t, snippet, `target["lastcontacted"] = DateTime.Parse("2024-06-01T12:00:00Z", null, System.Globalization.DateTimeStyles.RoundtripKind);`)
	assert.Contains(t, snippet, `target["nickname"] = "quote \" and \\ slash";`)
	assert.Contains(t, snippet, `target["note"] = null;`)
	assert.Contains(t, snippet, `target["ratio"] = 0.25;`)
	assert.Contains(t, snippet, `target["revenue"] = new Money(250000m);`)
}

func TestSnippetAttributesInLexicographicOrder(t *testing.T) {
	pc := updatePostContext()
	snippet, err := encode.Snippet(pc, config.Defaults())
	require.NoError(t, err)

	nameIdx := strings.Index(snippet, `target["name"]`)
	revenueIdx := strings.Index(snippet, `target["revenue"]`)
	require.Positive(t, nameIdx)
	require.Positive(t, revenueIdx)
	assert.Less(t, nameIdx, revenueIdx)
}

func TestSnippetClassNaming(t *testing.T) {
	pc := updatePostContext()
	pc.PrimaryEntityName = "new_custom_table"
	pc.Target.Entity.LogicalName = "new_custom_table"
	snippet, err := encode.Snippet(pc, config.Defaults())
	require.NoError(t, err)
	assert.Contains(t, snippet, "public class NewCustomTableUpdateTests")
}

func TestSnippetClassNamingNonASCII(t *testing.T) {
	pc := updatePostContext()
	pc.PrimaryEntityName = "ärzte_konto"
	pc.Target.Entity.LogicalName = "ärzte_konto"
	snippet, err := encode.Snippet(pc, config.Defaults())
	require.NoError(t, err)
	assert.Contains(t, snippet, "public class ÄrzteKontoUpdateTests")
	assert.True(t, utf8.ValidString(snippet))
}

func TestSnippetNoTarget(t *testing.T) {
	pc := &pipeline.PluginContext{
		MessageName:      "Update",
		PreEntityImages:  map[string]pipeline.Entity{},
		PostEntityImages: map[string]pipeline.Entity{},
	}
	_, err := encode.Snippet(pc, config.Defaults())
	assert.ErrorIs(t, err, encode.ErrNoTarget)
}
