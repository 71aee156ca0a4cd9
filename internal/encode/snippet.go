package encode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xrmdev/plugsim/internal/config"
	"github.com/xrmdev/plugsim/internal/pipeline"
	"github.com/xrmdev/plugsim/internal/xrm"
)

// Snippet emits a complete, ready-to-adapt C# unit-test skeleton in the
// FakeXrmEasy idiom, wired to the context's target and pre-image data.
//
// Attributes are emitted in lexicographic order and nothing in the output
// depends on map iteration, so identical contexts produce byte-identical
// snippets.
func Snippet(pc *pipeline.PluginContext, consts config.Constants) (string, error) {
	if pc.Target.Entity == nil && pc.Target.Reference == nil {
		return "", ErrNoTarget
	}

	stage := stageName(pc.Stage, consts)
	var b strings.Builder

	b.WriteString("using System;\n")
	b.WriteString("using System.Collections.Generic;\n")
	b.WriteString("using FakeXrmEasy;\n")
	b.WriteString("using Microsoft.Xrm.Sdk;\n")
	b.WriteString("using Xunit;\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "public class %s%sTests\n", pascal(pc.PrimaryEntityName), pascal(pc.MessageName))
	b.WriteString("{\n")
	b.WriteString("    [Fact]\n")
	fmt.Fprintf(&b, "    public void %s_%s_Simulation()\n", pascal(pc.MessageName), stage)
	b.WriteString("    {\n")
	b.WriteString("        var fakedContext = new XrmFakedContext();\n")
	b.WriteString("\n")

	preImage, hasPreImage := pc.PreEntityImages[consts.ImageKey]
	if hasPreImage {
		writeEntityVar(&b, "preImage", preImage)
		b.WriteString("\n")
	}

	if pc.Target.Reference != nil {
		// Deletes run against existing data: seed the mock store with the
		// pre-image so there is a record to delete.
		if hasPreImage {
			b.WriteString("        fakedContext.Initialize(new List<Entity> { preImage });\n")
			b.WriteString("\n")
		}
	} else {
		writeEntityVar(&b, "target", *pc.Target.Entity)
		b.WriteString("\n")
	}

	b.WriteString("        var pluginContext = fakedContext.GetDefaultPluginContext();\n")
	fmt.Fprintf(&b, "        pluginContext.MessageName = %s;\n", csharpString(pc.MessageName))
	fmt.Fprintf(&b, "        pluginContext.Stage = %d;\n", pc.Stage)
	fmt.Fprintf(&b, "        pluginContext.PrimaryEntityName = %s;\n", csharpString(pc.PrimaryEntityName))
	if pc.PrimaryEntityID != "" {
		fmt.Fprintf(&b, "        pluginContext.PrimaryEntityId = new Guid(%s);\n", csharpString(pc.PrimaryEntityID))
	}
	if pc.InitiatingUserID != "" {
		fmt.Fprintf(&b, "        pluginContext.InitiatingUserId = new Guid(%s);\n", csharpString(pc.InitiatingUserID))
	}

	if pc.Target.Reference != nil {
		ref := pc.Target.Reference
		fmt.Fprintf(&b, "        pluginContext.InputParameters[\"Target\"] = new EntityReference(%s, new Guid(%s));\n",
			csharpString(ref.LogicalName), csharpString(ref.ID))
	} else {
		b.WriteString("        pluginContext.InputParameters[\"Target\"] = target;\n")
	}

	if hasPreImage {
		fmt.Fprintf(&b, "        pluginContext.PreEntityImages.Add(%s, preImage);\n", csharpString(consts.ImageKey))
	}
	if postImage, ok := pc.PostEntityImages[consts.ImageKey]; ok {
		b.WriteString("\n")
		writeEntityVar(&b, "postImage", postImage)
		fmt.Fprintf(&b, "        pluginContext.PostEntityImages.Add(%s, postImage);\n", csharpString(consts.ImageKey))
	}

	b.WriteString("\n")
	b.WriteString("        // Replace YourPlugin with the plugin under test.\n")
	b.WriteString("        fakedContext.ExecutePluginWith<YourPlugin>(pluginContext);\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")

	return b.String(), nil
}

// writeEntityVar emits `var <name> = new Entity(...)` plus one indexer
// assignment per attribute, lexicographically ordered.
func writeEntityVar(b *strings.Builder, varName string, e pipeline.Entity) {
	if e.ID != "" {
		fmt.Fprintf(b, "        var %s = new Entity(%s) { Id = new Guid(%s) };\n",
			varName, csharpString(e.LogicalName), csharpString(e.ID))
	} else {
		fmt.Fprintf(b, "        var %s = new Entity(%s);\n", varName, csharpString(e.LogicalName))
	}
	for _, name := range e.Attributes.SortedKeys() {
		fmt.Fprintf(b, "        %s[%s] = %s;\n", varName, csharpString(name), csharpLiteral(e.Attributes[name]))
	}
}

// csharpLiteral renders one attribute value as C# source.
func csharpLiteral(v xrm.AttributeValue) string {
	return xrm.Visit(v, xrm.Visitor[string]{
		Null:   func() string { return "null" },
		String: func(s string) string { return csharpString(s) },
		Int:    func(n int64) string { return strconv.FormatInt(n, 10) },
		Float:  func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) },
		Bool: func(b bool) string {
			if b {
				return "true"
			}
			return "false"
		},
		EntityReference: func(ref xrm.EntityReference) string {
			return fmt.Sprintf("new EntityReference(%s, new Guid(%s))",
				csharpString(ref.LogicalName), csharpString(ref.ID))
		},
		OptionSet: func(o xrm.OptionSetValue) string {
			return fmt.Sprintf("new OptionSetValue(%d)", o.Value)
		},
		OptionSetCollection: func(o xrm.OptionSetValueCollection) string {
			parts := make([]string, len(o.Values))
			for i, n := range o.Values {
				parts[i] = fmt.Sprintf("new OptionSetValue(%d)", n)
			}
			return "new OptionSetValueCollection { " + strings.Join(parts, ", ") + " }"
		},
		Money: func(m xrm.Money) string {
			return fmt.Sprintf("new Money(%sm)", strconv.FormatFloat(m.Value, 'f', -1, 64))
		},
		DateTime: func(d xrm.DateTime) string {
			return fmt.Sprintf("DateTime.Parse(%s, null, System.Globalization.DateTimeStyles.RoundtripKind)",
				csharpString(d.ISO))
		},
		Default: func(v xrm.AttributeValue) string { return "null" },
	})
}

// csharpString renders a quoted C# string literal, escaping backslashes,
// quotes, and control characters.
func csharpString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// pascal converts a logical name like "new_customtable" to PascalCase.
func pascal(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		b.WriteString(strings.ToUpper(string(r)))
		b.WriteString(p[size:])
	}
	if b.Len() == 0 {
		return "Entity"
	}
	return b.String()
}

func stageName(stage int, consts config.Constants) string {
	switch stage {
	case consts.Stages.PreOperation:
		return "PreOperation"
	case consts.Stages.PostOperation:
		return "PostOperation"
	default:
		return fmt.Sprintf("Stage%d", stage)
	}
}
