package tokenizer

import (
	"strings"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/corey/bayes/internal/ports"
)

// codeRule is one step of the code cascade: every match of expr is emitted
// after rewriting it with replace ($0 = whole match, $1 = first group).
type codeRule struct {
	expr    string
	replace string
}

// codeCascade is applied in order. Several rules need lookaround, which the
// standard library's RE2 engine does not support.
var codeCascade = []codeRule{
	{`(?<![\(\<"\w\$\#\%\@])[A-Za-z_]\w+(?![\w\>"\)])`, ":word:$0"},
	{`\*+(?=[\w\[])`, "$0"},
	{`\<\w+\>`, ":angle1:"},
	{`(?<!:):(?![:\n])`, "$0"},
	{`(?<!:):\n`, ":colon_newline:"},
	{`(?<=[\w\>])::(?=\w)`, "$0"},
	{` ::: `, "$0"},
	{` :: `, "$0"},
	{`(?<=[\w\)])\.(?=\w)`, "$0"},
	{`(?<=[\w\)])\.$`, "$0"},
	{`(?<![:<>=])=(?![>=])`, "$0"},
	{`[-=]{1,3}>`, "$0"},
	{`(?<!<)={3,}(?!>)`, ":3+=:"},
	{`:=+(?![>=])`, "::=:"},
	{`\$[\(<\^]`, "$0"},
	{`\|`, "$0"},
	{`\[\]`, "$0"},
	{`\?`, "$0"},
	{`"\w+"(?=:)`, ":property:"},
	{`\$\w+`, ":$$word:"},
	{`\{.*\}`, ":bracketed:"},
	{`#\w+(?![\>"])`, "$0"},
	{`\((\w+)\)\s*(?=\w)`, ":cast:$1"},
	{`\((\w+) ?\*+\)`, ":castptr:$1"},
	{`@\w+`, "$0"},
	{`%\w+`, "$0"},
	{`&\w+`, ":ref:"},
	{`<[\w/]+\.[a-z]+>`, ":angle2:"},
	{`;\n`, ":end;:"},
	{`;(?!\n)`, ";"},
	{`(?!</)//(?!/)`, "$0"},
	{`///`, "$0"},
	{`/\*`, "$0"},
	{`\*/(?!/)`, "$0"},
	{`</\w+>`, ":end_tag:"},
	{`\w+\.\w+\(`, ":object_call:"},
	{`\w+->\w+\(`, ":object_call_deref:"},
}

type compiledRule struct {
	re      *regexp2.Regexp
	replace string
}

// codeRules compiles the cascade once, on first use.
var codeRules = sync.OnceValue(func() []compiledRule {
	rules := make([]compiledRule, len(codeCascade))
	for i, r := range codeCascade {
		rules[i] = compiledRule{re: regexp2.MustCompile(r.expr, regexp2.None), replace: r.replace}
	}
	return rules
})

// Code tokenizes source code into structural markers (":word:name",
// ":cast:int", "->", ...). Each rule runs over the whole text; for every match
// the match and each of its groups are rewritten and emitted.
var Code ports.Tokenizer = Func(tokenizeCode)

func tokenizeCode(text string) []string {
	var out []string
	for _, rule := range codeRules() {
		m, err := rule.re.FindStringMatch(text)
		for err == nil && m != nil {
			for _, g := range m.Groups() {
				part := g.String()
				if part == "" {
					continue
				}
				tok, rerr := rule.re.Replace(part, rule.replace, -1, -1)
				if rerr != nil || strings.TrimSpace(tok) == "" {
					continue
				}
				out = append(out, tok)
			}
			m, err = rule.re.FindNextMatch(m)
		}
	}
	return out
}
