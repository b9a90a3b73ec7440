package generate

import (
	"regexp"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// safeVars are environment variables that are non-sensitive and useful for LLM context.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "DISPLAY": true, "WAYLAND_DISPLAY": true,
	"HISTFILE": true, "HISTSIZE": true, "SHLVL": true,
	"COLUMNS": true, "LINES": true, "LC_ALL": true, "LC_CTYPE": true,
}

// specialParams are shell special parameters that should not be redacted.
var specialParams = map[string]bool{
	"?": true, "!": true, "#": true, "@": true, "*": true,
	"-": true, "$": true, "_": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

type edit struct {
	start, end int
	repl       string
}

// RedactQuestion replaces sensitive variable references and assignment values
// in a question. Questions often embed shell snippets, so the text is parsed
// as bash and only the offending spans are rewritten; everything else is kept
// byte for byte. Text that does not parse as shell falls back to regexes.
func RedactQuestion(question string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	prog, err := parser.Parse(strings.NewReader(question), "")
	if err != nil {
		return regexRedact(question)
	}

	var edits []edit
	syntax.Walk(prog, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.ParamExp:
			if n.Param != nil && !safeVars[n.Param.Value] && !specialParams[n.Param.Value] {
				edits = append(edits, edit{int(n.Param.Pos().Offset()), int(n.Param.End().Offset()), "REDACTED"})
			}
		case *syntax.Assign:
			if n.Name != nil && !safeVars[n.Name.Value] && n.Value != nil {
				edits = append(edits, edit{int(n.Value.Pos().Offset()), int(n.Value.End().Offset()), "***"})
			}
		}
		return true
	})

	return applyEdits(question, edits)
}

// applyEdits rewrites spans of s. Spans nested inside an earlier span are dropped.
func applyEdits(s string, edits []edit) string {
	if len(edits) == 0 {
		return s
	}
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end > edits[j].end
	})

	var sb strings.Builder
	sb.Grow(len(s))
	last := 0
	for _, e := range edits {
		if e.start < last || e.end > len(s) || e.start > e.end {
			continue
		}
		sb.WriteString(s[last:e.start])
		sb.WriteString(e.repl)
		last = e.end
	}
	sb.WriteString(s[last:])
	return sb.String()
}

var (
	reBraceVar  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	reSimpleVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	reAssign    = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
)

// regexRedact is a fallback for text that fails shell parsing.
func regexRedact(s string) string {
	// ${VAR} → ${REDACTED}
	s = reBraceVar.ReplaceAllStringFunc(s, func(m string) string {
		name := reBraceVar.FindStringSubmatch(m)[1]
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "${REDACTED}"
	})

	// $VAR → $REDACTED
	s = reSimpleVar.ReplaceAllStringFunc(s, func(m string) string {
		name := reSimpleVar.FindStringSubmatch(m)[1]
		if name == "REDACTED" {
			return m
		}
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "$REDACTED"
	})

	// VAR=value → VAR=***
	s = reAssign.ReplaceAllStringFunc(s, func(m string) string {
		name := reAssign.FindStringSubmatch(m)[1]
		if safeVars[name] {
			return m
		}
		return name + "=***"
	})

	return s
}
