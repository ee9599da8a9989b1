package diagfmt

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "monokai"

func lexerForFile(filename string) chroma.Lexer {
	lexer := lexers.Match(filename)
	if lexer == nil {
		if ext := filepath.Ext(filename); ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer != nil {
		lexer = chroma.Coalesce(lexer)
	}
	return lexer
}

// highlight renders one source line with ANSI colors picked by file type.
func highlight(filename, line string) (string, bool) {
	lexer := lexerForFile(filename)
	if lexer == nil {
		return "", false
	}
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return "", false
	}
	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}

	var sb strings.Builder
	if err := formatters.TTY256.Format(&sb, style, iterator); err != nil {
		return "", false
	}
	return strings.ReplaceAll(sb.String(), "\n", ""), true
}
