package compiler

import (
	esbuild_config "github.com/ije/esbuild-internal/config"
	"github.com/ije/esbuild-internal/js_lexer"
	"github.com/ije/esbuild-internal/logger"
)

// KeywordOffsets returns the byte offsets of the `import` and `export`
// keyword tokens of the source. Text inside comments, strings, templates and
// regular expressions is skipped. ok is false when the source could not be
// tokenized.
func KeywordOffsets(name string, contents string) (offsets map[int]bool, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, isLexerPanic := r.(js_lexer.LexerPanic); !isLexerPanic {
				panic(r)
			}
			offsets, ok = nil, false
		}
	}()

	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	lexer := js_lexer.NewLexer(log, logger.Source{
		KeyPath:        logger.Path{Text: name},
		PrettyPath:     name,
		IdentifierName: "stdin",
		Contents:       contents,
	}, esbuild_config.TSOptions{
		Parse: endsWith(name, ".ts", ".mts", ".cts", ".tsx"),
	})

	offsets = make(map[int]bool)
	// open braces, true for a template substitution
	var braces []bool
	// a slash after an operand is a division, otherwise a regexp
	operand := false
	for lexer.Token != js_lexer.TEndOfFile {
		switch lexer.Token {
		case js_lexer.TImport, js_lexer.TExport:
			offsets[int(lexer.Loc().Start)] = true
		case js_lexer.TOpenBrace:
			braces = append(braces, false)
		case js_lexer.TTemplateHead:
			braces = append(braces, true)
		case js_lexer.TCloseBrace:
			if n := len(braces); n > 0 {
				substitution := braces[n-1]
				braces = braces[:n-1]
				if substitution {
					lexer.RescanCloseBraceAsTemplateToken()
					if lexer.Token == js_lexer.TTemplateMiddle {
						braces = append(braces, true)
					}
				}
			}
		case js_lexer.TSlash, js_lexer.TSlashEquals:
			if !operand {
				lexer.ScanRegExp()
				operand = true
				lexer.Next()
				continue
			}
		}
		operand = endsOperand(lexer.Token)
		lexer.Next()
	}
	return offsets, true
}

func endsOperand(t js_lexer.T) bool {
	switch t {
	case js_lexer.TIdentifier, js_lexer.TEscapedKeyword, js_lexer.TPrivateIdentifier,
		js_lexer.TNumericLiteral, js_lexer.TStringLiteral, js_lexer.TBigIntegerLiteral,
		js_lexer.TNoSubstitutionTemplateLiteral, js_lexer.TTemplateTail,
		js_lexer.TCloseParen, js_lexer.TCloseBracket,
		js_lexer.TThis, js_lexer.TSuper, js_lexer.TTrue, js_lexer.TFalse, js_lexer.TNull,
		js_lexer.TPlusPlus, js_lexer.TMinusMinus:
		return true
	}
	return false
}
