package rewrite

import (
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

const indentUnit = "    "

// operandKeywords 之后出现的 `/` 一定是正则字面量的开头。
var operandKeywords = map[string]struct{}{
	"return": {}, "typeof": {}, "instanceof": {}, "in": {}, "of": {}, "new": {},
	"delete": {}, "void": {}, "throw": {}, "case": {}, "do": {}, "else": {},
	"yield": {}, "await": {},
}

// Beautify 以 token 为单位重新排版压缩过的 JS：花括号换行缩进，语句以分号分行。
// 只在原有空白处或语句边界插入换行，不改变语义；词法错误时原样返回。
func Beautify(src string) string {
	lexer := js.NewLexer(parse.NewInputString(src))
	p := &printer{}
	for {
		tt, data := lexer.Next()
		if tt == js.ErrorToken {
			if lexer.Err() != io.EOF {
				return src
			}
			break
		}
		if (tt == js.DivToken || tt == js.DivEqToken) && p.expectsOperand() {
			tt, data = lexer.RegExp()
			if tt == js.ErrorToken {
				return src
			}
		}
		p.token(tt, data)
	}
	return p.buf.String()
}

type printer struct {
	buf       strings.Builder
	indent    int
	parens    int
	outer     []int
	last      string
	lastType  js.TokenType
	space     bool
	newline   bool
	soft      bool
	lineStart bool
}

func (p *printer) token(tt js.TokenType, data []byte) {
	switch tt {
	case js.WhitespaceToken:
		p.space = true
		return
	case js.LineTerminatorToken:
		p.newline = true
		p.soft = false
		return
	case js.CommentToken:
		p.emit(tt, data)
		return
	case js.CommentLineTerminatorToken:
		p.emit(tt, data)
		p.newline = true
		p.soft = false
		return
	case js.OpenBraceToken:
		p.emit(tt, data)
		p.indent++
		p.outer = append(p.outer, p.parens)
		p.parens = 0
		p.newline = true
		p.soft = false
	case js.CloseBraceToken:
		if p.indent > 0 {
			p.indent--
		}
		if n := len(p.outer); n > 0 {
			p.parens = p.outer[n-1]
			p.outer = p.outer[:n-1]
		}
		p.newline = false
		p.breakLine()
		p.emit(tt, data)
		p.newline = true
		p.soft = true
	case js.SemicolonToken:
		p.emit(tt, data)
		if p.parens == 0 {
			p.newline = true
			p.soft = false
		}
	case js.OpenParenToken:
		p.emit(tt, data)
		p.parens++
	case js.CloseParenToken:
		if p.parens > 0 {
			p.parens--
		}
		p.emit(tt, data)
	default:
		p.emit(tt, data)
	}
	p.last = string(data)
	p.lastType = tt
}

func (p *printer) emit(tt js.TokenType, data []byte) {
	if p.newline {
		if !(p.soft && continuesAfterBrace(tt)) {
			p.breakLine()
		}
		p.newline = false
		p.soft = false
	}
	if p.lineStart {
		p.buf.WriteString(strings.Repeat(indentUnit, p.indent))
		p.lineStart = false
	} else if p.space {
		p.buf.WriteByte(' ')
	}
	p.space = false
	p.buf.Write(data)
}

func (p *printer) breakLine() {
	if p.buf.Len() == 0 || p.lineStart {
		return
	}
	p.buf.WriteByte('\n')
	p.lineStart = true
	p.space = false
}

func continuesAfterBrace(tt js.TokenType) bool {
	switch tt {
	case js.SemicolonToken, js.CommaToken, js.CloseParenToken, js.CloseBracketToken, js.DotToken:
		return true
	}
	return false
}

// expectsOperand 判断下一个 token 处于表达式开头，此时 `/` 应按正则解析。
func (p *printer) expectsOperand() bool {
	if p.last == "" {
		return true
	}
	switch p.lastType {
	case js.StringToken, js.TemplateToken, js.TemplateEndToken, js.RegExpToken:
		return false
	case js.CloseParenToken, js.CloseBracketToken:
		return false
	}
	if _, ok := operandKeywords[p.last]; ok {
		return true
	}
	c := p.last[len(p.last)-1]
	if c == '_' || c == '$' || c == '+' && strings.HasSuffix(p.last, "++") || c == '-' && strings.HasSuffix(p.last, "--") {
		return false
	}
	if c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80 {
		return false
	}
	return true
}
